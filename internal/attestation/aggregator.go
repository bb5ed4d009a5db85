package attestation

import (
	"context"
	"time"

	"github.com/aspect-build/attestd/internal/execx"
	"github.com/aspect-build/attestd/internal/logx"
	"golang.org/x/sync/errgroup"
)

// Aggregator composes one Response per call from independent evidence
// sources. It holds no per-request state and is safe for concurrent use.
type Aggregator struct {
	Kernel KernelLogSource
	Cloud  CloudMetadata
	TPM    PCRReader
	GPU    GPUInspector

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewAggregator wires the host collectors around runner. pcr selects the
// TPM backend.
func NewAggregator(runner execx.Runner, cloud CloudMetadata, pcr PCRReader) *Aggregator {
	if pcr == nil {
		pcr = PCRTool{Runner: runner}
	}
	return &Aggregator{
		Kernel: Dmesg{Runner: runner},
		Cloud:  cloud,
		TPM:    pcr,
		GPU:    NvidiaSMI{Runner: runner},
	}
}

// Attest runs every collector concurrently and builds the response. It never
// fails: each collector reports its own degradation inline.
func (a *Aggregator) Attest(ctx context.Context) Response {
	start := time.Now()

	var (
		kernelLog string
		kernelErr error
		doc       AttestationDocument
		vmSize    string
		pcrs      PCRTable
		gpu       GPUStatus
	)

	var g errgroup.Group
	g.Go(func() error {
		kernelLog, kernelErr = a.Kernel.ReadKernelLog(ctx)
		return nil
	})
	g.Go(func() error {
		doc = a.Cloud.AttestedDocument(ctx)
		return nil
	})
	g.Go(func() error {
		vmSize = a.Cloud.VMSize(ctx)
		return nil
	})
	g.Go(func() error {
		pcrs = a.TPM.ReadPCRs(ctx)
		return nil
	})
	g.Go(func() error {
		gpu = a.GPU.InspectGPU(ctx)
		return nil
	})
	_ = g.Wait()

	if kernelErr != nil {
		logx.Warnf("kernel log: %v", kernelErr)
	}
	platform := DetectPlatform(kernelLog, kernelErr)

	resp := Response{
		Platform:         platform,
		TEEVerified:      platform.Verified(),
		VMSize:           vmSize,
		AzureAttestation: doc,
		TPMPCRSHA256:     pcrs,
		TEEDmesg:         ExtractKernelEvidence(kernelLog, kernelErr),
		Timestamp:        FormatTimestamp(a.now()),
	}
	if gpu.Detected {
		name := gpu.Model
		if name == "" {
			name = defaultGPUName
		}
		verified := gpu.Verified
		mode := gpu.Mode
		resp.GPU = &name
		resp.GPUTEEVerified = &verified
		resp.NvidiaCCMode = &mode
	}

	logx.Debugf("attest platform=%s tee_verified=%v vm_size=%q pcrs=%d gpu=%v elapsed=%s",
		resp.Platform, resp.TEEVerified, resp.VMSize, len(resp.TPMPCRSHA256), gpu.Detected, time.Since(start).Round(time.Millisecond))
	return resp
}

func (a *Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// FormatTimestamp renders t as an RFC 3339 UTC instant.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
