package attestation

import (
	"context"
	"errors"
	"strings"

	"github.com/aspect-build/attestd/internal/execx"
	"github.com/aspect-build/attestd/internal/logx"
)

const (
	gpuQueryTool      = "nvidia-smi"
	ccMarker          = "Confidential Computing"
	productNameMarker = "Product Name"
)

// NvidiaSMI inspects the GPU with nvidia-smi.
type NvidiaSMI struct {
	Runner execx.Runner
}

func (n NvidiaSMI) InspectGPU(ctx context.Context) GPUStatus {
	status := gpuNotDetected()

	out, err := n.Runner.Run(ctx, GPUQueryTimeout, gpuQueryTool, "-q")
	if err != nil {
		// No driver installed means no GPU, which is not an error.
		if !errors.Is(err, execx.ErrNotFound) {
			logx.Warnf("gpu: %v", err)
			status.Error = err.Error()
		}
		return status
	}
	return parseNvidiaSMI(out)
}

func parseNvidiaSMI(out string) GPUStatus {
	status := GPUStatus{Detected: true, Mode: GPUModeOff}
	if strings.Contains(out, ccMarker) {
		status.Verified = true
		status.Mode = GPUModeOn
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, productNameMarker) {
			continue
		}
		if _, model, ok := strings.Cut(line, ":"); ok {
			status.Model = strings.TrimSpace(model)
		}
		break
	}
	return status
}
