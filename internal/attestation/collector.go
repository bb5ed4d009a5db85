package attestation

import (
	"context"
	"time"
)

// Collector timeouts. Each bounds a single external call.
const (
	KernelLogTimeout   = 5 * time.Second
	AttestedDocTimeout = 10 * time.Second
	VMSizeTimeout      = 5 * time.Second
	TPMReadTimeout     = 5 * time.Second
	GPUQueryTimeout    = 10 * time.Second
)

// KernelLogSource returns the raw kernel ring buffer.
type KernelLogSource interface {
	ReadKernelLog(ctx context.Context) (string, error)
}

// CloudMetadata fetches instance facts from the hosting cloud.
//
// Implementations never fail: errors are folded into the returned values.
type CloudMetadata interface {
	AttestedDocument(ctx context.Context) AttestationDocument
	VMSize(ctx context.Context) string
}

// PCRReader reads the SHA-256 PCR bank. A failed read is reported as a
// single-entry error table.
type PCRReader interface {
	ReadPCRs(ctx context.Context) PCRTable
}

// GPUInspector reports GPU confidential-compute state.
type GPUInspector interface {
	InspectGPU(ctx context.Context) GPUStatus
}
