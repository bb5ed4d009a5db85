package attestation

import (
	"encoding/json"
)

// Platform is the TEE family inferred from kernel log markers.
type Platform string

const (
	PlatformIntelTDX  Platform = "Intel-TDX"
	PlatformAMDSEVSNP Platform = "AMD-SEV-SNP"
	PlatformUnknown   Platform = "Unknown"
)

// Verified reports whether the platform is a recognised TEE.
func (p Platform) Verified() bool {
	return p == PlatformIntelTDX || p == PlatformAMDSEVSNP
}

// maxSignatureChars bounds the signature preview in AttestationDocument.
const maxSignatureChars = 200

const truncationMarker = "..."

// AttestationDocument is the cloud-signed attestation blob, or the reason it
// could not be fetched. It serializes as either {"encoding","signature"} or
// {"error"}.
type AttestationDocument struct {
	Encoding  string
	Signature string
	Error     string
}

func (d AttestationDocument) MarshalJSON() ([]byte, error) {
	if d.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{d.Error})
	}
	return json.Marshal(struct {
		Encoding  string `json:"encoding"`
		Signature string `json:"signature"`
	}{d.Encoding, d.Signature})
}

func (d *AttestationDocument) UnmarshalJSON(b []byte) error {
	var raw struct {
		Encoding  string `json:"encoding"`
		Signature string `json:"signature"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*d = AttestationDocument(raw)
	return nil
}

// truncateSignature keeps the first 200 characters of sig and appends "..."
// when anything was cut.
func truncateSignature(sig string) string {
	r := []rune(sig)
	if len(r) <= maxSignatureChars {
		return sig
	}
	return string(r[:maxSignatureChars]) + truncationMarker
}

// pcrErrorKey is the sole key of a PCRTable that could not be read.
const pcrErrorKey = "error"

// PCRTable maps a PCR index label to its hex digest. A failed read is a
// table holding only the "error" key.
type PCRTable map[string]string

func pcrError(reason string) PCRTable {
	return PCRTable{pcrErrorKey: reason}
}

// Err returns the read failure, if the table represents one.
func (t PCRTable) Err() (string, bool) {
	reason, ok := t[pcrErrorKey]
	return reason, ok
}

// GPU modes reported in nvidia_cc_mode.
const (
	GPUModeOn      = "on"
	GPUModeOff     = "off"
	GPUModeUnknown = "unknown"
)

// defaultGPUName is reported when a GPU answered but no product name was found.
const defaultGPUName = "NVIDIA-GPU"

// GPUStatus is the confidential-compute state of the local NVIDIA GPU.
type GPUStatus struct {
	Detected bool
	Verified bool
	Mode     string
	Model    string
	Error    string
}

func gpuNotDetected() GPUStatus {
	return GPUStatus{Mode: GPUModeUnknown}
}

// Response is the composed evidence document served on /attestation.
// Field order matches the wire layout consumers expect.
type Response struct {
	Platform         Platform            `json:"platform"`
	TEEVerified      bool                `json:"tee_verified"`
	VMSize           string              `json:"vm_size"`
	AzureAttestation AttestationDocument `json:"azure_attestation"`
	TPMPCRSHA256     PCRTable            `json:"tpm_pcr_sha256"`
	TEEDmesg         []string            `json:"tee_dmesg"`
	Timestamp        string              `json:"timestamp"`

	// Present only when a GPU was detected.
	GPU            *string `json:"gpu,omitempty"`
	GPUTEEVerified *bool   `json:"gpu_tee_verified,omitempty"`
	NvidiaCCMode   *string `json:"nvidia_cc_mode,omitempty"`
}
