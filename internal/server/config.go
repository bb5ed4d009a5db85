package server

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/aspect-build/attestd/internal/attestation"
)

// TPM backends selectable with ATTESTD_TPM_BACKEND / --tpm-backend.
const (
	TPMBackendTools  = "tools"
	TPMBackendDevice = "device"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 4001
)

// Config holds server configuration loaded from environment variables.
type Config struct {
	Host string
	Port int

	IMDSEndpoint   string
	VMSizeOverride string
	TPMBackend     string
	TPMDevice      string
	CORSOrigins    []string
}

// LoadConfig loads server configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		IMDSEndpoint:   attestation.DefaultIMDSEndpoint,
		VMSizeOverride: strings.TrimSpace(os.Getenv("VM_SIZE")),
		TPMBackend:     TPMBackendTools,
		TPMDevice:      attestation.DefaultTPMDevice,
		CORSOrigins:    []string{"*"},
	}

	if v := strings.TrimSpace(os.Getenv("ATTESTD_HOST")); v != "" {
		cfg.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("ATTESTD_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ATTESTD_PORT must be a number: %w", err)
		}
		cfg.Port = port
	}
	if v := strings.TrimSpace(os.Getenv("ATTESTD_IMDS_ENDPOINT")); v != "" {
		cfg.IMDSEndpoint = v
	}
	if v := NormalizeTPMBackend(os.Getenv("ATTESTD_TPM_BACKEND")); v != "" {
		cfg.TPMBackend = v
	}
	if v := strings.TrimSpace(os.Getenv("ATTESTD_TPM_DEVICE")); v != "" {
		cfg.TPMDevice = v
	}
	if v := os.Getenv("ATTESTD_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NormalizeTPMBackend lower-cases and trims a backend name from env or flags.
func NormalizeTPMBackend(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Validate checks values that may have been overridden after loading.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	switch c.TPMBackend {
	case TPMBackendTools, TPMBackendDevice:
	default:
		return fmt.Errorf("TPM backend must be %q or %q, got %q", TPMBackendTools, TPMBackendDevice, c.TPMBackend)
	}
	if c.TPMBackend == TPMBackendDevice && c.TPMDevice == "" {
		return fmt.Errorf("TPM device path is required for the %q backend", TPMBackendDevice)
	}
	return nil
}

// ListenAddr is the host:port the server binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
