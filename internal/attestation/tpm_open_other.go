//go:build !linux

package attestation

import (
	"fmt"
	"runtime"

	"github.com/google/go-tpm/tpm2/transport"
)

func openTPM(path string) (transport.TPMCloser, error) {
	return nil, fmt.Errorf("opening TPM device %s: not supported on %s", path, runtime.GOOS)
}
