package attestation

import (
	"context"
	"errors"
	"strings"

	"github.com/aspect-build/attestd/internal/execx"
	"github.com/aspect-build/attestd/internal/logx"
)

const (
	pcrReadTool = "tpm2_pcrread"
	pcrBank     = "sha256"

	errTPMToolsMissing = "tpm2-tools not installed"
	errTPMTimeout      = "TPM read timeout"
)

// PCRTool reads PCRs with tpm2-tools.
type PCRTool struct {
	Runner execx.Runner
}

func (p PCRTool) ReadPCRs(ctx context.Context) PCRTable {
	out, err := p.Runner.Run(ctx, TPMReadTimeout, pcrReadTool, pcrBank)
	switch {
	case err == nil:
		return parsePCRRead(out)
	case errors.Is(err, execx.ErrNotFound):
		logx.Debugf("tpm: %s not installed", pcrReadTool)
		return pcrError(errTPMToolsMissing)
	case errors.Is(err, execx.ErrTimeout):
		logx.Warnf("tpm: %s timed out", pcrReadTool)
		return pcrError(errTPMTimeout)
	default:
		logx.Warnf("tpm: %v", err)
		return pcrError(err.Error())
	}
}

// parsePCRRead extracts "<index> : 0x<digest>" lines from tpm2_pcrread
// output. Bank header lines such as "sha256:" carry no 0x marker and are
// skipped.
func parsePCRRead(out string) PCRTable {
	table := PCRTable{}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, ":") || !strings.Contains(line, "0x") {
			continue
		}
		label, value, _ := strings.Cut(strings.TrimSpace(line), ":")
		table[strings.TrimSpace(label)] = strings.TrimSpace(value)
	}
	return table
}
