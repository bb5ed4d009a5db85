package attestation

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/aspect-build/attestd/internal/logx"
	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
)

// DefaultTPMDevice is the kernel TPM resource manager.
const DefaultTPMDevice = "/dev/tpmrm0"

const (
	pcrCount = 24
	// TPM2_PCRRead returns at most 8 digests per call.
	pcrReadChunk = 8
)

// PCRDevice reads PCRs straight from the TPM character device, for hosts
// without tpm2-tools. Its table has the same shape as PCRTool's.
type PCRDevice struct {
	Path string
}

func (p PCRDevice) ReadPCRs(ctx context.Context) PCRTable {
	path := p.Path
	if path == "" {
		path = DefaultTPMDevice
	}

	ctx, cancel := context.WithTimeout(ctx, TPMReadTimeout)
	defer cancel()

	done := make(chan PCRTable, 1)
	go func() {
		done <- readDevicePCRs(path)
	}()

	select {
	case table := <-done:
		return table
	case <-ctx.Done():
		logx.Warnf("tpm: device read on %s timed out", path)
		return pcrError(errTPMTimeout)
	}
}

func readDevicePCRs(path string) PCRTable {
	tpm, err := openTPM(path)
	if err != nil {
		logx.Warnf("tpm: %v", err)
		return pcrError(err.Error())
	}
	defer tpm.Close()

	digests, err := readSHA256Bank(tpm)
	if err != nil {
		logx.Warnf("tpm: %v", err)
		return pcrError(err.Error())
	}

	table := make(PCRTable, len(digests))
	for idx, d := range digests {
		table[strconv.Itoa(int(idx))] = formatDigest(d)
	}
	return table
}

func readSHA256Bank(tpm transport.TPM) (map[uint][]byte, error) {
	values := make(map[uint][]byte, pcrCount)
	for start := uint(0); start < pcrCount; start += pcrReadChunk {
		want := make([]uint, 0, pcrReadChunk)
		for i := start; i < start+pcrReadChunk && i < pcrCount; i++ {
			want = append(want, i)
		}

		rsp, err := tpm2.PCRRead{
			PCRSelectionIn: tpm2.TPMLPCRSelection{
				PCRSelections: []tpm2.TPMSPCRSelection{
					{
						Hash:      tpm2.TPMAlgSHA256,
						PCRSelect: tpm2.PCClientCompatible.PCRs(want...),
					},
				},
			},
		}.Execute(tpm)
		if err != nil {
			return nil, fmt.Errorf("PCRRead %d-%d: %w", want[0], want[len(want)-1], err)
		}

		var got []uint
		for _, sel := range rsp.PCRSelectionOut.PCRSelections {
			if sel.Hash == tpm2.TPMAlgSHA256 {
				got = append(got, selectedPCRs(sel.PCRSelect)...)
			}
		}
		if len(got) != len(rsp.PCRValues.Digests) {
			return nil, fmt.Errorf("PCRRead returned %d digests for %d selected registers", len(rsp.PCRValues.Digests), len(got))
		}
		for i, idx := range got {
			values[idx] = rsp.PCRValues.Digests[i].Buffer
		}
	}
	return values, nil
}

// selectedPCRs returns the indices of set bits in a PCR selection bitmap,
// lowest first.
func selectedPCRs(bitmap []byte) []uint {
	var out []uint
	for byteIdx, b := range bitmap {
		for bit := uint(0); bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				out = append(out, uint(byteIdx)*8+bit)
			}
		}
	}
	return out
}

// formatDigest renders a digest the way tpm2_pcrread prints it.
func formatDigest(d []byte) string {
	return "0x" + strings.ToUpper(hex.EncodeToString(d))
}
