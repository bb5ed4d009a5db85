package attestation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aspect-build/attestd/internal/execx"
	aho "github.com/petar-dambovaliev/aho-corasick"
)

// MaxKernelEvidenceLines caps tee_dmesg.
const MaxKernelEvidenceLines = 10

var kernelKeywords = []string{"tdx", "sev", "memory encryption", "confidential", "encrypted"}

// keywordMatcher is a case-insensitive multi-pattern matcher over kernelKeywords.
type keywordMatcher struct {
	mu      sync.Mutex
	matcher aho.AhoCorasick
}

func newKeywordMatcher(keywords []string) *keywordMatcher {
	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		AsciiCaseInsensitive: true,
		MatchKind:            aho.LeftMostFirstMatch,
		DFA:                  true,
	})
	return &keywordMatcher{matcher: builder.Build(keywords)}
}

func (m *keywordMatcher) matches(line string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matcher.FindAll(line)) > 0
}

var (
	teeKeywordsOnce sync.Once
	teeKeywords     *keywordMatcher
)

func kernelKeywordMatcher() *keywordMatcher {
	teeKeywordsOnce.Do(func() {
		teeKeywords = newKeywordMatcher(kernelKeywords)
	})
	return teeKeywords
}

// ExtractKernelEvidence returns up to MaxKernelEvidenceLines trimmed log lines
// that mention a TEE keyword, in log order. If the log could not be read the
// result is a single line describing the failure, so "no evidence" and
// "could not check" stay distinguishable.
func ExtractKernelEvidence(kernelLog string, readErr error) []string {
	if readErr != nil {
		return []string{fmt.Sprintf("Error reading dmesg: %v", readErr)}
	}

	m := kernelKeywordMatcher()
	lines := []string{}
	for _, line := range strings.Split(kernelLog, "\n") {
		if !m.matches(line) {
			continue
		}
		lines = append(lines, strings.TrimSpace(line))
		if len(lines) == MaxKernelEvidenceLines {
			break
		}
	}
	return lines
}

// Dmesg reads the kernel log with the dmesg tool.
type Dmesg struct {
	Runner execx.Runner
}

func (d Dmesg) ReadKernelLog(ctx context.Context) (string, error) {
	out, err := d.Runner.Run(ctx, KernelLogTimeout, "dmesg")
	if err != nil {
		return "", fmt.Errorf("read kernel log: %w", err)
	}
	return out, nil
}
