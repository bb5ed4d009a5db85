package attestation

import "strings"

type platformRule struct {
	markers  []string
	platform Platform
}

// Evaluated in order; the first rule with a matching marker wins.
// Markers are lower-case and matched against the lower-cased log.
var platformRules = []platformRule{
	{markers: []string{"intel tdx", "tdx"}, platform: PlatformIntelTDX},
	{markers: []string{"sev-snp", "sev"}, platform: PlatformAMDSEVSNP},
	// Older SEV without SNP only logs the memory encryption banner.
	{markers: []string{"memory encryption"}, platform: PlatformAMDSEVSNP},
}

// DetectPlatform classifies the TEE family from kernel log text. readErr is
// the error from reading the log; any error yields PlatformUnknown.
func DetectPlatform(kernelLog string, readErr error) Platform {
	if readErr != nil {
		return PlatformUnknown
	}
	lower := strings.ToLower(kernelLog)
	for _, rule := range platformRules {
		for _, m := range rule.markers {
			if strings.Contains(lower, m) {
				return rule.platform
			}
		}
	}
	return PlatformUnknown
}
