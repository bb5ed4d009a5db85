package attestation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aspect-build/attestd/internal/logx"
	"github.com/aspect-build/attestd/internal/version"
)

// DefaultIMDSEndpoint is the Azure Instance Metadata Service address.
const DefaultIMDSEndpoint = "http://169.254.169.254"

const (
	imdsAPIVersion     = "2021-02-01"
	attestedDocPath    = "/metadata/attested/document?api-version=" + imdsAPIVersion
	vmSizePath         = "/metadata/instance/compute/vmSize?api-version=" + imdsAPIVersion + "&format=text"
	metadataHeader     = "Metadata"
	metadataHeaderTrue = "true"

	// UnknownVMSize is reported when neither IMDS nor the override knows the size.
	UnknownVMSize = "Unknown"

	maxIMDSBody = 1 << 20
)

// IMDSClient fetches the attested document and VM size from Azure IMDS.
type IMDSClient struct {
	// Endpoint is the metadata base URL, DefaultIMDSEndpoint when empty.
	Endpoint string
	// VMSizeOverride is reported when the VM size cannot be fetched.
	VMSizeOverride string
	// DocTimeout and VMSizeTimeout bound each request.
	DocTimeout    time.Duration
	VMSizeTimeout time.Duration

	client *http.Client
}

func NewIMDSClient(endpoint, vmSizeOverride string) *IMDSClient {
	if endpoint == "" {
		endpoint = DefaultIMDSEndpoint
	}
	return &IMDSClient{
		Endpoint:       strings.TrimRight(endpoint, "/"),
		VMSizeOverride: vmSizeOverride,
		DocTimeout:     AttestedDocTimeout,
		VMSizeTimeout:  VMSizeTimeout,
		client: &http.Client{
			// IMDS is link-local and must never be reached through a proxy.
			Transport: &http.Transport{Proxy: nil, DisableKeepAlives: true},
		},
	}
}

// AttestedDocument returns the signed attestation document with its
// signature truncated for display. Failures are reported in the Error field.
func (c *IMDSClient) AttestedDocument(ctx context.Context) AttestationDocument {
	body, err := c.get(ctx, attestedDocPath, c.DocTimeout)
	if err != nil {
		logx.Warnf("imds attested document: %v", err)
		return AttestationDocument{Error: err.Error()}
	}

	var raw struct {
		Encoding  *string `json:"encoding"`
		Signature *string `json:"signature"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		logx.Warnf("imds attested document: decode: %v", err)
		return AttestationDocument{Error: fmt.Sprintf("decode attested document: %v", err)}
	}

	doc := AttestationDocument{Encoding: "unknown"}
	if raw.Encoding != nil {
		doc.Encoding = *raw.Encoding
	}
	if raw.Signature != nil {
		doc.Signature = truncateSignature(*raw.Signature)
	}
	return doc
}

// VMSize returns the instance size, falling back to VMSizeOverride and then
// UnknownVMSize.
func (c *IMDSClient) VMSize(ctx context.Context) string {
	body, err := c.get(ctx, vmSizePath, c.VMSizeTimeout)
	if err == nil {
		if size := strings.TrimSpace(string(body)); size != "" {
			return size
		}
		err = fmt.Errorf("empty vmSize response")
	}
	logx.Debugf("imds vm size unavailable, using fallback: %v", err)
	if c.VMSizeOverride != "" {
		return c.VMSizeOverride
	}
	return UnknownVMSize
}

func (c *IMDSClient) get(ctx context.Context, path string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create metadata request: %w", err)
	}
	req.Header.Set(metadataHeader, metadataHeaderTrue)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIMDSBody))
	if err != nil {
		return nil, fmt.Errorf("read metadata response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
