package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruleforge/ruleforge/internal/models"
)

// NVDClient fetches vulnerability records from the NVD CVE API (v2.0 JSON).
type NVDClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewNVDClient returns a client for the given API base URL. The API key is
// optional; without one NVD applies a much lower public rate limit, which the
// fetcher's inter-call delay respects either way.
func NewNVDClient(baseURL, apiKey string) *NVDClient {
	return &NVDClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type nvdResponse struct {
	Vulnerabilities []struct {
		Cve struct {
			ID           string `json:"id"`
			Published    string `json:"published"`
			LastModified string `json:"lastModified"`
			Descriptions []struct {
				Lang  string `json:"lang"`
				Value string `json:"value"`
			} `json:"descriptions"`
			Metrics struct {
				CvssMetricV31 []struct {
					CvssData struct {
						BaseScore    float64 `json:"baseScore"`
						BaseSeverity string  `json:"baseSeverity"`
						VectorString string  `json:"vectorString"`
					} `json:"cvssData"`
				} `json:"cvssMetricV31"`
			} `json:"metrics"`
			References []struct {
				URL string `json:"url"`
			} `json:"references"`
		} `json:"cve"`
	} `json:"vulnerabilities"`
}

// Fetch implements Client.
func (c *NVDClient) Fetch(ctx context.Context, cveID string) (*models.CveEntry, error) {
	endpoint := fmt.Sprintf("%s?cveId=%s", c.BaseURL, url.QueryEscape(strings.ToUpper(cveID)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build nvd request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("apiKey", c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call nvd api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nvd api returned status %d for %s", resp.StatusCode, cveID)
	}

	var payload nvdResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode nvd response: %w", err)
	}

	if len(payload.Vulnerabilities) == 0 {
		return nil, fmt.Errorf("nvd api returned no record for %s", cveID)
	}

	cve := payload.Vulnerabilities[0].Cve

	entry := &models.CveEntry{
		CveID: strings.ToUpper(cve.ID),
	}

	for _, desc := range cve.Descriptions {
		if desc.Lang == "en" {
			entry.Description = desc.Value
			break
		}
	}

	if len(cve.Metrics.CvssMetricV31) > 0 {
		data := cve.Metrics.CvssMetricV31[0].CvssData
		entry.CvssV3Score = data.BaseScore
		entry.Severity = data.BaseSeverity
		entry.CvssVector = data.VectorString
	}

	if t := parseNVDTime(cve.Published); t != nil {
		entry.PublishedDate = t
	}
	if t := parseNVDTime(cve.LastModified); t != nil {
		entry.ModifiedDate = t
	}

	refs := make([]string, 0, len(cve.References))
	for _, ref := range cve.References {
		if ref.URL != "" {
			refs = append(refs, ref.URL)
		}
	}
	entry.References = models.StringList(refs)

	return entry, nil
}

// parseNVDTime handles the zone-less timestamp format NVD emits, with RFC3339
// as a fallback.
func parseNVDTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05.000", "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
