package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nvdSampleResponse = `{
	"vulnerabilities": [{
		"cve": {
			"id": "CVE-2024-1234",
			"published": "2024-01-15T10:00:00.000",
			"lastModified": "2024-02-01T08:30:00.000",
			"descriptions": [
				{"lang": "es", "value": "descripcion"},
				{"lang": "en", "value": "A heap overflow in the example parser."}
			],
			"metrics": {
				"cvssMetricV31": [{
					"cvssData": {
						"baseScore": 9.8,
						"baseSeverity": "CRITICAL",
						"vectorString": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"
					}
				}]
			},
			"references": [
				{"url": "https://example.com/advisory"},
				{"url": ""}
			]
		}
	}]
}`

func TestNVDClientFetch(t *testing.T) {
	var gotQuery, gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("cveId")
		gotAPIKey = r.Header.Get("apiKey")
		w.Write([]byte(nvdSampleResponse))
	}))
	defer srv.Close()

	client := NewNVDClient(srv.URL, "secret-key")
	entry, err := client.Fetch(context.Background(), "cve-2024-1234")
	require.NoError(t, err)

	assert.Equal(t, "CVE-2024-1234", gotQuery)
	assert.Equal(t, "secret-key", gotAPIKey)

	assert.Equal(t, "CVE-2024-1234", entry.CveID)
	assert.Equal(t, "A heap overflow in the example parser.", entry.Description)
	assert.Equal(t, 9.8, entry.CvssV3Score)
	assert.Equal(t, "CRITICAL", entry.Severity)
	assert.Equal(t, "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", entry.CvssVector)
	require.NotNil(t, entry.PublishedDate)
	assert.Equal(t, 2024, entry.PublishedDate.Year())
	assert.Equal(t, []string{"https://example.com/advisory"}, []string(entry.References))
}

func TestNVDClientFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cveId") {
		case "CVE-2024-0404":
			w.Write([]byte(`{"vulnerabilities": []}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	client := NewNVDClient(srv.URL, "")

	_, err := client.Fetch(context.Background(), "CVE-2024-0404")
	assert.ErrorContains(t, err, "no record")

	_, err = client.Fetch(context.Background(), "CVE-2024-9999")
	assert.ErrorContains(t, err, "status 403")
}
