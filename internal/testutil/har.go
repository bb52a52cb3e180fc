// Package testutil records and replays checkout pages so payment widgets
// can be exercised in a real browser without reaching the network.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"
)

// HARLog is the subset of the HAR format payfill records and replays.
type HARLog struct {
	Entries []HAREntry `json:"entries"`
}

// HAREntry is one request and the response served for it.
type HAREntry struct {
	Request  HARRequest  `json:"request"`
	Response HARResponse `json:"response"`
}

type HARRequest struct {
	Method  string      `json:"method"`
	URL     string      `json:"url"`
	Headers []HARHeader `json:"headers,omitempty"`
	Body    string      `json:"body,omitempty"`
}

type HARResponse struct {
	Status  int         `json:"status"`
	Headers []HARHeader `json:"headers,omitempty"`
	Content HARContent  `json:"content"`
}

type HARHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type HARContent struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	// Encoding is "base64" when Text holds binary content.
	Encoding string `json:"encoding,omitempty"`
	Size     int    `json:"size,omitempty"`
}

// devtoolsHAR is the HAR 1.2 document exported by Chrome DevTools: entries
// are wrapped in "log" and request bodies live in postData.
type devtoolsHAR struct {
	Log struct {
		Entries []struct {
			Request struct {
				Method   string      `json:"method"`
				URL      string      `json:"url"`
				Headers  []HARHeader `json:"headers,omitempty"`
				PostData *struct {
					Text string `json:"text"`
				} `json:"postData,omitempty"`
			} `json:"request"`
			Response HARResponse `json:"response"`
		} `json:"entries"`
	} `json:"log"`
}

// Page is one document served by a synthetic recording.
type Page struct {
	URL  string
	HTML string
}

// NewHAR builds a recording serving each page as text/html with status 200.
func NewHAR(pages ...Page) *HARLog {
	har := &HARLog{Entries: make([]HAREntry, 0, len(pages))}
	for _, p := range pages {
		har.Entries = append(har.Entries, HAREntry{
			Request: HARRequest{Method: "GET", URL: p.URL},
			Response: HARResponse{
				Status:  200,
				Headers: []HARHeader{{Name: "Content-Type", Value: "text/html; charset=utf-8"}},
				Content: HARContent{MimeType: "text/html", Text: p.HTML, Size: len(p.HTML)},
			},
		})
	}
	return har
}

// LoadHAR reads a recording, accepting both the DevTools export and the
// simplified format written by SaveHAR.
func LoadHAR(path string) (*HARLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read HAR file: %w", err)
	}

	var exported devtoolsHAR
	if err := json.Unmarshal(data, &exported); err == nil && len(exported.Log.Entries) > 0 {
		har := &HARLog{Entries: make([]HAREntry, len(exported.Log.Entries))}
		for i, e := range exported.Log.Entries {
			req := HARRequest{Method: e.Request.Method, URL: e.Request.URL, Headers: e.Request.Headers}
			if e.Request.PostData != nil {
				req.Body = e.Request.PostData.Text
			}
			har.Entries[i] = HAREntry{Request: req, Response: e.Response}
		}
		return har, nil
	}

	var har HARLog
	if err := json.Unmarshal(data, &har); err != nil {
		return nil, fmt.Errorf("parse HAR JSON: %w", err)
	}
	return &har, nil
}

// SaveHAR writes a recording in the simplified format.
func SaveHAR(path string, har *HARLog) error {
	data, err := json.MarshalIndent(har, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal HAR: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write HAR file: %w", err)
	}
	return nil
}

// MustLoadHAR loads a recording and fails the test if it cannot.
func MustLoadHAR(t *testing.T, path string) *HARLog {
	t.Helper()
	har, err := LoadHAR(path)
	if err != nil {
		t.Fatalf("failed to load HAR file %s: %v", path, err)
	}
	return har
}
