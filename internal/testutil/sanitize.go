package testutil

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/grez-lucas/payfill/internal/diag"
)

const redacted = "[REDACTED]"

// sensitiveKeys match query, form and JSON keys whose values must not be
// committed: card data, then credentials and session material.
var sensitiveKeys = compile(
	`card\[?(number|cvc|exp)`,
	`card%5b(number|cvc|exp)`,
	`^(number|cvc|cvv|csc)$`,
	`exp_(month|year)`,
	`payment_method_data`,
	`client_secret`,
	`password`,
	`secret`,
	`token`,
	`session`,
	`auth`,
	`api_?key`,
	`credential`,
	`private_key`,
)

// sensitiveHeaders are always redacted.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-csrf-token":        true,
	"x-xsrf-token":        true,
	"proxy-authorization": true,
	"stripe-account":      true,
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// SanitizeHAR returns a copy of har with card data, credentials and
// session material redacted from URLs, headers and bodies.
func SanitizeHAR(har *HARLog) *HARLog {
	out := &HARLog{Entries: make([]HAREntry, len(har.Entries))}
	for i, e := range har.Entries {
		out.Entries[i] = HAREntry{
			Request: HARRequest{
				Method:  e.Request.Method,
				URL:     sanitizeURL(e.Request.URL),
				Headers: sanitizeHeaders(e.Request.Headers),
				Body:    sanitizeBody(e.Request.Body),
			},
			Response: HARResponse{
				Status:  e.Response.Status,
				Headers: sanitizeHeaders(e.Response.Headers),
				Content: sanitizeContent(e.Response.Content),
			},
		}
	}
	return out
}

func sanitizeContent(c HARContent) HARContent {
	if c.Encoding == "base64" {
		return c
	}
	c.Text = sanitizeBody(c.Text)
	return c
}

func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	changed := false
	for key := range q {
		if isSensitiveKey(key) {
			q.Set(key, redacted)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func sanitizeHeaders(headers []HARHeader) []HARHeader {
	out := make([]HARHeader, len(headers))
	for i, h := range headers {
		out[i] = h
		if sensitiveHeaders[strings.ToLower(h.Name)] || isSensitiveKey(h.Name) {
			out[i].Value = redacted
		}
	}
	return out
}

// SanitizeText redacts card data from free text such as HTML fixtures.
func SanitizeText(s string) string {
	return diag.RedactCardData(s)
}

// ContainsCardData reports whether s still holds a valid card number.
func ContainsCardData(s string) bool {
	return diag.ContainsCardNumber(s)
}

func sanitizeBody(body string) string {
	if body == "" {
		return body
	}
	trimmed := strings.TrimSpace(body)
	switch {
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		body = sanitizeJSON(body)
	case strings.Contains(body, "=") && !strings.Contains(body, "<"):
		body = sanitizeForm(body)
	}
	return diag.RedactCardData(body)
}

func sanitizeForm(body string) string {
	values, err := url.ParseQuery(body)
	if err != nil {
		return body
	}
	for key := range values {
		if isSensitiveKey(key) {
			values.Set(key, redacted)
		}
	}
	return values.Encode()
}

var jsonPair = regexp.MustCompile(`"([^"]+)"\s*:\s*("(?:[^"\\]|\\.)*"|[^,}\]\s]+)`)

func sanitizeJSON(body string) string {
	return jsonPair.ReplaceAllStringFunc(body, func(m string) string {
		sub := jsonPair.FindStringSubmatch(m)
		if !isSensitiveKey(sub[1]) {
			return m
		}
		return `"` + sub[1] + `": "` + redacted + `"`
	})
}

func isSensitiveKey(key string) bool {
	for _, re := range sensitiveKeys {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}
