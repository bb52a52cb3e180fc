package diag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// InputSummary lists the attributes selectors are written against. The
// value itself is never kept, only its length.
type InputSummary struct {
	Type         string
	Name         string
	ID           string
	Autocomplete string
	StableName   string
	Class        string
	Placeholder  string
	AriaLabel    string
	ValueLen     int
}

func (s InputSummary) String() string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, fmt.Sprintf("%s=%q", k, v))
		}
	}
	add("type", s.Type)
	add("name", s.Name)
	add("id", s.ID)
	add("autocomplete", s.Autocomplete)
	add("data-elements-stable-field-name", s.StableName)
	add("class", s.Class)
	add("placeholder", s.Placeholder)
	add("aria-label", s.AriaLabel)
	parts = append(parts, "len="+strconv.Itoa(s.ValueLen))
	return "input " + strings.Join(parts, " ")
}

// SummarizeInputs parses a serialized document and summarizes its input
// elements in document order. Hidden inputs are skipped.
func SummarizeInputs(html string) ([]InputSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var out []InputSummary
	doc.Find("input").Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(s.AttrOr("type", "text"))
		if typ == "hidden" {
			return
		}
		out = append(out, InputSummary{
			Type:         typ,
			Name:         s.AttrOr("name", ""),
			ID:           s.AttrOr("id", ""),
			Autocomplete: s.AttrOr("autocomplete", ""),
			StableName:   s.AttrOr("data-elements-stable-field-name", ""),
			Class:        strings.TrimSpace(s.AttrOr("class", "")),
			Placeholder:  s.AttrOr("placeholder", ""),
			AriaLabel:    s.AttrOr("aria-label", ""),
			ValueLen:     valueLen(s),
		})
	})
	return out, nil
}

// valueLen prefers the live length recorded by browser.FlattenDocument,
// since the value attribute only holds the initial value.
func valueLen(s *goquery.Selection) int {
	if v, ok := s.Attr("data-live-value-length"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return len([]rune(s.AttrOr("value", "")))
}
