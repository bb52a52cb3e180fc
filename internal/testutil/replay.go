package testutil

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

const maxRedirects = 10

// Replayer serves recorded responses to a page through request hijacking.
type Replayer struct {
	exact map[string]*HAREntry
	// byPath indexes entries without their query string, the fallback for
	// URLs carrying cache busters or session ids.
	byPath map[string]*HAREntry

	passthrough bool
	log         *zap.Logger

	hits, misses atomic.Int64
}

// ReplayerOption configures a Replayer.
type ReplayerOption func(*Replayer)

// WithPassthrough lets unmatched requests reach the network. By default
// they get a 404.
func WithPassthrough(enabled bool) ReplayerOption {
	return func(r *Replayer) { r.passthrough = enabled }
}

// WithReplayLogger logs matched and unmatched requests at debug level.
func WithReplayLogger(log *zap.Logger) ReplayerOption {
	return func(r *Replayer) { r.log = log }
}

// NewReplayer indexes a recording. The first entry wins when a URL was
// recorded more than once.
func NewReplayer(har *HARLog, opts ...ReplayerOption) *Replayer {
	r := &Replayer{
		exact:  make(map[string]*HAREntry),
		byPath: make(map[string]*HAREntry),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.Named("replay")

	for i := range har.Entries {
		entry := &har.Entries[i]
		if _, ok := r.exact[entry.Request.URL]; !ok {
			r.exact[entry.Request.URL] = entry
		}
		if key, ok := pathKey(entry.Request.URL); ok {
			if _, exists := r.byPath[key]; !exists {
				r.byPath[key] = entry
			}
		}
	}
	return r
}

func pathKey(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	return u.Scheme + "://" + u.Host + u.Path, true
}

// lookup finds the entry for a URL, then follows recorded redirects.
func (r *Replayer) lookup(reqURL string) (*HAREntry, bool) {
	entry, ok := r.find(reqURL)
	if !ok {
		return nil, false
	}
	for range maxRedirects {
		if entry.Response.Status < 300 || entry.Response.Status >= 400 {
			break
		}
		location := header(entry.Response.Headers, "location")
		if location == "" {
			break
		}
		next, ok := r.find(location)
		if !ok {
			r.log.Debug("redirect target not recorded", zap.String("location", location))
			break
		}
		entry = next
	}
	return entry, true
}

func (r *Replayer) find(reqURL string) (*HAREntry, bool) {
	if e, ok := r.exact[reqURL]; ok {
		return e, true
	}
	if key, ok := pathKey(reqURL); ok {
		e, ok := r.byPath[key]
		return e, ok
	}
	return nil, false
}

// Middleware returns the hijack handler serving recorded responses.
func (r *Replayer) Middleware() func(*rod.Hijack) {
	return func(h *rod.Hijack) {
		reqURL := h.Request.URL().String()
		entry, ok := r.lookup(reqURL)
		if !ok {
			r.misses.Add(1)
			r.log.Debug("no recording", zap.String("url", reqURL))
			if r.passthrough {
				_ = h.LoadResponse(nil, true)
				return
			}
			payload := h.Response.Payload()
			payload.ResponseCode = 404
			payload.ResponseHeaders = []*proto.FetchHeaderEntry{{Name: "Content-Type", Value: "text/plain"}}
			payload.Body = []byte("no recording for " + reqURL)
			return
		}
		r.hits.Add(1)
		r.log.Debug("replayed", zap.String("url", reqURL), zap.Int("status", entry.Response.Status))
		serve(h, entry.Response)
	}
}

// Attach routes every request of page through the replayer. The returned
// router must be stopped when the page is done.
func (r *Replayer) Attach(page *rod.Page) (*rod.HijackRouter, error) {
	router := page.HijackRequests()
	if err := router.Add("*", "", r.Middleware()); err != nil {
		return nil, fmt.Errorf("replay: add route: %w", err)
	}
	go router.Run()
	return router, nil
}

func serve(h *rod.Hijack, resp HARResponse) {
	body := []byte(resp.Content.Text)
	if resp.Content.Encoding == "base64" {
		if decoded, err := base64.StdEncoding.DecodeString(resp.Content.Text); err == nil {
			body = decoded
		}
	}

	var headers []*proto.FetchHeaderEntry
	for _, hd := range resp.Headers {
		switch strings.ToLower(hd.Name) {
		case "content-encoding", "content-length", "location":
			continue
		}
		headers = append(headers, &proto.FetchHeaderEntry{Name: hd.Name, Value: hd.Value})
	}
	if header(resp.Headers, "content-type") == "" && resp.Content.MimeType != "" {
		headers = append(headers, &proto.FetchHeaderEntry{Name: "Content-Type", Value: resp.Content.MimeType})
	}

	payload := h.Response.Payload()
	payload.ResponseCode = resp.Status
	payload.ResponseHeaders = headers
	payload.Body = body
}

func header(headers []HARHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Stats reports the index size and how many requests were served or missed.
func (r *Replayer) Stats() map[string]int {
	return map[string]int{
		"exact_matches": len(r.exact),
		"path_matches":  len(r.byPath),
		"hits":          int(r.hits.Load()),
		"misses":        int(r.misses.Load()),
	}
}
