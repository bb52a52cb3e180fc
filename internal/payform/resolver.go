package payform

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/grez-lucas/payfill/internal/browser"
)

// FieldResolver finds a usable input for a field inside one document.
type FieldResolver struct {
	interval time.Duration
	log      *zap.Logger
}

// NewFieldResolver creates a resolver polling every interval.
func NewFieldResolver(interval time.Duration, log *zap.Logger) *FieldResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &FieldResolver{interval: interval, log: log.Named("resolver")}
}

// Resolve tries the selectors in order and returns the first element that
// is present, visible and not covered by another element. It polls until
// timeout; ok=false means the field is not there.
func (r *FieldResolver) Resolve(ctx context.Context, doc browser.Document, selectors []string, timeout time.Duration) (el browser.Element, ok bool) {
	var selector string
	ok = poll(ctx, timeout, r.interval, func() bool {
		el, selector = usable(doc, selectors)
		return el != nil
	})
	if ok {
		r.log.Debug("field resolved", zap.String("selector", selector))
	}
	return el, ok
}

// Present reports whether any selector currently matches a visible
// element. It does not wait.
func Present(doc browser.Document, selectors []string) bool {
	for _, sel := range selectors {
		els, err := doc.Query(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if visible, err := el.Visible(); err == nil && visible {
				return true
			}
		}
	}
	return false
}

func usable(doc browser.Document, selectors []string) (browser.Element, string) {
	for _, sel := range selectors {
		els, err := doc.Query(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			visible, err := el.Visible()
			if err != nil || !visible {
				continue
			}
			occluded, err := el.Occluded()
			if err != nil || occluded {
				continue
			}
			return el, sel
		}
	}
	return nil, ""
}
