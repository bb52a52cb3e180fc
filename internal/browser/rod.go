package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultClickTimeout bounds how long a click waits for its target to become
// interactable before it is reported as intercepted.
const DefaultClickTimeout = 2 * time.Second

// NewDocument wraps a Rod page (top-level page or iframe frame) as a Document.
func NewDocument(page *rod.Page) Document {
	return &rodDocument{page: page, clickTimeout: DefaultClickTimeout}
}

type rodDocument struct {
	page         *rod.Page
	clickTimeout time.Duration
}

func (d *rodDocument) Frames() ([]FrameElement, error) {
	els, err := d.page.Elements("iframe")
	if err != nil {
		return nil, detached(err)
	}

	frames := make([]FrameElement, 0, len(els))
	for _, el := range els {
		frames = append(frames, &rodFrameElement{el: el, clickTimeout: d.clickTimeout})
	}
	return frames, nil
}

func (d *rodDocument) Query(selector string) ([]Element, error) {
	els, err := d.page.Elements(selector)
	if err != nil {
		return nil, detached(err)
	}

	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, clickTimeout: d.clickTimeout})
	}
	return out, nil
}

func (d *rodDocument) HTML() (string, error) {
	html, err := d.page.HTML()
	if err != nil {
		return "", detached(err)
	}
	return html, nil
}

type rodFrameElement struct {
	el           *rod.Element
	clickTimeout time.Duration
}

func (f *rodFrameElement) Attribute(name string) (string, error) {
	return attribute(f.el, name)
}

func (f *rodFrameElement) Visible() (bool, error) {
	v, err := f.el.Visible()
	if err != nil {
		return false, detached(err)
	}
	return v, nil
}

func (f *rodFrameElement) Document() (Document, error) {
	frame, err := f.el.Frame()
	if err != nil {
		return nil, detached(err)
	}
	return &rodDocument{page: frame, clickTimeout: f.clickTimeout}, nil
}

type rodElement struct {
	el           *rod.Element
	clickTimeout time.Duration
}

func (e *rodElement) Attribute(name string) (string, error) {
	return attribute(e.el, name)
}

func (e *rodElement) Visible() (bool, error) {
	v, err := e.el.Visible()
	if err != nil {
		return false, detached(err)
	}
	return v, nil
}

func (e *rodElement) Occluded() (bool, error) {
	return e.occluded(false)
}

func (e *rodElement) occluded(scrolled bool) (bool, error) {
	_, err := e.el.Interactable()
	if err == nil {
		return false, nil
	}

	var covered *rod.CoveredError
	if errors.As(err, &covered) {
		return true, nil
	}
	var noPointer *rod.NoPointerEventsError
	if errors.As(err, &noPointer) {
		return true, nil
	}
	// Outside the viewport the element has no shape to hit-test yet.
	var noShape *rod.InvisibleShapeError
	if errors.As(err, &noShape) && !scrolled {
		if err := e.el.ScrollIntoView(); err != nil {
			return false, detached(err)
		}
		return e.occluded(true)
	}
	return false, detached(err)
}

func (e *rodElement) ScrollIntoView() error {
	if err := e.el.ScrollIntoView(); err != nil {
		return detached(err)
	}
	return nil
}

func (e *rodElement) Click() error {
	err := e.el.Timeout(e.clickTimeout).Click(proto.InputMouseButtonLeft, 1)
	if err == nil {
		return nil
	}

	var covered *rod.CoveredError
	if errors.As(err, &covered) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrClickIntercepted, err)
	}
	return detached(err)
}

func (e *rodElement) Focus() error {
	if err := e.el.Focus(); err != nil {
		return detached(err)
	}
	return nil
}

func (e *rodElement) Value() (string, error) {
	v, err := e.el.Property("value")
	if err != nil {
		return "", detached(err)
	}
	return v.Str(), nil
}

// Press uses Element.Type, which focuses the element and dispatches
// keydown/keypress/keyup for the key.
func (e *rodElement) Press(r rune) error {
	return e.el.Type(input.Key(r))
}

func (e *rodElement) Clear() error {
	if err := e.el.SelectAllText(); err != nil {
		return detached(err)
	}
	if err := e.el.Type(input.Backspace); err != nil {
		return detached(err)
	}
	return nil
}

func attribute(el *rod.Element, name string) (string, error) {
	v, err := el.Attribute(name)
	if err != nil {
		return "", detached(err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

// detached maps Rod lookup errors on vanished nodes to ErrDetached.
func detached(err error) error {
	var notFound *rod.ObjectNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrDetached, err)
	}
	return err
}
