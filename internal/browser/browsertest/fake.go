// Package browsertest provides an in-memory frame tree implementing the
// browser interfaces, for testing the fill engine without Chrome.
package browsertest

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/grez-lucas/payfill/internal/browser"
)

// Page is a fake document holding inputs and child frames.
type Page struct {
	Children []*Frame
	Inputs   []*Input

	// Scans counts Frames() calls on this page.
	Scans int

	kb *Keyboard
}

// Frame is a fake <iframe> element.
type Frame struct {
	Src     string
	Title   string
	Hidden  bool
	Content *Page

	// ShowAfterScans keeps the frame out of its parent's listing until the
	// parent has been scanned that many times, simulating late insertion.
	ShowAfterScans int
	// Detached makes every Document call fail with browser.ErrDetached.
	Detached bool
	// FailEnters makes the first N Document calls fail with ErrDetached.
	FailEnters int

	// Entered counts Document calls.
	Entered int
}

// Input is a fake <input>.
type Input struct {
	// Selectors lists the CSS selectors this input matches, verbatim.
	Selectors []string
	// Attrs are rendered by Page.HTML and returned by Attribute.
	Attrs map[string]string

	Hidden         bool
	Occluded       bool
	InterceptClick bool

	// IgnoreSynthetic drops keys pressed through the DOM event path.
	IgnoreSynthetic bool
	// DOMKeyLimit drops DOM key presses after the first N when > 0.
	DOMKeyLimit int
	// IgnoreNative drops keys from the native keyboard.
	IgnoreNative bool
	// Format rewrites the value after every accepted keystroke.
	Format func(string) string
	// MaxLength truncates the value when > 0.
	MaxLength int

	// AppearAfterQueries hides the input from the first N matching queries.
	AppearAfterQueries int

	Value string

	Clicks        int
	Focuses       int
	Scrolls       int
	DOMPresses    int
	NativePresses int
	Clears        int
	Blurs         int
	// Queries counts Query calls with a selector this input matches.
	Queries int
}

// NewPage builds a page from its inputs and frames.
func NewPage(inputs []*Input, frames ...*Frame) *Page {
	return &Page{Inputs: inputs, Children: frames}
}

// NewFrame builds a frame hosting content.
func NewFrame(src, title string, content *Page) *Frame {
	return &Frame{Src: src, Title: title, Content: content}
}

// NewInput builds an input matching the given selectors.
func NewInput(selectors ...string) *Input {
	return &Input{Selectors: selectors, Attrs: map[string]string{}}
}

// Keyboard is the fake native keyboard. It tracks which input holds focus
// across the whole tree.
type Keyboard struct {
	focused *Input
	Presses int
}

// NewTree links a top page to a keyboard and returns both. The keyboard is
// shared by every page reached from top.
func NewTree(top *Page) (*Page, *Keyboard) {
	kb := &Keyboard{}
	top.kb = kb
	return top, kb
}

// Focused returns the input holding focus, or nil.
func (k *Keyboard) Focused() *Input { return k.focused }

// Press implements browser.NativeKeyboard.
func (k *Keyboard) Press(r rune) error {
	k.Presses++
	if k.focused == nil {
		return errors.New("browsertest: no element has focus")
	}
	in := k.focused
	in.NativePresses++
	if in.IgnoreNative {
		return nil
	}
	k.key(in, r)
	return nil
}

func (k *Keyboard) key(in *Input, r rune) {
	if r == browser.KeyTab {
		in.Blurs++
		k.focused = nil
		return
	}
	in.Value += string(r)
	if in.Format != nil {
		in.Value = in.Format(in.Value)
	}
	if in.MaxLength > 0 && len(in.Value) > in.MaxLength {
		in.Value = in.Value[:in.MaxLength]
	}
}

func (p *Page) keyboard() *Keyboard {
	if p.kb == nil {
		p.kb = &Keyboard{}
	}
	return p.kb
}

// Frames implements browser.Document.
func (p *Page) Frames() ([]browser.FrameElement, error) {
	p.Scans++
	var out []browser.FrameElement
	for _, f := range p.Children {
		if f.ShowAfterScans > 0 && p.Scans <= f.ShowAfterScans {
			continue
		}
		out = append(out, &frameHandle{f: f, parent: p})
	}
	return out, nil
}

// Query implements browser.Document.
func (p *Page) Query(selector string) ([]browser.Element, error) {
	var out []browser.Element
	for _, in := range p.Inputs {
		if !in.matches(selector) {
			continue
		}
		in.Queries++
		if in.AppearAfterQueries > 0 && in.Queries <= in.AppearAfterQueries {
			continue
		}
		out = append(out, &element{in: in, kb: p.keyboard()})
	}
	return out, nil
}

// HTML implements browser.Document.
func (p *Page) HTML() (string, error) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, in := range p.Inputs {
		b.WriteString("<input")
		keys := make([]string, 0, len(in.Attrs))
		for k := range in.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%q", k, in.Attrs[k])
		}
		fmt.Fprintf(&b, " value=%q>", in.Value)
	}
	for _, f := range p.Children {
		fmt.Fprintf(&b, "<iframe src=%q title=%q></iframe>", f.Src, f.Title)
	}
	b.WriteString("</body></html>")
	return b.String(), nil
}

func (in *Input) matches(selector string) bool {
	for _, s := range in.Selectors {
		if s == selector {
			return true
		}
	}
	return false
}

type frameHandle struct {
	f      *Frame
	parent *Page
}

func (h *frameHandle) Attribute(name string) (string, error) {
	switch name {
	case "src":
		return h.f.Src, nil
	case "title":
		return h.f.Title, nil
	}
	return "", nil
}

func (h *frameHandle) Visible() (bool, error) {
	if h.f.Detached {
		return false, browser.ErrDetached
	}
	return !h.f.Hidden, nil
}

func (h *frameHandle) Document() (browser.Document, error) {
	h.f.Entered++
	if h.f.Detached {
		return nil, browser.ErrDetached
	}
	if h.f.FailEnters > 0 {
		h.f.FailEnters--
		return nil, browser.ErrDetached
	}
	if h.f.Content == nil {
		h.f.Content = &Page{}
	}
	h.f.Content.kb = h.parent.keyboard()
	return h.f.Content, nil
}

type element struct {
	in *Input
	kb *Keyboard
}

func (e *element) Attribute(name string) (string, error) {
	return e.in.Attrs[name], nil
}

func (e *element) Visible() (bool, error)  { return !e.in.Hidden, nil }
func (e *element) Occluded() (bool, error) { return e.in.Occluded, nil }

func (e *element) ScrollIntoView() error {
	e.in.Scrolls++
	return nil
}

func (e *element) Click() error {
	e.in.Clicks++
	if e.in.InterceptClick {
		return browser.ErrClickIntercepted
	}
	e.kb.focused = e.in
	return nil
}

func (e *element) Focus() error {
	e.in.Focuses++
	e.kb.focused = e.in
	return nil
}

func (e *element) Value() (string, error) { return e.in.Value, nil }

func (e *element) Press(r rune) error {
	e.in.DOMPresses++
	e.kb.focused = e.in
	if e.in.IgnoreSynthetic {
		return nil
	}
	if e.in.DOMKeyLimit > 0 && e.in.DOMPresses > e.in.DOMKeyLimit {
		return nil
	}
	e.kb.key(e.in, r)
	return nil
}

func (e *element) Clear() error {
	e.in.Clears++
	e.kb.focused = e.in
	if e.in.IgnoreSynthetic {
		return nil
	}
	e.in.Value = ""
	return nil
}
