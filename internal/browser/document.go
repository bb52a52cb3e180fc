// Package browser provides the browsing-context abstraction the fill engine
// runs on, and its implementation with Rod.
package browser

import "errors"

var (
	// ErrDetached is returned when a frame or element vanished between the
	// moment it was listed and the moment it was used.
	ErrDetached = errors.New("browser: context detached")

	// ErrClickIntercepted is returned by Element.Click when another element
	// receives the click.
	ErrClickIntercepted = errors.New("browser: click intercepted")
)

// Document is a single browsing context: the top-level page or the content
// document of an iframe. Implementations must not wait: every call reflects
// the DOM at the time of the call.
type Document interface {
	// Frames lists the iframe elements of this document, in DOM order.
	Frames() ([]FrameElement, error)

	// Query returns the elements matching a CSS selector, possibly none.
	Query(selector string) ([]Element, error)

	// HTML returns the serialized document.
	HTML() (string, error)
}

// FrameElement is an <iframe> element as seen from its parent document.
type FrameElement interface {
	// Attribute returns the attribute value, or "" when absent.
	Attribute(name string) (string, error)
	Visible() (bool, error)
	// Document enters the frame and returns its content document.
	Document() (Document, error)
}

// Element is an element of a document that can receive input.
type Element interface {
	Attribute(name string) (string, error)
	Visible() (bool, error)
	// Occluded reports whether another element covers this one at its
	// click point.
	Occluded() (bool, error)
	ScrollIntoView() error
	// Click clicks the element. Returns ErrClickIntercepted when the click
	// would land on another element.
	Click() error
	// Focus focuses the element programmatically.
	Focus() error
	// Value returns the current value of the input.
	Value() (string, error)
	// Press dispatches one key through the DOM input-event path.
	Press(r rune) error
	// Clear selects the whole value and deletes it with one key press.
	Clear() error
}

// NativeKeyboard injects keystrokes into whatever currently holds native
// focus, bypassing the DOM event model. It is optional: platforms without
// one degrade to failed verification.
type NativeKeyboard interface {
	Press(r rune) error
}

// KeyTab advances focus to the next field.
const KeyTab = '\t'
