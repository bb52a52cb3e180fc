package browser

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
)

// PageKeyboard sends keys through the top-level page's keyboard. CDP routes
// Input.dispatchKeyEvent to whichever frame holds focus, so the keys reach
// the focused widget input without going through an element handle.
//
// The events are the same ones Element.Press already sent. As a fallback it
// only helps when the first attempt lost focus; a widget that filters these
// events needs InsertTextKeyboard or XdotoolKeyboard.
type PageKeyboard struct {
	page *rod.Page
}

// NewPageKeyboard returns a NativeKeyboard driving the page's keyboard.
func NewPageKeyboard(page *rod.Page) *PageKeyboard {
	return &PageKeyboard{page: page}
}

// Press types one key into the focused element.
func (k *PageKeyboard) Press(r rune) error {
	return k.page.Keyboard.Type(input.Key(r))
}

// InsertTextKeyboard commits characters with Input.insertText, the path an
// IME uses. No key events are fired, only beforeinput/input, which some
// widgets accept while discarding synthetic key events.
type InsertTextKeyboard struct {
	page *rod.Page
}

// NewInsertTextKeyboard returns a NativeKeyboard that inserts text.
func NewInsertTextKeyboard(page *rod.Page) *InsertTextKeyboard {
	return &InsertTextKeyboard{page: page}
}

// Press inserts one character at the caret of the focused element.
func (k *InsertTextKeyboard) Press(r rune) error {
	return k.page.InsertText(string(r))
}
