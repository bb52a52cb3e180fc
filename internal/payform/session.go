package payform

import "github.com/grez-lucas/payfill/internal/browser"

// Session is the browsing-context cursor of one fill. It always knows the
// top-level document and which document the engine is working in.
//
// Frames are entered with Enter and left by releasing the returned Guard,
// normally with defer so every exit path restores the previous context.
type Session struct {
	top   browser.Document
	stack []browser.Document
}

// NewSession starts a session on the top-level document.
func NewSession(top browser.Document) *Session {
	return &Session{top: top}
}

// Top returns the top-level document.
func (s *Session) Top() browser.Document { return s.top }

// Current returns the document the cursor points at.
func (s *Session) Current() browser.Document {
	if len(s.stack) == 0 {
		return s.top
	}
	return s.stack[len(s.stack)-1]
}

// Depth is the number of frames entered and not yet released.
func (s *Session) Depth() int { return len(s.stack) }

// AtTop reports whether the cursor is on the top-level document.
func (s *Session) AtTop() bool { return len(s.stack) == 0 }

// Enter moves the cursor into doc. The caller must Release the guard.
func (s *Session) Enter(doc browser.Document) *Guard {
	g := &Guard{s: s, depth: len(s.stack)}
	s.stack = append(s.stack, doc)
	return g
}

// Reset returns the cursor to the top-level document.
func (s *Session) Reset() {
	clear(s.stack)
	s.stack = s.stack[:0]
}

// Guard restores the context that was current before Enter.
type Guard struct {
	s        *Session
	depth    int
	released bool
}

// Release pops back to the context that was current when the guard was
// created. Releasing twice, or after a Reset, is a no-op.
func (g *Guard) Release() {
	if g.released {
		return
	}
	g.released = true
	if len(g.s.stack) > g.depth {
		clear(g.s.stack[g.depth:])
		g.s.stack = g.s.stack[:g.depth]
	}
}
