package browser

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/go-rod/rod"
)

// Keyboard kinds accepted by NewKeyboard.
const (
	KeyboardNone       = "none"
	// KeyboardCDP re-focuses and resends the same key events.
	KeyboardCDP        = "cdp"
	KeyboardInsertText = "insert-text"
	KeyboardXdotool    = "xdotool"
)

// NewKeyboard builds the NativeKeyboard named by kind. KeyboardNone returns a
// nil keyboard, which disables the typing fallback.
func NewKeyboard(kind string, page *rod.Page, display string) (NativeKeyboard, error) {
	switch kind {
	case "", KeyboardNone:
		return nil, nil
	case KeyboardCDP:
		return NewPageKeyboard(page), nil
	case KeyboardInsertText:
		return NewInsertTextKeyboard(page), nil
	case KeyboardXdotool:
		kb, err := NewXdotoolKeyboard(display)
		if err != nil {
			return nil, err
		}
		return kb, nil
	default:
		return nil, fmt.Errorf("browser: unknown keyboard %q", kind)
	}
}

// XdotoolKeyboard types through the X server with xdotool, so the keys are
// indistinguishable from a physical keyboard. It needs a headful browser
// whose window holds X input focus (Xvfb works).
type XdotoolKeyboard struct {
	bin     string
	display string
	run     func(cmd *exec.Cmd) error
}

// NewXdotoolKeyboard locates the xdotool binary. An empty display uses the
// process' DISPLAY.
func NewXdotoolKeyboard(display string) (*XdotoolKeyboard, error) {
	bin, err := exec.LookPath("xdotool")
	if err != nil {
		return nil, fmt.Errorf("browser: xdotool: %w", err)
	}
	return &XdotoolKeyboard{bin: bin, display: display, run: (*exec.Cmd).Run}, nil
}

// Press sends one key to the window that has X input focus.
func (k *XdotoolKeyboard) Press(r rune) error {
	cmd := exec.Command(k.bin, xdotoolArgs(r)...)
	cmd.Env = os.Environ()
	if k.display != "" {
		cmd.Env = append(cmd.Env, "DISPLAY="+k.display)
	}
	if err := k.run(cmd); err != nil {
		return fmt.Errorf("browser: xdotool %q: %w", r, err)
	}
	return nil
}

func xdotoolArgs(r rune) []string {
	switch r {
	case KeyTab:
		return []string{"key", "--clearmodifiers", "Tab"}
	case '\r', '\n':
		return []string{"key", "--clearmodifiers", "Return"}
	default:
		return []string{"type", "--clearmodifiers", "--delay", "0", "--", string(r)}
	}
}
