package browser

import (
	"time"

	"github.com/go-rod/rod"
)

// maxSettleDepth bounds the recursion of WaitForIFrames.
const maxSettleDepth = 4

// WaitForIFrames waits for DOM stability on the page and then on every
// visible iframe below it, so widget frames have rendered before the fill
// starts. Each document gets at most timeout; errors are ignored since the
// fill engine polls anyway.
func WaitForIFrames(page *rod.Page, timeout time.Duration) {
	waitForIFrames(page, timeout, 0)
}

func waitForIFrames(page *rod.Page, timeout time.Duration, depth int) {
	_ = page.Timeout(timeout).WaitDOMStable(300*time.Millisecond, 0)

	if depth >= maxSettleDepth {
		return
	}

	iframes, err := page.Elements("iframe")
	if err != nil {
		return
	}

	for _, iframe := range iframes {
		visible, _ := iframe.Visible()
		if !visible {
			continue
		}

		frame, err := iframe.Frame()
		if err != nil {
			continue
		}

		waitForIFrames(frame, timeout, depth+1)
	}
}
