package diag

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-rod/rod"
	"go.uber.org/zap"

	"github.com/grez-lucas/payfill/internal/browser"
)

// Artifacts are the files written by Capture. Empty paths were not written.
type Artifacts struct {
	Screenshot string `json:"screenshot,omitempty"`
	DOM        string `json:"dom,omitempty"`
	Frames     string `json:"frames,omitempty"`
}

// Capture saves the state of a page for offline triage: a screenshot, the
// flattened DOM with shadow roots and iframes inlined, and the rendered
// frame tree. Card data is redacted from every text artifact. A failing
// step is logged and does not prevent the others.
func Capture(page *rod.Page, dir, name string, probes []Probe, maxDepth int, log *zap.Logger) (*Artifacts, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("capture")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}
	var out Artifacts

	// Screenshot before any DOM work, so it shows what the fill saw.
	if buf, err := page.Screenshot(true, nil); err != nil {
		log.Warn("screenshot failed", zap.Error(err))
	} else {
		path := filepath.Join(dir, name+".png")
		if err := os.WriteFile(path, buf, 0o644); err != nil {
			log.Warn("save screenshot", zap.Error(err))
		} else {
			out.Screenshot = path
		}
	}

	if flat, err := browser.FlattenDocument(page); err != nil {
		log.Warn("flatten document failed", zap.Error(err))
	} else {
		path := filepath.Join(dir, name+".html")
		if err := os.WriteFile(path, []byte(RedactCardData(flat.HTML)), 0o644); err != nil {
			log.Warn("save dom", zap.Error(err))
		} else {
			out.DOM = path
			log.Debug("dom captured", zap.Int("shadow_roots", flat.ShadowCount), zap.Int("iframes", flat.IframeCount))
		}
	}

	var tree bytes.Buffer
	if err := Render(&tree, DumpFrameTree(browser.NewDocument(page), probes, maxDepth)); err != nil {
		log.Warn("render frame tree", zap.Error(err))
	} else {
		path := filepath.Join(dir, name+".frames.txt")
		if err := os.WriteFile(path, []byte(RedactCardData(tree.String())), 0o644); err != nil {
			log.Warn("save frame tree", zap.Error(err))
		} else {
			out.Frames = path
		}
	}

	if out == (Artifacts{}) {
		return nil, fmt.Errorf("capture %s: nothing written", name)
	}
	log.Info("page captured", zap.String("dir", dir), zap.String("name", name))
	return &out, nil
}
