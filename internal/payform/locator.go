package payform

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/grez-lucas/payfill/internal/browser"
)

// FrameInfo describes an iframe as seen from its parent. It is rebuilt on
// every scan and never cached.
type FrameInfo struct {
	Visible bool
	Src     string
	Title   string
}

// FrameMatcher decides whether a frame is the one being looked for. It is
// called with the session cursor inside doc.
type FrameMatcher func(info FrameInfo, doc browser.Document) bool

// LocateQuery describes one frame search.
type LocateQuery struct {
	// Name labels the search in logs.
	Name string
	// Exclusions are case-insensitive substrings of src or title. Matching
	// frames and their subtrees are skipped.
	Exclusions []string
	Match      FrameMatcher
	MaxDepth   int
	Timeout    time.Duration
}

type frameStep struct {
	index int
	src   string
	title string
}

// FrameHandle addresses a frame by the path of signatures leading to it
// from the top document. It holds no live browser objects and is resolved
// again every time it is used.
type FrameHandle struct {
	steps []frameStep
}

// Depth is the nesting level of the frame, 1 for a child of the top document.
func (h FrameHandle) Depth() int { return len(h.steps) }

func (h FrameHandle) String() string {
	if len(h.steps) == 0 {
		return "top"
	}
	parts := make([]string, len(h.steps))
	for i, s := range h.steps {
		parts[i] = fmt.Sprintf("iframe[%d](title=%q)", s.index, s.title)
	}
	return strings.Join(parts, " > ")
}

// resolve walks from top to the frame. A step matches the frame at the
// recorded index when its signature is unchanged, otherwise the first
// visible sibling with the same signature, so frames re-inserted by the
// widget are found again.
func (h FrameHandle) resolve(top browser.Document) (browser.Document, error) {
	doc := top
	for depth, step := range h.steps {
		frames, err := doc.Frames()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: list frames at depth %d: %v", ErrFrameGone, h, depth+1, err)
		}
		fe := pickFrame(frames, step)
		if fe == nil {
			return nil, fmt.Errorf("%w: %s: no frame at depth %d", ErrFrameGone, h, depth+1)
		}
		next, err := fe.Document()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: enter depth %d: %v", ErrFrameGone, h, depth+1, err)
		}
		doc = next
	}
	return doc, nil
}

func pickFrame(frames []browser.FrameElement, step frameStep) browser.FrameElement {
	same := func(fe browser.FrameElement) bool {
		info, err := describe(fe)
		return err == nil && info.Visible && info.Src == step.src && info.Title == step.title
	}
	if step.index < len(frames) && same(frames[step.index]) {
		return frames[step.index]
	}
	for _, fe := range frames {
		if same(fe) {
			return fe
		}
	}
	return nil
}

func describe(fe browser.FrameElement) (FrameInfo, error) {
	visible, err := fe.Visible()
	if err != nil {
		return FrameInfo{}, err
	}
	src, err := fe.Attribute("src")
	if err != nil {
		return FrameInfo{}, err
	}
	title, err := fe.Attribute("title")
	if err != nil {
		return FrameInfo{}, err
	}
	return FrameInfo{Visible: visible, Src: src, Title: title}, nil
}

func excluded(info FrameInfo, exclusions []string) bool {
	src := strings.ToLower(info.Src)
	title := strings.ToLower(info.Title)
	for _, ex := range exclusions {
		ex = strings.ToLower(ex)
		if ex == "" {
			continue
		}
		if strings.Contains(src, ex) || strings.Contains(title, ex) {
			return true
		}
	}
	return false
}

// FrameLocator searches the frame tree of a session for a frame satisfying
// a predicate.
type FrameLocator struct {
	sess    *Session
	backoff time.Duration
	log     *zap.Logger
}

// NewFrameLocator creates a locator scanning from the session's top
// document, waiting backoff between scans.
func NewFrameLocator(sess *Session, backoff time.Duration, log *zap.Logger) *FrameLocator {
	if log == nil {
		log = zap.NewNop()
	}
	return &FrameLocator{sess: sess, backoff: backoff, log: log.Named("locator")}
}

// Locate scans breadth-first until a frame matches or the query times out.
// Not finding a frame is a normal outcome and is reported by ok=false.
func (l *FrameLocator) Locate(ctx context.Context, q LocateQuery) (FrameHandle, bool) {
	var (
		found FrameHandle
		scans int
	)
	start := time.Now()
	ok := poll(ctx, q.Timeout, l.backoff, func() bool {
		scans++
		var hit bool
		found, hit = l.scan(q)
		return hit
	})
	if ok {
		l.log.Debug("frame located",
			zap.String("query", q.Name),
			zap.Stringer("frame", found),
			zap.Int("scans", scans),
			zap.Duration("elapsed", time.Since(start)))
		return found, true
	}
	l.log.Debug("frame not located",
		zap.String("query", q.Name),
		zap.Int("scans", scans),
		zap.Duration("elapsed", time.Since(start)))
	return FrameHandle{}, false
}

type candidate struct {
	doc   browser.Document
	steps []frameStep
}

// scan makes one breadth-first pass over the tree, level by level up to
// MaxDepth. Frames that go stale mid-scan are skipped.
func (l *FrameLocator) scan(q LocateQuery) (FrameHandle, bool) {
	level := []candidate{{doc: l.sess.Top()}}
	for depth := 1; depth <= q.MaxDepth && len(level) > 0; depth++ {
		var next []candidate
		for _, parent := range level {
			frames, err := parent.doc.Frames()
			if err != nil {
				l.log.Debug("list frames", zap.Int("depth", depth), zap.Error(err))
				continue
			}
			for i, fe := range frames {
				info, err := describe(fe)
				if err != nil {
					l.log.Debug("stale frame", zap.Int("depth", depth), zap.Int("index", i), zap.Error(err))
					continue
				}
				if !info.Visible || excluded(info, q.Exclusions) {
					continue
				}
				doc, err := fe.Document()
				if err != nil {
					l.log.Debug("enter frame", zap.Int("depth", depth), zap.String("title", info.Title), zap.Error(err))
					continue
				}
				steps := append(slices.Clone(parent.steps), frameStep{index: i, src: info.Src, title: info.Title})
				if l.matchIn(doc, info, q.Match) {
					return FrameHandle{steps: steps}, true
				}
				next = append(next, candidate{doc: doc, steps: steps})
			}
		}
		level = next
	}
	return FrameHandle{}, false
}

func (l *FrameLocator) matchIn(doc browser.Document, info FrameInfo, match FrameMatcher) bool {
	g := l.sess.Enter(doc)
	defer g.Release()
	return match(info, doc)
}
