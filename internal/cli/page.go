package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"go.uber.org/zap"

	"github.com/grez-lucas/payfill/internal/browser"
	"github.com/grez-lucas/payfill/internal/testutil"
)

var errNoTarget = errors.New("one of --url or --replay is required")

// target is where a command opens its page: a live URL, a recorded HAR
// served through request hijacking, or both (URL inside the recording).
type target struct {
	url    string
	replay string
}

func (t target) validate() error {
	if t.url == "" && t.replay == "" {
		return errNoTarget
	}
	return nil
}

// session is an opened page plus everything that must be torn down with it.
type session struct {
	inst   *browser.Instance
	page   *rod.Page
	router *rod.HijackRouter
	log    *zap.Logger
}

func (s *session) close() {
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			s.log.Debug("stop replay router", zap.Error(err))
		}
	}
	if err := s.inst.Close(); err != nil {
		s.log.Warn("close browser", zap.Error(err))
	}
}

// open launches Chrome, attaches the replayer when asked and navigates to
// the target, waiting for nested frames to settle.
func (a *app) open(ctx context.Context, t target) (*session, error) {
	var replayer *testutil.Replayer
	url := t.url
	if t.replay != "" {
		har, err := testutil.LoadHAR(t.replay)
		if err != nil {
			return nil, err
		}
		if url == "" {
			if len(har.Entries) == 0 {
				return nil, fmt.Errorf("replay %s: no entries", t.replay)
			}
			url = har.Entries[0].Request.URL
		}
		replayer = testutil.NewReplayer(har, testutil.WithReplayLogger(a.log))
	}

	inst, err := browser.Launch(a.cfg.Browser, a.log)
	if err != nil {
		return nil, err
	}
	s := &session{inst: inst, log: a.log}

	s.page, err = inst.NewPage()
	if err != nil {
		s.close()
		return nil, err
	}
	if replayer != nil {
		s.router, err = replayer.Attach(s.page)
		if err != nil {
			s.close()
			return nil, err
		}
	}

	a.log.Info("opening page", zap.String("url", url), zap.Bool("replay", replayer != nil))
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		s.close()
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		s.close()
		return nil, fmt.Errorf("wait load: %w", err)
	}
	browser.WaitForIFrames(s.page, a.cfg.Fill.UnifiedTimeout)

	if replayer != nil {
		a.log.Debug("replay stats", zap.Any("stats", replayer.Stats()))
	}
	return s, nil
}
