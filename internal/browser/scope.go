package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Opener starts a new session.
type Opener func(ctx context.Context) (Session, error)

// WithSession opens a session, runs fn and closes the session on every exit
// path, including panics. A close failure is joined onto fn's error.
func WithSession(ctx context.Context, open Opener, log *zap.Logger, fn func(Session) error) (err error) {
	s, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	defer func() {
		if cerr := Release(s, log); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close browser: %w", cerr))
		}
	}()
	return fn(s)
}

// Release closes s. A nil session only logs a warning.
func Release(s Session, log *zap.Logger) error {
	if s == nil {
		log.Warn("No browser session to close")
		return nil
	}
	log.Info("Closing browser session")
	return s.Close()
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
