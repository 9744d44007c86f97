// Package retry runs an operation until it succeeds, the error is classified
// as permanent, the attempts run out, or the context is cancelled.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

type Action int

const (
	Stop  Action = iota // permanent, give up now
	Retry               // transient, back off and try again
)

type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration // zero means uncapped
	OnRetry        func(attempt int, err error, backoff time.Duration)
}

// Classify decides whether an error is worth another attempt. A nil Classify
// retries everything.
type Classify func(err error) Action

var ErrNoAttempts = errors.New("retry policy allows no attempts")

// Do waits on clock between attempts, doubling the backoff each time.
func Do(ctx context.Context, clock clockwork.Clock, p Policy, classify Classify, op func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		return ErrNoAttempts
	}

	backoff := p.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		if classify != nil && classify(err) == Stop {
			return &PermanentError{Err: err}
		}
		if attempt >= p.MaxAttempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		timer := clock.NewTimer(backoff)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}

		backoff *= 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
}

type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
