// Package metadata resolves the title and duration of a song URL.
//
// Strategies are tried in order and the first success wins. Nothing is
// retried: a failing chain surfaces queue.ErrMetadataUnavailable to the
// submitter, who can try again.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

// Info is what the queue needs to know about a URL.
type Info struct {
	Title    string
	Duration time.Duration
}

// Resolver looks up metadata for a URL.
type Resolver interface {
	Resolve(ctx context.Context, url string) (Info, error)
}

// Strategy is a single lookup attempt.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, url string) (Info, error)
}

// errUnknown marks output where the tool ran but could not describe the URL.
var errUnknown = errors.New("unknown title or duration")

// Chain tries each strategy in order.
type Chain struct {
	strategies []Strategy
}

// NewChain builds a resolver from strategies, tried in the given order.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Verify Chain implements Resolver at compile time.
var _ Resolver = (*Chain)(nil)

// Resolve returns the first successful result. When every strategy fails the
// error wraps queue.ErrMetadataUnavailable and each strategy's error.
func (c *Chain) Resolve(ctx context.Context, url string) (Info, error) {
	errs := make([]error, 0, len(c.strategies)+1)
	errs = append(errs, queue.ErrMetadataUnavailable)

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		info, err := s.Resolve(ctx, url)
		if err == nil {
			return info, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return Info{}, errors.Join(errs...)
}

// withTimeout bounds ctx by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
