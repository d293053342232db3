// Package suggest resolves the AI suggestion that the backend produces
// asynchronously after ticket creation. The suggestion may not exist yet at
// request time, so resolution is a bounded poll: up to maxAttempts fetches
// with a linearly growing delay after each failed or empty attempt.
package suggest

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/smarthelp/deskclient/internal/common"
	"github.com/smarthelp/deskclient/internal/model"
	"github.com/smarthelp/deskclient/internal/observability"
)

// ErrNoSuggestion reports an exhausted retry budget. Callers treat this as
// "suggestion absent", never as a ticket-creation failure.
var ErrNoSuggestion = errors.New(common.ErrCodeNoSuggestion)

// FetchFunc performs one suggestion fetch for a ticket id. A nil suggestion
// with a nil error means the backend answered but has nothing yet.
type FetchFunc func(ctx context.Context, ticketID string) (*model.AgentSuggestion, error)

// Clock abstracts the backoff timer so tests can drive the state machine
// without real sleeping.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type wallClock struct{}

func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Resolution phases. One Resolve call walks
// attempting(n) -> backingOff(n) -> attempting(n+1) -> ... until resolved or
// exhausted.
type phase int

const (
	phaseAttempting phase = iota
	phaseBackingOff
	phaseResolved
	phaseExhausted
)

type Resolver struct {
	fetch       FetchFunc
	clock       Clock
	maxAttempts int
	baseDelay   time.Duration
	cache       *gocache.Cache
	log         *zap.Logger
}

type Option func(*Resolver)

func WithClock(c Clock) Option {
	return func(r *Resolver) { r.clock = c }
}

func WithMaxAttempts(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.baseDelay = d
		}
	}
}

// WithCacheTTL sets how long a resolved suggestion is served without
// re-polling. A zero TTL disables the cache entirely.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl <= 0 {
			r.cache = nil
			return
		}
		r.cache = gocache.New(ttl, ttl)
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

func New(fetch FetchFunc, opts ...Option) *Resolver {
	r := &Resolver{
		fetch:       fetch,
		clock:       wallClock{},
		maxAttempts: 5,
		baseDelay:   time.Second,
		cache:       gocache.New(2*time.Minute, 2*time.Minute),
		log:         common.L().Named("suggest"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve polls for the suggestion attached to ticketID. First success wins;
// per-attempt failures are logged and absorbed. After maxAttempts the poll
// reports ErrNoSuggestion. Context cancellation aborts the backoff wait.
func (r *Resolver) Resolve(ctx context.Context, ticketID string) (*model.AgentSuggestion, error) {
	if r.cache != nil {
		if v, ok := r.cache.Get(ticketID); ok {
			return v.(*model.AgentSuggestion), nil
		}
	}

	attempt := 1
	st := phaseAttempting
	var resolved *model.AgentSuggestion
	for {
		switch st {
		case phaseAttempting:
			observability.SuggestionPolls.Inc()
			s, err := r.fetch(ctx, ticketID)
			if err == nil && s != nil && s.ID != "" {
				resolved = s
				st = phaseResolved
				continue
			}
			if err != nil {
				r.log.Warn("suggestion fetch attempt failed",
					zap.String("ticket_id", ticketID),
					zap.Int("attempt", attempt),
					zap.Error(err))
			} else {
				r.log.Debug("suggestion not ready",
					zap.String("ticket_id", ticketID),
					zap.Int("attempt", attempt))
			}
			st = phaseBackingOff
		case phaseBackingOff:
			// Linear backoff: 1x, 2x, 3x... the base delay. The wait also
			// runs after the final failed attempt, matching the documented
			// ~15s worst case for 5 attempts at a 1s base.
			if err := r.clock.Sleep(ctx, time.Duration(attempt)*r.baseDelay); err != nil {
				return nil, err
			}
			if attempt >= r.maxAttempts {
				st = phaseExhausted
				continue
			}
			attempt++
			st = phaseAttempting
		case phaseResolved:
			if r.cache != nil {
				r.cache.Set(ticketID, resolved, gocache.DefaultExpiration)
			}
			observability.SuggestionResolved.Inc()
			return resolved, nil
		case phaseExhausted:
			observability.SuggestionExhausted.Inc()
			return nil, ErrNoSuggestion
		}
	}
}

// Forget drops a cached suggestion so the next Resolve polls again, used
// after an edit writes through the server.
func (r *Resolver) Forget(ticketID string) {
	if r.cache != nil {
		r.cache.Delete(ticketID)
	}
}
