package message

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"inlet/internal/config"
	"inlet/pkg/circuitbreaker"
	pkgerrors "inlet/pkg/errors"
)

// BreakerStore sheds load from a failing backend: once the circuit opens,
// calls fail fast with StorageUnavailable instead of queueing on a dead
// database.
type BreakerStore struct {
	inner Store
	cb    *circuitbreaker.Wrapper
}

func NewBreakerStore(inner Store, cfg config.CircuitBreakerConfig) Store {
	if !cfg.Enabled {
		return inner
	}

	cbConfig := circuitbreaker.DefaultConfig("message-store")
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		}
	}
	// Not-found is an answer, not a backend failure.
	cbConfig.IsSuccessful = func(err error) bool {
		return err == nil || pkgerrors.IsNotFound(err)
	}

	return &BreakerStore{
		inner: inner,
		cb:    circuitbreaker.NewWrapper(cbConfig),
	}
}

func (s *BreakerStore) execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	result, err := s.cb.ExecuteWithContext(ctx, fn)
	if err != nil {
		switch err {
		case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
			return nil, pkgerrors.ErrStorageUnavailable.WithCause(err)
		}
		return nil, err
	}
	return result, nil
}

func (s *BreakerStore) Insert(ctx context.Context, msg *Message) (bool, error) {
	result, err := s.execute(ctx, func() (interface{}, error) {
		created, err := s.inner.Insert(ctx, msg)
		return created, err
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

func (s *BreakerStore) Get(ctx context.Context, id string) (*Message, error) {
	result, err := s.execute(ctx, func() (interface{}, error) {
		return s.inner.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Message), nil
}

func (s *BreakerStore) List(ctx context.Context, f Filter, limit, offset int) ([]Message, error) {
	result, err := s.execute(ctx, func() (interface{}, error) {
		return s.inner.List(ctx, f, limit, offset)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Message), nil
}

func (s *BreakerStore) Count(ctx context.Context, f Filter) (int, error) {
	result, err := s.execute(ctx, func() (interface{}, error) {
		return s.inner.Count(ctx, f)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

func (s *BreakerStore) DistinctSenderCount(ctx context.Context, f Filter) (int, error) {
	result, err := s.execute(ctx, func() (interface{}, error) {
		return s.inner.DistinctSenderCount(ctx, f)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

type firstLastResult struct {
	first *time.Time
	last  *time.Time
}

func (s *BreakerStore) FirstLast(ctx context.Context, f Filter) (*time.Time, *time.Time, error) {
	result, err := s.execute(ctx, func() (interface{}, error) {
		first, last, err := s.inner.FirstLast(ctx, f)
		return firstLastResult{first: first, last: last}, err
	})
	if err != nil {
		return nil, nil, err
	}
	r := result.(firstLastResult)
	return r.first, r.last, nil
}

func (s *BreakerStore) TopSenders(ctx context.Context, f Filter, n int) ([]TopSender, error) {
	result, err := s.execute(ctx, func() (interface{}, error) {
		return s.inner.TopSenders(ctx, f, n)
	})
	if err != nil {
		return nil, err
	}
	return result.([]TopSender), nil
}

func (s *BreakerStore) Aggregates(ctx context.Context, f Filter, topN int) (*Aggregates, error) {
	result, err := s.execute(ctx, func() (interface{}, error) {
		return s.inner.Aggregates(ctx, f, topN)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Aggregates), nil
}
