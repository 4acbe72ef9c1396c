package stats

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"inlet/internal/constants"
	"inlet/internal/message"
)

// Snapshot is the aggregate view served to clients. Boundary timestamps are
// null until the first message is accepted.
type Snapshot struct {
	TotalCount        int                 `json:"total_count"`
	UniqueSenderCount int                 `json:"unique_sender_count"`
	TopSenders        []message.TopSender `json:"top_senders"`
	FirstMessageAt    *time.Time          `json:"first_message_at"`
	LastMessageAt     *time.Time          `json:"last_message_at"`
}

// Aggregator computes snapshots on demand from the store. Identical
// concurrent requests are collapsed into a single storage round trip.
type Aggregator struct {
	store message.Store
	group singleflight.Group
	topN  int
}

func NewAggregator(store message.Store) *Aggregator {
	return &Aggregator{
		store: store,
		topN:  constants.TopSendersLimit,
	}
}

func (a *Aggregator) Snapshot(ctx context.Context, f message.Filter) (*Snapshot, error) {
	v, err, _ := a.group.Do(f.Fingerprint(), func() (interface{}, error) {
		return a.compute(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (a *Aggregator) compute(ctx context.Context, f message.Filter) (*Snapshot, error) {
	agg, err := a.store.Aggregates(ctx, f, a.topN)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		TotalCount:        agg.Total,
		UniqueSenderCount: agg.UniqueSenders,
		TopSenders:        agg.TopSenders,
		FirstMessageAt:    agg.First,
		LastMessageAt:     agg.Last,
	}
	if snap.TopSenders == nil {
		snap.TopSenders = []message.TopSender{}
	}
	return snap, nil
}
