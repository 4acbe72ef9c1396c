package stats

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inlet/internal/message"
	pkgerrors "inlet/pkg/errors"
)

type stubStore struct {
	mu    sync.Mutex
	calls int
	agg   *message.Aggregates
	err   error
	// block makes Aggregates wait until released, so tests can pile up
	// concurrent callers.
	block chan struct{}
}

func (s *stubStore) Aggregates(ctx context.Context, f message.Filter, topN int) (*message.Aggregates, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.agg, nil
}

func (s *stubStore) Insert(ctx context.Context, msg *message.Message) (bool, error) {
	return false, nil
}
func (s *stubStore) Get(ctx context.Context, id string) (*message.Message, error) { return nil, nil }
func (s *stubStore) List(ctx context.Context, f message.Filter, limit, offset int) ([]message.Message, error) {
	return nil, nil
}
func (s *stubStore) Count(ctx context.Context, f message.Filter) (int, error) { return 0, nil }
func (s *stubStore) DistinctSenderCount(ctx context.Context, f message.Filter) (int, error) {
	return 0, nil
}
func (s *stubStore) FirstLast(ctx context.Context, f message.Filter) (*time.Time, *time.Time, error) {
	return nil, nil, nil
}
func (s *stubStore) TopSenders(ctx context.Context, f message.Filter, n int) ([]message.TopSender, error) {
	return nil, nil
}

func TestAggregator_Snapshot(t *testing.T) {
	first := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	last := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := &stubStore{agg: &message.Aggregates{
		Total:         5,
		UniqueSenders: 2,
		TopSenders:    []message.TopSender{{Sender: "alice", Count: 3}, {Sender: "bob", Count: 2}},
		First:         &first,
		Last:          &last,
	}}

	snap, err := NewAggregator(store).Snapshot(context.Background(), message.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 5, snap.TotalCount)
	assert.Equal(t, 2, snap.UniqueSenderCount)
	require.Len(t, snap.TopSenders, 2)
	assert.Equal(t, "alice", snap.TopSenders[0].Sender)
	assert.True(t, snap.FirstMessageAt.Equal(first))
	assert.True(t, snap.LastMessageAt.Equal(last))
}

func TestAggregator_SnapshotEmptyStore(t *testing.T) {
	store := &stubStore{agg: &message.Aggregates{}}

	snap, err := NewAggregator(store).Snapshot(context.Background(), message.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, snap.TotalCount)
	assert.Equal(t, 0, snap.UniqueSenderCount)
	assert.NotNil(t, snap.TopSenders, "top_senders must serialize as [], not null")
	assert.Empty(t, snap.TopSenders)
	assert.Nil(t, snap.FirstMessageAt)
	assert.Nil(t, snap.LastMessageAt)
}

func TestAggregator_SnapshotPropagatesError(t *testing.T) {
	store := &stubStore{err: pkgerrors.ErrStorageUnavailable}

	_, err := NewAggregator(store).Snapshot(context.Background(), message.Filter{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStorageUnavailable(err))
}

func TestAggregator_ConcurrentIdenticalRequestsCollapse(t *testing.T) {
	store := &stubStore{
		agg:   &message.Aggregates{Total: 1},
		block: make(chan struct{}),
	}
	agg := NewAggregator(store)

	const callers = 10
	var wg sync.WaitGroup
	results := make([]*Snapshot, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = agg.Snapshot(context.Background(), message.Filter{Sender: "alice"})
		}(i)
	}

	// Give the goroutines time to join the in-flight computation.
	time.Sleep(50 * time.Millisecond)
	close(store.block)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 1, results[i].TotalCount)
	}

	store.mu.Lock()
	calls := store.calls
	store.mu.Unlock()
	assert.Equal(t, 1, calls, "identical concurrent requests should share one computation")
}

func TestAggregator_DistinctFiltersDoNotCollapse(t *testing.T) {
	store := &stubStore{agg: &message.Aggregates{}}
	agg := NewAggregator(store)

	_, err := agg.Snapshot(context.Background(), message.Filter{Sender: "alice"})
	require.NoError(t, err)
	_, err = agg.Snapshot(context.Background(), message.Filter{Sender: "bob"})
	require.NoError(t, err)

	assert.Equal(t, 2, store.calls)
}
