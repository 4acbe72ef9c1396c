package message

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inlet/internal/constants"
	pkgerrors "inlet/pkg/errors"
)

const testSchema = `
CREATE TABLE messages (
    id            TEXT PRIMARY KEY,
    sender        TEXT NOT NULL,
    body          TEXT NOT NULL DEFAULT '',
    received_at   TIMESTAMP NOT NULL,
    raw_signature TEXT NOT NULL DEFAULT ''
);
CREATE INDEX idx_messages_received_at_id ON messages (received_at, id);
CREATE INDEX idx_messages_sender ON messages (sender);
`

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return NewSQLStore(db, constants.DialectSQLite)
}

func mustInsert(t *testing.T, store *SQLStore, id, sender, body string, at time.Time) {
	t.Helper()
	created, err := store.Insert(context.Background(), &Message{
		ID:         id,
		Sender:     sender,
		Body:       body,
		ReceivedAt: at,
	})
	require.NoError(t, err)
	require.True(t, created)
}

func TestSQLStore_InsertAndGet(t *testing.T) {
	store := newTestStore(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	created, err := store.Insert(context.Background(), &Message{
		ID:           "m-1",
		Sender:       "alice",
		Body:         "hello",
		ReceivedAt:   at,
		RawSignature: "sha256=abc",
	})
	require.NoError(t, err)
	assert.True(t, created)

	got, err := store.Get(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", got.ID)
	assert.Equal(t, "alice", got.Sender)
	assert.Equal(t, "hello", got.Body)
	assert.True(t, got.ReceivedAt.Equal(at))
	assert.Equal(t, "sha256=abc", got.RawSignature)
}

func TestSQLStore_InsertDuplicateKeepsFirstWriter(t *testing.T) {
	store := newTestStore(t)
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mustInsert(t, store, "m-1", "alice", "original", first)

	created, err := store.Insert(context.Background(), &Message{
		ID:         "m-1",
		Sender:     "mallory",
		Body:       "overwrite attempt",
		ReceivedAt: first.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.Get(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Sender)
	assert.Equal(t, "original", got.Body)
}

func TestSQLStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestSQLStore_ListOrdering(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Same timestamp for b and a to exercise the id tie-break.
	mustInsert(t, store, "m-c", "carol", "third", base.Add(2*time.Minute))
	mustInsert(t, store, "m-b", "bob", "second", base)
	mustInsert(t, store, "m-a", "alice", "first", base)

	msgs, err := store.List(context.Background(), Filter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m-a", msgs[0].ID)
	assert.Equal(t, "m-b", msgs[1].ID)
	assert.Equal(t, "m-c", msgs[2].ID)
}

func TestSQLStore_ListFilters(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mustInsert(t, store, "m-1", "alice", "deploy started", base)
	mustInsert(t, store, "m-2", "bob", "Deploy finished", base.Add(time.Minute))
	mustInsert(t, store, "m-3", "alice", "rollback", base.Add(2*time.Minute))

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
	}{
		{
			name:    "by sender",
			filter:  Filter{Sender: "alice"},
			wantIDs: []string{"m-1", "m-3"},
		},
		{
			name:    "sender is exact match",
			filter:  Filter{Sender: "ali"},
			wantIDs: nil,
		},
		{
			name: "since is inclusive",
			filter: Filter{Since: func() *time.Time {
				ts := base.Add(time.Minute)
				return &ts
			}()},
			wantIDs: []string{"m-2", "m-3"},
		},
		{
			name:    "substring is case-insensitive",
			filter:  Filter{Query: "dePLoy"},
			wantIDs: []string{"m-1", "m-2"},
		},
		{
			name:    "substring matches sender too",
			filter:  Filter{Query: "bob"},
			wantIDs: []string{"m-2"},
		},
		{
			name: "filters combine with AND",
			filter: Filter{Sender: "alice", Since: func() *time.Time {
				ts := base.Add(time.Minute)
				return &ts
			}()},
			wantIDs: []string{"m-3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := store.List(context.Background(), tt.filter, 10, 0)
			require.NoError(t, err)

			var ids []string
			for _, m := range msgs {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)

			total, err := store.Count(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, len(tt.wantIDs), total)
		})
	}
}

func TestSQLStore_QueryEscapesLikeMetacharacters(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mustInsert(t, store, "m-1", "alice", "progress: 100% done", base)
	mustInsert(t, store, "m-2", "bob", "underscore_name", base.Add(time.Minute))
	mustInsert(t, store, "m-3", "carol", "plain text", base.Add(2*time.Minute))

	msgs, err := store.List(context.Background(), Filter{Query: "100%"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m-1", msgs[0].ID)

	// A bare "_" must not act as a single-character wildcard.
	msgs, err = store.List(context.Background(), Filter{Query: "e_n"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m-2", msgs[0].ID)
}

func TestSQLStore_Pagination(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		mustInsert(t, store, fmt.Sprintf("m-%02d", i), "alice", "body", base.Add(time.Duration(i)*time.Second))
	}

	var collected []string
	for offset := 0; ; offset += 3 {
		msgs, err := store.List(context.Background(), Filter{}, 3, offset)
		require.NoError(t, err)
		if len(msgs) == 0 {
			break
		}
		for _, m := range msgs {
			collected = append(collected, m.ID)
		}
	}

	require.Len(t, collected, 7)
	for i, id := range collected {
		assert.Equal(t, fmt.Sprintf("m-%02d", i), id)
	}

	// An offset past the end is an empty page, not an error.
	msgs, err := store.List(context.Background(), Filter{}, 3, 100)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSQLStore_DistinctSenderCount(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	count, err := store.DistinctSenderCount(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	mustInsert(t, store, "m-1", "alice", "a", base)
	mustInsert(t, store, "m-2", "alice", "b", base.Add(time.Second))
	mustInsert(t, store, "m-3", "bob", "c", base.Add(2*time.Second))

	count, err = store.DistinctSenderCount(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLStore_FirstLast(t *testing.T) {
	store := newTestStore(t)

	first, last, err := store.FirstLast(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Nil(t, first)
	assert.Nil(t, last)

	early := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	mustInsert(t, store, "m-2", "bob", "late", late)
	mustInsert(t, store, "m-1", "alice", "early", early)

	first, last, err = store.FirstLast(context.Background(), Filter{})
	require.NoError(t, err)
	require.NotNil(t, first)
	require.NotNil(t, last)
	assert.True(t, first.Equal(early))
	assert.True(t, last.Equal(late))
}

func TestSQLStore_TopSenders(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// carol and bob tie on count; bob's first message is earlier so bob
	// ranks first among them.
	seq := 0
	add := func(sender string) {
		mustInsert(t, store, fmt.Sprintf("m-%02d", seq), sender, "body", base.Add(time.Duration(seq)*time.Second))
		seq++
	}
	add("bob")
	add("carol")
	add("alice")
	add("bob")
	add("carol")
	add("alice")
	add("alice")

	top, err := store.TopSenders(context.Background(), Filter{}, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, TopSender{Sender: "alice", Count: 3}, top[0])
	assert.Equal(t, TopSender{Sender: "bob", Count: 2}, top[1])
}

func TestSQLStore_Aggregates(t *testing.T) {
	store := newTestStore(t)

	agg, err := store.Aggregates(context.Background(), Filter{}, constants.TopSendersLimit)
	require.NoError(t, err)
	assert.Equal(t, 0, agg.Total)
	assert.Equal(t, 0, agg.UniqueSenders)
	assert.Empty(t, agg.TopSenders)
	assert.Nil(t, agg.First)
	assert.Nil(t, agg.Last)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mustInsert(t, store, "m-1", "alice", "a", base)
	mustInsert(t, store, "m-2", "alice", "b", base.Add(time.Minute))
	mustInsert(t, store, "m-3", "bob", "c", base.Add(2*time.Minute))

	agg, err = store.Aggregates(context.Background(), Filter{}, constants.TopSendersLimit)
	require.NoError(t, err)
	assert.Equal(t, 3, agg.Total)
	assert.Equal(t, 2, agg.UniqueSenders)
	require.Len(t, agg.TopSenders, 2)
	assert.Equal(t, TopSender{Sender: "alice", Count: 2}, agg.TopSenders[0])
	assert.Equal(t, TopSender{Sender: "bob", Count: 1}, agg.TopSenders[1])
	require.NotNil(t, agg.First)
	require.NotNil(t, agg.Last)
	assert.True(t, agg.First.Equal(base))
	assert.True(t, agg.Last.Equal(base.Add(2*time.Minute)))
}
