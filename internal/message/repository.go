package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"inlet/internal/constants"
	pkgerrors "inlet/pkg/errors"
	"inlet/pkg/metrics"
)

// Store is the persistence boundary for messages. Implementations surface
// I/O faults as StorageUnavailable and never retry; retry policy belongs to
// the caller.
type Store interface {
	// Insert persists msg unless a message with the same id already exists.
	// It reports created=false (duplicate) without touching the existing
	// record. The check-and-insert is a single atomic statement, so
	// concurrent submissions of one id yield exactly one created.
	Insert(ctx context.Context, msg *Message) (created bool, err error)
	Get(ctx context.Context, id string) (*Message, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]Message, error)
	Count(ctx context.Context, f Filter) (int, error)
	DistinctSenderCount(ctx context.Context, f Filter) (int, error)
	FirstLast(ctx context.Context, f Filter) (*time.Time, *time.Time, error)
	TopSenders(ctx context.Context, f Filter, n int) ([]TopSender, error)
	// Aggregates computes all analytical values inside one read transaction.
	Aggregates(ctx context.Context, f Filter, topN int) (*Aggregates, error)
}

// SQLStore implements Store over database/sql. The same statements run on
// postgres (lib/pq) and sqlite (mattn/go-sqlite3); placeholders are rebound
// per dialect.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

func NewSQLStore(db *sql.DB, dialect string) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Insert(ctx context.Context, msg *Message) (bool, error) {
	start := time.Now()

	query := s.rebind(`
		INSERT INTO messages (id, sender, body, received_at, raw_signature)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`)

	res, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.Sender, msg.Body, msg.ReceivedAt.UTC(), msg.RawSignature,
	)
	metrics.ObserveStorageOperation("insert", time.Since(start), err)
	if err != nil {
		return false, storageErr("insert message", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("insert message", err)
	}
	return rows == 1, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Message, error) {
	start := time.Now()

	query := s.rebind(`
		SELECT id, sender, body, received_at, raw_signature
		FROM messages
		WHERE id = ?
	`)

	var msg Message
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID, &msg.Sender, &msg.Body, &msg.ReceivedAt, &msg.RawSignature,
	)
	metrics.ObserveStorageOperation("get", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return nil, storageErr("get message", err)
	}

	return &msg, nil
}

func (s *SQLStore) List(ctx context.Context, f Filter, limit, offset int) ([]Message, error) {
	start := time.Now()

	where, args := filterClause(f)
	query := s.rebind(fmt.Sprintf(`
		SELECT id, sender, body, received_at, raw_signature
		FROM messages
		%s
		ORDER BY received_at ASC, id ASC
		LIMIT ? OFFSET ?
	`, where))
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	metrics.ObserveStorageOperation("list", time.Since(start), err)
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	defer rows.Close()

	msgs := make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Body, &msg.ReceivedAt, &msg.RawSignature); err != nil {
			return nil, storageErr("scan message", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list messages", err)
	}

	return msgs, nil
}

func (s *SQLStore) Count(ctx context.Context, f Filter) (int, error) {
	return s.count(ctx, s.db, f)
}

func (s *SQLStore) DistinctSenderCount(ctx context.Context, f Filter) (int, error) {
	return s.distinctSenderCount(ctx, s.db, f)
}

func (s *SQLStore) FirstLast(ctx context.Context, f Filter) (*time.Time, *time.Time, error) {
	return s.firstLast(ctx, s.db, f)
}

func (s *SQLStore) TopSenders(ctx context.Context, f Filter, n int) ([]TopSender, error) {
	return s.topSenders(ctx, s.db, f, n)
}

func (s *SQLStore) Aggregates(ctx context.Context, f Filter, topN int) (*Aggregates, error) {
	opts := &sql.TxOptions{}
	if s.dialect == constants.DialectPostgres {
		// One consistent snapshot across the aggregate queries. SQLite is
		// serializable by default and rejects explicit isolation levels.
		opts.Isolation = sql.LevelRepeatableRead
	}

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, storageErr("begin stats transaction", err)
	}
	defer tx.Rollback()

	agg := &Aggregates{}

	if agg.Total, err = s.count(ctx, tx, f); err != nil {
		return nil, err
	}
	if agg.Total == 0 {
		agg.TopSenders = []TopSender{}
		return agg, nil
	}

	if agg.UniqueSenders, err = s.distinctSenderCount(ctx, tx, f); err != nil {
		return nil, err
	}
	if agg.First, agg.Last, err = s.firstLast(ctx, tx, f); err != nil {
		return nil, err
	}
	if agg.TopSenders, err = s.topSenders(ctx, tx, f, topN); err != nil {
		return nil, err
	}

	return agg, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) count(ctx context.Context, q querier, f Filter) (int, error) {
	start := time.Now()

	where, args := filterClause(f)
	query := s.rebind(fmt.Sprintf(`SELECT COUNT(*) FROM messages %s`, where))

	var total int
	err := q.QueryRowContext(ctx, query, args...).Scan(&total)
	metrics.ObserveStorageOperation("count", time.Since(start), err)
	if err != nil {
		return 0, storageErr("count messages", err)
	}
	return total, nil
}

func (s *SQLStore) distinctSenderCount(ctx context.Context, q querier, f Filter) (int, error) {
	start := time.Now()

	where, args := filterClause(f)
	query := s.rebind(fmt.Sprintf(`SELECT COUNT(DISTINCT sender) FROM messages %s`, where))

	var total int
	err := q.QueryRowContext(ctx, query, args...).Scan(&total)
	metrics.ObserveStorageOperation("distinct_senders", time.Since(start), err)
	if err != nil {
		return 0, storageErr("count distinct senders", err)
	}
	return total, nil
}

func (s *SQLStore) firstLast(ctx context.Context, q querier, f Filter) (*time.Time, *time.Time, error) {
	// Selecting the column itself (rather than MIN/MAX expressions) keeps the
	// sqlite driver's timestamp conversion working.
	first, err := s.boundary(ctx, q, f, "ASC")
	if err != nil {
		return nil, nil, err
	}
	last, err := s.boundary(ctx, q, f, "DESC")
	if err != nil {
		return nil, nil, err
	}
	return first, last, nil
}

func (s *SQLStore) boundary(ctx context.Context, q querier, f Filter, direction string) (*time.Time, error) {
	start := time.Now()

	where, args := filterClause(f)
	query := s.rebind(fmt.Sprintf(`
		SELECT received_at FROM messages %s
		ORDER BY received_at %s, id %s
		LIMIT 1
	`, where, direction, direction))

	var ts time.Time
	err := q.QueryRowContext(ctx, query, args...).Scan(&ts)
	metrics.ObserveStorageOperation("boundary", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("time boundary", err)
	}
	return &ts, nil
}

func (s *SQLStore) topSenders(ctx context.Context, q querier, f Filter, n int) ([]TopSender, error) {
	start := time.Now()

	where, args := filterClause(f)
	// Ties break by earliest first message, then by sender string.
	query := s.rebind(fmt.Sprintf(`
		SELECT sender, COUNT(*) AS cnt
		FROM messages
		%s
		GROUP BY sender
		ORDER BY cnt DESC, MIN(received_at) ASC, sender ASC
		LIMIT ?
	`, where))
	args = append(args, n)

	rows, err := q.QueryContext(ctx, query, args...)
	metrics.ObserveStorageOperation("top_senders", time.Since(start), err)
	if err != nil {
		return nil, storageErr("top senders", err)
	}
	defer rows.Close()

	top := make([]TopSender, 0, n)
	for rows.Next() {
		var ts TopSender
		if err := rows.Scan(&ts.Sender, &ts.Count); err != nil {
			return nil, storageErr("scan top sender", err)
		}
		top = append(top, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("top senders", err)
	}

	return top, nil
}

// filterClause renders Filter as a WHERE clause with `?` placeholders.
func filterClause(f Filter) (string, []any) {
	var conds []string
	var args []any

	if f.Sender != "" {
		conds = append(conds, "sender = ?")
		args = append(args, f.Sender)
	}
	if f.Since != nil {
		conds = append(conds, "received_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if f.Query != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Query)) + "%"
		conds = append(conds, `(LOWER(body) LIKE ? ESCAPE '\' OR LOWER(sender) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// rebind rewrites `?` placeholders to `$N` for postgres; sqlite takes them
// as-is.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != constants.DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func storageErr(op string, err error) error {
	return pkgerrors.ErrStorageUnavailable.WithCause(fmt.Errorf("%s: %w", op, err))
}
