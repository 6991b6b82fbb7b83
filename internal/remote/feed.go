package remote

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/neuronotes/neurosync/internal/sync"
)

// defaultFeedPollInterval is how often the change feed checks the
// oplog when the caller didn't configure an interval.
const defaultFeedPollInterval = 500 * time.Millisecond

// Subscribe starts delivering row-level change events for the given
// user, beginning with changes that occur after the call.
//
// Events are read from the changes oplog in commit order by a polling
// goroutine. Poll failures are logged and polling continues; the feed
// only stops when the returned unsubscribe function is called (it is
// idempotent) or the context is cancelled.
func (s *Store) Subscribe(ctx context.Context, userID string, onEvent func(sync.ChangeEvent)) (func(), error) {
	cursor, err := s.feedCursor(ctx)
	if err != nil {
		return nil, err
	}

	interval := s.FeedPollInterval
	if interval == 0 {
		interval = defaultFeedPollInterval
	}

	feedCtx, cancel := context.WithCancel(ctx)
	var once gosync.Once
	var wg gosync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-feedCtx.Done():
				return
			case <-ticker.C:
				next, err := s.pollChanges(feedCtx, userID, cursor, onEvent)
				if err != nil {
					if feedCtx.Err() != nil {
						return
					}
					s.logger.Printf("Warning: change feed poll failed: %v", err)
					continue
				}
				cursor = next
			}
		}
	}()

	unsubscribe := func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
	return unsubscribe, nil
}

// feedCursor returns the current tail of the oplog, so a new
// subscription only sees changes made after it was created.
func (s *Store) feedCursor(ctx context.Context) (int64, error) {
	var cursor int64
	err := s.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM changes`).Scan(&cursor)
	if err != nil {
		return 0, fmt.Errorf("failed to read change feed cursor: %w", err)
	}
	return cursor, nil
}

// pollChanges delivers oplog rows past the cursor, in commit order,
// and returns the new cursor position.
func (s *Store) pollChanges(ctx context.Context, userID string, cursor int64, onEvent func(sync.ChangeEvent)) (int64, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, table_name, row_id, op, user_id FROM changes
		 WHERE id > ? AND user_id = ? ORDER BY id ASC`, cursor, userID)
	if err != nil {
		return cursor, fmt.Errorf("failed to poll changes: %w", err)
	}
	defer rows.Close()

	next := cursor
	var events []sync.ChangeEvent
	for rows.Next() {
		var id int64
		var ev sync.ChangeEvent
		var op string
		if err := rows.Scan(&id, &ev.Table, &ev.RowID, &op, &ev.UserID); err != nil {
			return next, fmt.Errorf("failed to scan change row: %w", err)
		}
		ev.Op = sync.ChangeOp(op)
		events = append(events, ev)
		next = id
	}
	if err := rows.Err(); err != nil {
		return next, fmt.Errorf("error iterating changes: %w", err)
	}

	// Deliver outside the rows loop so a slow callback doesn't hold
	// the connection.
	for _, ev := range events {
		onEvent(ev)
	}
	return next, nil
}
