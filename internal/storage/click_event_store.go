package storage

import (
	"context"
	"fmt"
	"time"
)

// ClickEventStore appends individual click events to ClickHouse for
// time-windowed engagement analytics. The Postgres counter on the tree row
// remains the source of truth for totals; this store only feeds the
// leaderboard's recent-activity view, so writes are best-effort.
type ClickEventStore struct {
	db *ClickHouseDB
}

// NewClickEventStore creates a click event store
func NewClickEventStore(db *ClickHouseDB) *ClickEventStore {
	return &ClickEventStore{db: db}
}

// EnsureSchema creates the click_events table if it does not exist
func (s *ClickEventStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS click_events (
			tree_id      String,
			user_address String,
			clicked_at   DateTime64(3)
		)
		ENGINE = MergeTree()
		ORDER BY (tree_id, clicked_at)
		TTL toDateTime(clicked_at) + INTERVAL 90 DAY
	`

	if err := s.db.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create click_events table: %w", err)
	}

	return nil
}

// Insert appends one click event
func (s *ClickEventStore) Insert(ctx context.Context, treeID, userAddress string, clickedAt time.Time) error {
	query := `INSERT INTO click_events (tree_id, user_address, clicked_at) VALUES (?, ?, ?)`

	if err := s.db.Conn().Exec(ctx, query, treeID, userAddress, clickedAt); err != nil {
		return fmt.Errorf("failed to insert click event: %w", err)
	}

	return nil
}

// TreeClicks holds a per-tree click count over a window.
type TreeClicks struct {
	TreeID string `json:"treeId"`
	Clicks uint64 `json:"clicks"`
}

// CountSince returns per-tree click counts for events at or after the given
// time, most clicked first.
func (s *ClickEventStore) CountSince(ctx context.Context, since time.Time, limit int) ([]TreeClicks, error) {
	query := `
		SELECT tree_id, count() AS clicks
		FROM click_events
		WHERE clicked_at >= ?
		GROUP BY tree_id
		ORDER BY clicks DESC
		LIMIT ?
	`

	rows, err := s.db.Conn().Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query click counts: %w", err)
	}
	defer rows.Close()

	counts := []TreeClicks{}
	for rows.Next() {
		var tc TreeClicks
		if err := rows.Scan(&tc.TreeID, &tc.Clicks); err != nil {
			return nil, fmt.Errorf("failed to scan click count: %w", err)
		}
		counts = append(counts, tc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating click counts: %w", err)
	}

	return counts, nil
}
