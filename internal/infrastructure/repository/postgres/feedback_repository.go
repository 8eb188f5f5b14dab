package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// FeedbackRepository is the append-only log behind feedback statistics.
type FeedbackRepository struct {
	db *sql.DB
}

func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Append(ctx context.Context, entry domain.FeedbackEntry) error {
	docIDs := entry.DocumentIDs
	if docIDs == nil {
		docIDs = []string{}
	}
	docsJSON, err := json.Marshal(docIDs)
	if err != nil {
		return fmt.Errorf("marshal feedback doc ids: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO feedback (id, user_id, collection_id, query, doc_ids, label, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, entry.ID, entry.Collection.UserID, entry.Collection.CollectionID, entry.Query, docsJSON, int(entry.Label), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// Stats aggregates feedback for one collection, or across all of them when
// key is nil.
func (r *FeedbackRepository) Stats(ctx context.Context, key *domain.CollectionKey) (domain.FeedbackStats, error) {
	query := `
SELECT user_id, collection_id, COUNT(*), COUNT(*) FILTER (WHERE label = 1)
FROM feedback
`
	args := []any{}
	if key != nil {
		query += "WHERE user_id = $1 AND collection_id = $2\n"
		args = append(args, key.UserID, key.CollectionID)
	}
	query += "GROUP BY user_id, collection_id\nORDER BY user_id, collection_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.FeedbackStats{}, fmt.Errorf("query feedback stats: %w", err)
	}
	defer rows.Close()

	stats := domain.FeedbackStats{Collections: []string{}}
	for rows.Next() {
		var (
			userID, collectionID string
			total, positive      int
		)
		if err := rows.Scan(&userID, &collectionID, &total, &positive); err != nil {
			return domain.FeedbackStats{}, fmt.Errorf("scan feedback stats: %w", err)
		}
		stats.Total += total
		stats.Positive += positive
		stats.Collections = append(stats.Collections, domain.CollectionKey{UserID: userID, CollectionID: collectionID}.String())
	}
	if err := rows.Err(); err != nil {
		return domain.FeedbackStats{}, fmt.Errorf("iterate feedback stats: %w", err)
	}
	stats.Negative = stats.Total - stats.Positive
	if stats.Total > 0 {
		stats.Ratio = float64(stats.Positive) / float64(stats.Total)
	}
	return stats, nil
}
