package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

type FeedbackUseCase struct {
	embedder ports.Embedder
	store    ports.FeedbackStore
	log      ports.FeedbackLog
	logger   *slog.Logger
}

func NewFeedbackUseCase(embedder ports.Embedder, store ports.FeedbackStore, log ports.FeedbackLog, logger *slog.Logger) *FeedbackUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackUseCase{
		embedder: embedder,
		store:    store,
		log:      log,
		logger:   logger,
	}
}

// Record embeds the query so later similar queries can reuse the judgement,
// then appends the entry to the relational log.
func (uc *FeedbackUseCase) Record(
	ctx context.Context,
	key domain.CollectionKey,
	query string,
	documentIDs []string,
	label domain.FeedbackLabel,
) (*domain.FeedbackEntry, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "record feedback", errors.New("query is required"))
	}
	if label != domain.FeedbackPositive && label != domain.FeedbackNegative {
		return nil, domain.WrapError(domain.ErrInvalidInput, "record feedback", fmt.Errorf("label must be 0 or 1, got %d", label))
	}
	ids := compactIDs(documentIDs)
	if len(ids) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "record feedback", errors.New("at least one document id is required"))
	}

	vector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed feedback query: %w", err)
	}

	entry := domain.FeedbackEntry{
		ID:          uuid.NewString(),
		Collection:  key,
		Query:       query,
		QueryVector: vector,
		DocumentIDs: ids,
		Label:       label,
		CreatedAt:   time.Now().UTC(),
	}
	if err := uc.store.Record(ctx, entry); err != nil {
		return nil, fmt.Errorf("store feedback vector: %w", err)
	}
	if err := uc.log.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append feedback log: %w", err)
	}

	uc.logger.Info("feedback_recorded",
		"feedback_id", entry.ID,
		"collection", key.String(),
		"label", int(label),
		"documents", len(ids),
	)
	return &entry, nil
}

func (uc *FeedbackUseCase) Stats(ctx context.Context, key *domain.CollectionKey) (domain.FeedbackStats, error) {
	if key != nil {
		if err := key.Validate(); err != nil {
			return domain.FeedbackStats{}, err
		}
	}
	return uc.log.Stats(ctx, key)
}

func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
