package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chatvault/chatvault/internal/model"
)

// ExportAllData snapshots the whole archive: conversations, settings,
// and statistics under a versioned envelope.
func (s *Store) ExportAllData(ctx context.Context) (model.ExportBundle, error) {
	list, err := s.readConversations(ctx)
	if err != nil {
		return model.ExportBundle{}, fmt.Errorf("export: %w", err)
	}
	stats, err := s.GetStatistics(ctx)
	if err != nil {
		return model.ExportBundle{}, fmt.Errorf("export: %w", err)
	}
	settings := s.GetSettings(ctx)

	return model.ExportBundle{
		Version:       "1.0",
		ExportDate:    time.Now().UTC().Format(time.RFC3339),
		Conversations: list,
		Settings:      &settings,
		Statistics:    &stats,
	}, nil
}

// ImportData merges a bundle into the archive. Records are processed
// sequentially so the accounting is deterministic and ordered. A record
// whose platform conversation id already exists is skipped or updated
// per the strategy; everything else is inserted as new. A failing record
// is recorded in the result's error list and never aborts the rest of
// the batch.
//
// The bundle must carry a version and a conversations array; anything
// else fails with ErrInvalidFormat before any record is touched.
func (s *Store) ImportData(ctx context.Context, bundle model.ExportBundle, strategy model.MergeStrategy) (model.ImportResult, error) {
	if bundle.Version == "" {
		return model.ImportResult{}, fmt.Errorf("%w: missing version", ErrInvalidFormat)
	}
	if bundle.Conversations == nil {
		return model.ImportResult{}, fmt.Errorf("%w: conversations must be an array", ErrInvalidFormat)
	}
	if strategy == "" {
		strategy = model.MergeSkip
	}

	result := model.ImportResult{Errors: []model.ImportError{}}
	for _, incoming := range bundle.Conversations {
		if err := s.importOne(ctx, incoming, strategy, &result); err != nil {
			result.Errors = append(result.Errors, model.ImportError{
				Title: incoming.Title,
				Error: err.Error(),
			})
			s.log.Warn("import record failed",
				zap.String("title", incoming.Title),
				zap.Error(err),
			)
		}
	}

	s.log.Info("import finished",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("updated", result.Updated),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (s *Store) importOne(ctx context.Context, incoming model.Conversation, strategy model.MergeStrategy, result *model.ImportResult) error {
	existing, err := s.FindDuplicate(ctx, incoming.ConversationID)
	if err != nil {
		return err
	}

	if existing != nil {
		if strategy == model.MergeSkip {
			result.Skipped++
			return nil
		}
		updates := model.ConversationUpdate{
			Title:      &incoming.Title,
			Notes:      &incoming.Notes,
			IsFavorite: &incoming.IsFavorite,
		}
		if incoming.Content != "" {
			updates.Content = &incoming.Content
		}
		if incoming.Tags != nil {
			updates.Tags = &incoming.Tags
		}
		if _, err := s.UpdateConversation(ctx, existing.ID, updates); err != nil {
			return err
		}
		result.Updated++
		return nil
	}

	if _, err := s.SaveConversation(ctx, incoming); err != nil {
		return err
	}
	result.Imported++
	return nil
}
