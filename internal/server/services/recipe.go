package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recipebox/internal/dbx"
	"github.com/dmitrijs2005/recipebox/internal/logging"
	"github.com/dmitrijs2005/recipebox/internal/server/llm"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	"github.com/dmitrijs2005/recipebox/internal/server/moderation"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/recipebox/internal/syncx"
)

// RecipeService runs a user's message through the completion provider and
// decides whether the exchange becomes part of the conversation.
type RecipeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	gateway     llm.Gateway
	classifier  moderation.Classifier
	locks       *syncx.KeyedMutex
	logger      logging.Logger
}

func NewRecipeService(db *sql.DB, m repomanager.RepositoryManager, gateway llm.Gateway,
	classifier moderation.Classifier, logger logging.Logger) *RecipeService {
	return &RecipeService{
		db:          db,
		repomanager: m,
		gateway:     gateway,
		classifier:  classifier,
		locks:       syncx.NewKeyedMutex(),
		logger:      logger.With("module", "recipes"),
	}
}

// Suggest sends the stored conversation plus message to the provider.
//
// Nothing is written unless the reply is accepted; then the user turn and
// the reply are appended together. A provider failure returns
// *llm.GatewayError, a declined request *moderation.RefusalError. Runs for
// the same user are serialized, and once started a run is not cut short by
// ctx cancellation: the provider call is bounded by the gateway timeout.
func (s *RecipeService) Suggest(ctx context.Context, userID, message string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	ctx = context.WithoutCancel(ctx)
	log := s.logger.With("user_id", userID)

	history, err := s.repomanager.Conversations(s.db).ReadAll(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	working := make([]models.Turn, len(history), len(history)+1)
	copy(working, history)
	working = append(working, models.Turn{UserID: userID, Role: models.RoleUser, Content: message})

	reply, err := s.gateway.Complete(ctx, working)
	if err != nil {
		var ge *llm.GatewayError
		if !errors.As(err, &ge) {
			ge = &llm.GatewayError{Err: err}
		}
		log.Warn(ctx, "completion failed", "status", ge.StatusCode, "timeout", ge.Timeout, "error", ge.Err)
		return "", ge
	}

	if s.classifier.Classify(reply) == moderation.VerdictRefusal {
		msg := moderation.ExtractRefusalMessage(reply)
		log.Info(ctx, "request declined", "refusal", msg)
		return "", &moderation.RefusalError{Message: msg}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		turns := s.repomanager.Conversations(tx)
		if _, err := turns.Append(ctx, userID, models.RoleUser, message); err != nil {
			return err
		}
		_, err := turns.Append(ctx, userID, models.RoleAssistant, reply)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("commit turn: %w", err)
	}

	log.Debug(ctx, "turn committed", "history_len", len(history)+2)
	return reply, nil
}

// History returns the user's conversation without the system turn.
func (s *RecipeService) History(ctx context.Context, userID string) ([]models.Turn, error) {
	turns, err := s.repomanager.Conversations(s.db).ReadAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	visible := make([]models.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Role != models.RoleSystem {
			visible = append(visible, t)
		}
	}
	return visible, nil
}

// ClearHistory drops every turn except the system prompt.
func (s *RecipeService) ClearHistory(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	n, err := s.repomanager.Conversations(s.db).ClearExceptSystem(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "history cleared", "user_id", userID, "removed", n)
	return nil
}
