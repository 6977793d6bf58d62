package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/cryptox"
	"github.com/dmitrijs2005/recipebox/internal/dbx"
	"github.com/dmitrijs2005/recipebox/internal/logging"
	"github.com/dmitrijs2005/recipebox/internal/server/export"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/repomanager"
)

// Exporter stores a snapshot for a user and returns where to fetch it.
type Exporter interface {
	Export(ctx context.Context, userID string, body []byte) (*export.Result, error)
}

type FavoriteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	exporter    Exporter
	logger      logging.Logger
}

// NewFavoriteService wires the store; exporter may be nil, which disables
// Export.
func NewFavoriteService(db *sql.DB, m repomanager.RepositoryManager, exporter Exporter, logger logging.Logger) *FavoriteService {
	return &FavoriteService{
		db:          db,
		repomanager: m,
		exporter:    exporter,
		logger:      logger.With("module", "favorites"),
	}
}

// Add saves content for the user. Saving the same content twice yields
// common.ErrorAlreadyExists.
func (s *FavoriteService) Add(ctx context.Context, userID, title, content string) (*models.Favorite, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: no recipe content provided", common.ErrorValidation)
	}
	if title == "" {
		title = common.DefaultRecipeTitle
	}

	fav := &models.Favorite{
		UserID:      userID,
		Title:       title,
		Content:     content,
		ContentHash: cryptox.ContentHash(content),
		DateAdded:   time.Now().UTC(),
		Starred:     true,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Favorites(tx)

		exists, err := repo.ExistsByContent(ctx, userID, fav.ContentHash)
		if err != nil {
			return err
		}
		if exists {
			return common.ErrorAlreadyExists
		}

		_, err = repo.Create(ctx, fav)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "favorite added", "user_id", userID, "favorite_id", fav.ID)
	return fav, nil
}

// List returns the user's favorites, newest first.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]models.Favorite, error) {
	return s.repomanager.Favorites(s.db).ListByUser(ctx, userID)
}

// Remove deletes the favorite if the user owns it. Ids owned by someone else
// are reported the same as missing ones.
func (s *FavoriteService) Remove(ctx context.Context, userID string, id int64) (bool, error) {
	return s.repomanager.Favorites(s.db).Delete(ctx, userID, id)
}

// ExportedFavorite is the JSON shape of one favorite in an export.
type ExportedFavorite struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	DateAdded time.Time `json:"date_added"`
	Starred   bool      `json:"starred"`
}

type exportDocument struct {
	UserID     string             `json:"user_id"`
	ExportedAt time.Time          `json:"exported_at"`
	Favorites  []ExportedFavorite `json:"favorites"`
}

// Export uploads the user's favorites as JSON and returns a download link.
func (s *FavoriteService) Export(ctx context.Context, userID string) (*export.Result, error) {
	if s.exporter == nil {
		return nil, common.ErrExportUnavailable
	}

	favs, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	doc := exportDocument{UserID: userID, ExportedAt: time.Now().UTC(), Favorites: make([]ExportedFavorite, 0, len(favs))}
	for _, f := range favs {
		doc.Favorites = append(doc.Favorites, ExportedFavorite{
			ID: f.ID, Title: f.Title, Content: f.Content, DateAdded: f.DateAdded, Starred: f.Starred,
		})
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	res, err := s.exporter.Export(ctx, userID, body)
	if err != nil {
		s.logger.Error(ctx, "favorites export failed", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Info(ctx, "favorites exported", "user_id", userID, "key", res.Key, "count", len(favs))
	return res, nil
}
