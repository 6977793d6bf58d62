// Package services contains server-side business logic. This file implements
// UserService: resolving provider identities to accounts, terms acceptance,
// and issuing/refreshing JWTs plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/cachex"
	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/cryptox"
	"github.com/dmitrijs2005/recipebox/internal/dbx"
	"github.com/dmitrijs2005/recipebox/internal/logging"
	"github.com/dmitrijs2005/recipebox/internal/server/auth"
	"github.com/dmitrijs2005/recipebox/internal/server/config"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is what a successful provider login yields.
type LoginResult struct {
	User   *models.User
	IsNew  bool
	Tokens *TokenPair
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	verifier                     auth.IdentityVerifier
	profiles                     *cachex.TTL[string, models.User]
	systemPrompt                 string
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	logger                       logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, verifier auth.IdentityVerifier,
	cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		verifier:                     verifier,
		profiles:                     cachex.NewTTL[string, models.User](cfg.UserCacheTTL),
		systemPrompt:                 cfg.SystemPrompt,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		logger:                       logger.With("module", "users"),
	}
}

// Login verifies a provider ID token, resolves the account and mints tokens.
func (s *UserService) Login(ctx context.Context, idToken string) (*LoginResult, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.logger.Warn(ctx, "identity verification failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
	}

	user, isNew, err := s.ResolveOrCreate(ctx, *identity)
	if err != nil {
		return nil, err
	}

	pair, err := s.generateTokenPair(ctx, user.ID, user.ExternalID, s.db)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID, "new", isNew)
	return &LoginResult{User: user, IsNew: isNew, Tokens: pair}, nil
}

// ResolveOrCreate finds the account linked to identity or creates it. A new
// account starts with terms not accepted and a conversation holding only the
// system prompt; both rows are written in one transaction. An existing
// account only gets its profile fields refreshed.
func (s *UserService) ResolveOrCreate(ctx context.Context, identity models.Identity) (*models.User, bool, error) {
	var user *models.User
	var isNew, inserting bool

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)

		existing, err := users.GetByExternalID(ctx, identity.ExternalID)
		switch {
		case err == nil:
			if err := users.UpdateProfile(ctx, existing.ID, identity.Email, identity.Name, identity.Picture); err != nil {
				return err
			}
			existing.Email, existing.Name, existing.Picture = identity.Email, identity.Name, identity.Picture
			user = existing
			return nil
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		hash, err := cryptox.SyntheticPasswordHash()
		if err != nil {
			return fmt.Errorf("password hash: %w", err)
		}

		inserting = true
		created, err := users.Create(ctx, &models.User{
			ExternalID:   identity.ExternalID,
			Email:        identity.Email,
			Name:         identity.Name,
			Picture:      identity.Picture,
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}

		if _, err := s.repomanager.Conversations(tx).Append(ctx, created.ID, models.RoleSystem, s.systemPrompt); err != nil {
			return err
		}

		user, isNew = created, true
		return nil
	})

	if inserting && errors.Is(err, common.ErrorAlreadyExists) {
		// a concurrent first login for the same identity won the insert
		winner, getErr := s.repomanager.Users(s.db).GetByExternalID(ctx, identity.ExternalID)
		if getErr != nil {
			return nil, false, fmt.Errorf("%w: email already linked to another account", common.ErrorAlreadyExists)
		}
		user, isNew, err = winner, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("resolve user: %w", err)
	}

	if isNew {
		s.logger.Info(ctx, "user created", "user_id", user.ID)
	}
	s.profiles.Set(user.ExternalID, *user)
	return user, isNew, nil
}

// GetByExternalID serves profile lookups from the TTL cache, falling back
// to the database on a miss.
func (s *UserService) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	if u, ok := s.profiles.Get(externalID); ok {
		return &u, nil
	}

	u, err := s.repomanager.Users(s.db).GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	s.profiles.Set(externalID, *u)
	return u, nil
}

// AcceptTerms marks the terms as accepted. It reports whether anything
// changed; accepting twice is not an error.
func (s *UserService) AcceptTerms(ctx context.Context, userID string) (*models.User, bool, error) {
	repo := s.repomanager.Users(s.db)

	changed, err := repo.AcceptTerms(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	s.profiles.Set(user.ExternalID, *user)

	if changed {
		s.logger.Info(ctx, "terms accepted", "user_id", userID)
	}
	return user, changed, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return err
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user.ID, user.ExternalID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes refreshToken. Unknown tokens are ignored.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken)
}

// --- helpers below ---

func (s *UserService) generateAccessToken(userID, externalID string) (string, error) {
	return auth.GenerateToken(userID, externalID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID, externalID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(userID, externalID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
