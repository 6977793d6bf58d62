package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/dbx"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	conversationsrepo "github.com/dmitrijs2005/recipebox/internal/server/repositories/conversations"
	favoritesrepo "github.com/dmitrijs2005/recipebox/internal/server/repositories/favorites"
	refreshtokensrepo "github.com/dmitrijs2005/recipebox/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/recipebox/internal/server/repositories/users"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	byExternal map[string]*models.User
	byID       map[string]*models.User

	getErrs   []error // consumed one per GetByExternalID call before the maps are consulted
	createErr error
	updateErr error
	acceptErr error

	created []*models.User
	updated []string
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byExternal: map[string]*models.User{}, byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) put(u *models.User) {
	f.byExternal[u.ExternalID] = u
	f.byID[u.ID] = u
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if u.ID == "" {
		u.ID = "u-" + u.ExternalID
	}
	cp := *u
	f.put(&cp)
	f.created = append(f.created, &cp)
	return u, nil
}

func (f *fakeUsersRepo) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	if len(f.getErrs) > 0 {
		err := f.getErrs[0]
		f.getErrs = f.getErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	u, ok := f.byExternal[externalID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) UpdateProfile(ctx context.Context, id, email, name, picture string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Email, u.Name, u.Picture = email, name, picture
	f.updated = append(f.updated, id)
	return nil
}

func (f *fakeUsersRepo) AcceptTerms(ctx context.Context, id string, at time.Time) (bool, error) {
	if f.acceptErr != nil {
		return false, f.acceptErr
	}
	u, ok := f.byID[id]
	if !ok || u.TermsAccepted {
		return false, nil
	}
	u.TermsAccepted = true
	u.TermsAcceptedAt = &at
	return true, nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	delErr    error
	createErr error

	created []string
	deleted []string
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, token)
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	return f.delErr
}

// --- conversations ---

type fakeConversationsRepo struct {
	mu        sync.Mutex
	turns     map[string][]models.Turn
	nextID    int64
	readErr   error
	appendErr error
	// failOnAppend makes the n-th Append call (1-based) fail.
	failOnAppend int
	appends      int
}

func newFakeConversationsRepo() *fakeConversationsRepo {
	return &fakeConversationsRepo{turns: map[string][]models.Turn{}}
}

func (f *fakeConversationsRepo) Append(ctx context.Context, userID string, role models.Role, content string) (*models.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	if f.failOnAppend != 0 && f.appends == f.failOnAppend {
		return nil, sql.ErrConnDone
	}
	f.nextID++
	t := models.Turn{ID: f.nextID, UserID: userID, Role: role, Content: content}
	f.turns[userID] = append(f.turns[userID], t)
	return &t, nil
}

func (f *fakeConversationsRepo) ReadAll(ctx context.Context, userID string) ([]models.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]models.Turn{}, f.turns[userID]...), nil
}

func (f *fakeConversationsRepo) ClearExceptSystem(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.Turn
	var n int64
	for _, t := range f.turns[userID] {
		if t.Role == models.RoleSystem {
			kept = append(kept, t)
		} else {
			n++
		}
	}
	f.turns[userID] = kept
	return n, nil
}

// --- favorites ---

type fakeFavoritesRepo struct {
	favs      []models.Favorite
	nextID    int64
	existsErr error
	createErr error
	listErr   error
}

func (f *fakeFavoritesRepo) Create(ctx context.Context, fav *models.Favorite) (*models.Favorite, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	fav.ID = f.nextID
	f.favs = append(f.favs, *fav)
	return fav, nil
}

func (f *fakeFavoritesRepo) ExistsByContent(ctx context.Context, userID, contentHash string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, x := range f.favs {
		if x.UserID == userID && x.ContentHash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFavoritesRepo) ListByUser(ctx context.Context, userID string) ([]models.Favorite, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []models.Favorite{}
	for i := len(f.favs) - 1; i >= 0; i-- {
		if f.favs[i].UserID == userID {
			out = append(out, f.favs[i])
		}
	}
	return out, nil
}

func (f *fakeFavoritesRepo) Delete(ctx context.Context, userID string, id int64) (bool, error) {
	for i, x := range f.favs {
		if x.ID == id && x.UserID == userID {
			f.favs = append(f.favs[:i], f.favs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	c *fakeConversationsRepo
	f *fakeFavoritesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Conversations(db dbx.DBTX) conversationsrepo.Repository { return m.c }
func (m *fakeRepoManager) Favorites(db dbx.DBTX) favoritesrepo.Repository { return m.f }
