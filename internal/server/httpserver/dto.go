package httpserver

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/recipebox/internal/server/models"
)

type userResponse struct {
	ID              string     `json:"id"`
	GoogleID        string     `json:"google_id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Picture         string     `json:"picture"`
	TermsAccepted   bool       `json:"terms_accepted"`
	TermsAcceptedAt *time.Time `json:"terms_accepted_at,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:              u.ID,
		GoogleID:        u.ExternalID,
		Email:           u.Email,
		Name:            u.Name,
		Picture:         u.Picture,
		TermsAccepted:   u.TermsAccepted,
		TermsAcceptedAt: u.TermsAcceptedAt,
	}
}

type favoriteResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	DateAdded time.Time `json:"date_added"`
	Starred   bool      `json:"starred"`
}

func toFavoriteResponse(f models.Favorite) favoriteResponse {
	return favoriteResponse{ID: f.ID, Title: f.Title, Content: f.Content, DateAdded: f.DateAdded, Starred: f.Starred}
}

type turnResponse struct {
	Role      models.Role `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

type loginRequest struct {
	Token string `json:"token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type suggestRequest struct {
	Message string `json:"message"`
}

type addFavoriteRequest struct {
	Recipe string `json:"recipe"`
	Title  string `json:"title"`
}

type removeFavoriteRequest struct {
	RecipeID int64 `json:"recipe_id"`
}

// decodeBody parses a JSON body into v. An empty body leaves v untouched.
func decodeBody(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := c.App().Config().JSONDecoder(body, v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	return nil
}
