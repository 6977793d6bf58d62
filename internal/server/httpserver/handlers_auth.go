package httpserver

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/recipebox/internal/common"
)

func (s *HTTPServer) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if req.Token == "" {
		return fiber.NewError(fiber.StatusBadRequest, "No token provided")
	}

	res, err := s.users.Login(c.UserContext(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorUnauthorized):
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		case errors.Is(err, common.ErrorAlreadyExists):
			return fiber.NewError(fiber.StatusConflict, "Email already linked to another account")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"message":       "Login successful",
		"user":          toUserResponse(res.User),
		"is_new_user":   res.IsNew,
		"access_token":  res.Tokens.AccessToken,
		"refresh_token": res.Tokens.RefreshToken,
	})
}

func (s *HTTPServer) refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if req.RefreshToken == "" {
		return fiber.NewError(fiber.StatusUnauthorized, msgNotLoggedIn)
	}

	pair, err := s.users.RefreshToken(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

func (s *HTTPServer) logout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if err := s.users.Logout(c.UserContext(), req.RefreshToken); err != nil {
		// the client forgets its tokens either way
		s.logger.Warn(c.UserContext(), "logout failed", "error", err)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (s *HTTPServer) me(c *fiber.Ctx) error {
	return c.JSON(toUserResponse(currentUser(c)))
}

func (s *HTTPServer) acceptTerms(c *fiber.Ctx) error {
	user, changed, err := s.users.AcceptTerms(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"terms_accepted": user.TermsAccepted, "changed": changed})
}
