package httpserver

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/server/auth"
	"github.com/dmitrijs2005/recipebox/internal/server/llm"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	"github.com/dmitrijs2005/recipebox/internal/server/moderation"
)

const userLocalsKey = "user"

const (
	msgNotLoggedIn     = "Not logged in"
	msgTermsRequired   = "You must accept the terms of use first"
	msgSuggestFailed   = "Failed to get a recipe suggestion, please try again"
	msgInternal        = "internal server error"
	msgTooManyRequests = "Too many requests, slow down"
)

func (s *HTTPServer) accessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// the error handler has not run yet
			status = statusFor(err)
		}

		rid, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		s.logger.Info(c.UserContext(), "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start),
			"request_id", rid,
		)
		return err
	}
}

// requireUser resolves the bearer token to a user and stores it in Locals.
func (s *HTTPServer) requireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, msgNotLoggedIn)
		}

		claims, err := auth.ParseToken(token, s.jwtSecret)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, msgNotLoggedIn)
		}

		user, err := s.users.GetByExternalID(c.UserContext(), claims.ExternalID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, msgNotLoggedIn)
			}
			return err
		}
		if user.ID != claims.UserID {
			return fiber.NewError(fiber.StatusUnauthorized, msgNotLoggedIn)
		}

		c.Locals(userLocalsKey, user)
		return c.Next()
	}
}

func requireTerms() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !currentUser(c).TermsAccepted {
			return common.ErrTermsNotAccepted
		}
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(userLocalsKey).(*models.User)
	if u == nil {
		// routes without requireUser must not call this
		panic("httpserver: no user in request locals")
	}
	return u
}

// rateLimitSuggest caps suggestions per user per minute; max <= 0 disables it.
func rateLimitSuggest(max int) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return currentUser(c).ID
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, msgTooManyRequests)
		},
	})
}

func statusFor(err error) int {
	var fe *fiber.Error
	var re *moderation.RefusalError
	var ge *llm.GatewayError
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &re):
		return fiber.StatusBadRequest
	case errors.As(err, &ge):
		return fiber.StatusBadGateway
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return fiber.StatusUnauthorized
	case errors.Is(err, common.ErrTermsNotAccepted):
		return fiber.StatusForbidden
	case errors.Is(err, common.ErrorValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, common.ErrorAlreadyExists):
		return fiber.StatusConflict
	case errors.Is(err, common.ErrExportUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler turns every error returned by a handler into a JSON body.
// Only fiber errors and refusals carry their message to the client.
func (s *HTTPServer) errorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)

	var fe *fiber.Error
	var re *moderation.RefusalError
	switch {
	case errors.As(err, &fe):
		return c.Status(code).JSON(fiber.Map{"error": fe.Message})
	case errors.As(err, &re):
		return c.Status(code).JSON(fiber.Map{"error": re.Message, "is_cooking_error": true})
	}

	msg := msgInternal
	switch code {
	case fiber.StatusInternalServerError:
		s.logger.Error(c.UserContext(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)
	case fiber.StatusBadGateway:
		msg = msgSuggestFailed
	case fiber.StatusUnauthorized:
		msg = msgNotLoggedIn
	case fiber.StatusForbidden:
		msg = msgTermsRequired
	default:
		if text := statusText(code); text != "" {
			msg = text
		}
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

func statusText(code int) string {
	switch code {
	case fiber.StatusNotFound:
		return "not found"
	case fiber.StatusConflict:
		return "already exists"
	case fiber.StatusServiceUnavailable:
		return "export is not configured"
	case fiber.StatusBadRequest:
		return "invalid request"
	}
	return ""
}
