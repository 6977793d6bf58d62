package httpserver

import (
	"github.com/gofiber/fiber/v2"
)

func (s *HTTPServer) suggest(c *fiber.Ctx) error {
	var req suggestRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}

	reply, err := s.recipes.Suggest(c.UserContext(), currentUser(c).ID, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"recipe": reply})
}

func (s *HTTPServer) clearHistory(c *fiber.Ctx) error {
	if err := s.recipes.ClearHistory(c.UserContext(), currentUser(c).ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (s *HTTPServer) history(c *fiber.Ctx) error {
	turns, err := s.recipes.History(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return err
	}
	out := make([]turnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, turnResponse{Role: t.Role, Content: t.Content, CreatedAt: t.CreatedAt})
	}
	return c.JSON(fiber.Map{"history": out})
}
