package httpserver

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/recipebox/internal/common"
)

func (s *HTTPServer) listFavorites(c *fiber.Ctx) error {
	favs, err := s.favorites.List(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return err
	}
	out := make([]favoriteResponse, 0, len(favs))
	for _, f := range favs {
		out = append(out, toFavoriteResponse(f))
	}
	return c.JSON(fiber.Map{"favorites": out})
}

func (s *HTTPServer) addFavorite(c *fiber.Ctx) error {
	var req addFavoriteRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}

	fav, err := s.favorites.Add(c.UserContext(), currentUser(c).ID, req.Title, req.Recipe)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			return fiber.NewError(fiber.StatusBadRequest, "No recipe content provided")
		case errors.Is(err, common.ErrorAlreadyExists):
			return fiber.NewError(fiber.StatusConflict, "This recipe is already in your favorites!")
		}
		return err
	}

	return c.JSON(fiber.Map{"message": "Recipe starred successfully", "recipe": toFavoriteResponse(*fav)})
}

// removeFavorite takes the id from the path or from a {"recipe_id"} body.
func (s *HTTPServer) removeFavorite(c *fiber.Ctx) error {
	var id int64
	if c.Params("id") != "" {
		n, err := c.ParamsInt("id")
		if err != nil || n <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid recipe id")
		}
		id = int64(n)
	} else {
		var req removeFavoriteRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		id = req.RecipeID
	}

	removed, err := s.favorites.Remove(c.UserContext(), currentUser(c).ID, id)
	if err != nil {
		return err
	}
	if !removed {
		return fiber.NewError(fiber.StatusNotFound, "Recipe not found")
	}
	return c.JSON(fiber.Map{"message": "Recipe removed from favorites"})
}

func (s *HTTPServer) exportFavorites(c *fiber.Ctx) error {
	res, err := s.favorites.Export(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"url": res.URL, "key": res.Key})
}
