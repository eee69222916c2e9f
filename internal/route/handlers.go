package route

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			Name    string          `json:"name"`
			GeoJSON json.RawMessage `json:"geojson"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Name == "" || len(req.GeoJSON) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "name and geojson required")
		}

		userID, _ := c.Locals("user_id").(string)
		def, err := svc.SaveDefinition(c.Context(), Definition{
			Name:      req.Name,
			GeoJSON:   req.GeoJSON,
			CreatedBy: userID,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidRouteData) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(def)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		defs, err := svc.List(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(defs)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		def, err := svc.GetDefinition(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "route not found")
		}
		return c.JSON(def)
	})
}
