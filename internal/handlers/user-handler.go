package handlers

import (
	"access_service/internal/service"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type UserHandler struct {
	userService *service.UserService
	jwtService  *service.JWTService
}

func NewUserHandler(userService *service.UserService, jwtService *service.JWTService) *UserHandler {
	return &UserHandler{
		userService: userService,
		jwtService:  jwtService,
	}
}

func (h *UserHandler) RegisterRoutes(app *fiber.App) {
	userGroup := app.Group("/protected/access/users")

	userGroup.Get("/:userId", h.GetUser)
	userGroup.Put("/:userId/level", h.AssignLevel)
	userGroup.Get("/:userId/overrides", h.GetOverrides)
	userGroup.Put("/:userId/overrides/:accessId", h.SetOverride)
	userGroup.Delete("/:userId/overrides/:accessId", h.ClearOverride)
}

func (h *UserHandler) GetUser(c fiber.Ctx) error {
	userID, err := bson.ObjectIDFromHex(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID format",
		})
	}

	user, err := h.userService.Get(c.Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"data": user,
	})
}

func (h *UserHandler) AssignLevel(c fiber.Ctx) error {
	actor, err := actorFromRequest(c, h.jwtService)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	userID, err := bson.ObjectIDFromHex(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID format",
		})
	}

	var request struct {
		LevelID string `json:"levelId"`
	}
	if err := c.Bind().Body(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	levelID, err := bson.ObjectIDFromHex(request.LevelID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid level ID format",
		})
	}

	if err := h.userService.AssignLevel(c.Context(), actor, userID, levelID); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User level assigned successfully",
	})
}

func (h *UserHandler) GetOverrides(c fiber.Ctx) error {
	userID, err := bson.ObjectIDFromHex(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID format",
		})
	}

	overrides, err := h.userService.Overrides(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": overrides,
	})
}

func (h *UserHandler) SetOverride(c fiber.Ctx) error {
	actor, err := actorFromRequest(c, h.jwtService)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	userID, err := bson.ObjectIDFromHex(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID format",
		})
	}

	accessID, err := bson.ObjectIDFromHex(c.Params("accessId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid access ID format",
		})
	}

	var request struct {
		Granted bool `json:"granted"`
	}
	if err := c.Bind().Body(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.userService.SetOverride(c.Context(), actor, userID, accessID, request.Granted); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Access override set successfully",
	})
}

func (h *UserHandler) ClearOverride(c fiber.Ctx) error {
	actor, err := actorFromRequest(c, h.jwtService)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	userID, err := bson.ObjectIDFromHex(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID format",
		})
	}

	accessID, err := bson.ObjectIDFromHex(c.Params("accessId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid access ID format",
		})
	}

	if err := h.userService.ClearOverride(c.Context(), actor, userID, accessID); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Access override cleared successfully",
	})
}
