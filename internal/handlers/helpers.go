package handlers

import (
	"access_service/internal/apperrors"
	"access_service/internal/models"
	"access_service/internal/service"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// actorFromRequest builds the explicit actor every mutating call requires.
// The gateway forwards the authenticated user either as a bearer token or as
// an X-User-ID header; the address is always the client IP.
func actorFromRequest(c fiber.Ctx, jwtService *service.JWTService) (models.Actor, error) {
	auth := c.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && jwtService != nil {
		return jwtService.ParseActor(strings.TrimPrefix(auth, "Bearer "), c.IP())
	}

	headerID := c.Get("X-User-ID")
	if headerID == "" {
		return models.Actor{}, errors.New("no actor identity on request")
	}

	actorID, err := bson.ObjectIDFromHex(headerID)
	if err != nil {
		return models.Actor{}, errors.New("invalid X-User-ID header")
	}

	return models.Actor{ID: actorID, Address: c.IP()}, nil
}

func statusFromError(err error) int {
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		return fiber.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrLevelInUse):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c fiber.Ctx, err error) error {
	return c.Status(statusFromError(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}
