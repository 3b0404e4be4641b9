package handlers

import (
	"access_service/internal/config"
	"access_service/internal/models"
	"access_service/internal/service"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var accessMutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "access_registry_mutations_total",
		Help: "Total number of access registry mutations",
	},
	[]string{"operation", "status"}, // operation: create/update/delete, status: success/failure
)

type AccessHandler struct {
	accessService *service.AccessService
	auditService  *service.AuditService
	jwtService    *service.JWTService
}

func NewAccessHandler(accessService *service.AccessService, auditService *service.AuditService, jwtService *service.JWTService) *AccessHandler {
	return &AccessHandler{
		accessService: accessService,
		auditService:  auditService,
		jwtService:    jwtService,
	}
}

func (h *AccessHandler) RegisterRoutes(app *fiber.App) {
	accessGroup := app.Group("/protected/access/accesses")

	accessGroup.Get("/", h.ListAccesses)
	accessGroup.Get("/:id", h.GetAccess)
	accessGroup.Post("/", h.CreateAccess)
	accessGroup.Put("/:id", h.UpdateAccess)
	accessGroup.Delete("/:id", h.DeleteAccess)
	accessGroup.Get("/:id/audit", h.GetAccessAudit)
}

func (h *AccessHandler) ListAccesses(c fiber.Ctx) error {
	routeFilter := c.Query("route")
	page := fiber.Query(c, "page", 1)
	limit := fiber.Query(c, "limit", config.ServiceConfig.PageSize)

	accesses, err := h.accessService.List(c.Context(), routeFilter, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": accesses,
	})
}

func (h *AccessHandler) GetAccess(c fiber.Ctx) error {
	accessID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid access ID format",
		})
	}

	access, err := h.accessService.Get(c.Context(), accessID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"data": access,
	})
}

func (h *AccessHandler) CreateAccess(c fiber.Ctx) error {
	actor, err := actorFromRequest(c, h.jwtService)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var request struct {
		Route string `json:"route"`
	}
	if err := c.Bind().Body(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	access, err := h.accessService.Create(c.Context(), actor, request.Route)
	if err != nil {
		accessMutations.WithLabelValues("create", "failure").Inc()
		return errorResponse(c, err)
	}
	accessMutations.WithLabelValues("create", "success").Inc()

	log.Printf("Actor %s created access '%s'", actor.ID.Hex(), access.Route)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Access created successfully",
		"data":    access,
	})
}

func (h *AccessHandler) UpdateAccess(c fiber.Ctx) error {
	actor, err := actorFromRequest(c, h.jwtService)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	accessID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid access ID format",
		})
	}

	var request struct {
		Route string `json:"route"`
	}
	if err := c.Bind().Body(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	access, err := h.accessService.Update(c.Context(), actor, accessID, request.Route)
	if err != nil {
		accessMutations.WithLabelValues("update", "failure").Inc()
		return errorResponse(c, err)
	}
	accessMutations.WithLabelValues("update", "success").Inc()

	return c.JSON(fiber.Map{
		"message": "Access updated successfully",
		"data":    access,
	})
}

func (h *AccessHandler) DeleteAccess(c fiber.Ctx) error {
	actor, err := actorFromRequest(c, h.jwtService)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	accessID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid access ID format",
		})
	}

	if err := h.accessService.Delete(c.Context(), actor, accessID); err != nil {
		accessMutations.WithLabelValues("delete", "failure").Inc()
		return errorResponse(c, err)
	}
	accessMutations.WithLabelValues("delete", "success").Inc()

	return c.JSON(fiber.Map{
		"message": "Access deleted successfully",
	})
}

func (h *AccessHandler) GetAccessAudit(c fiber.Ctx) error {
	accessID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid access ID format",
		})
	}

	page := fiber.Query(c, "page", 1)
	limit := fiber.Query(c, "limit", config.ServiceConfig.PageSize)

	records, err := h.auditService.History(c.Context(), models.EntityAccess, accessID, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": records,
	})
}
