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

var levelMutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "access_level_mutations_total",
		Help: "Total number of level registry mutations",
	},
	[]string{"operation", "status"}, // operation: create/update/delete/sync, status: success/failure
)

type LevelHandler struct {
	levelService *service.LevelService
	auditService *service.AuditService
	jwtService   *service.JWTService
}

func NewLevelHandler(levelService *service.LevelService, auditService *service.AuditService, jwtService *service.JWTService) *LevelHandler {
	return &LevelHandler{
		levelService: levelService,
		auditService: auditService,
		jwtService:   jwtService,
	}
}

func (h *LevelHandler) RegisterRoutes(app *fiber.App) {
	levelGroup := app.Group("/protected/access/levels")

	levelGroup.Get("/", h.ListLevels)
	levelGroup.Get("/:id", h.GetLevel)
	levelGroup.Post("/", h.CreateLevel)
	levelGroup.Put("/:id", h.UpdateLevel)
	levelGroup.Delete("/:id", h.DeleteLevel)
	levelGroup.Put("/:id/accesses", h.SyncLevelAccesses)
	levelGroup.Get("/:id/audit", h.GetLevelAudit)
}

// ListLevels supports the admin index view: optional name filter, optional
// sort, and an accessCounts switch that returns each level with the size of
// its grant set.
func (h *LevelHandler) ListLevels(c fiber.Ctx) error {
	nameFilter := c.Query("name")
	sortField := c.Query("sort_field")
	sortOrder := c.Query("sort_order")
	page := fiber.Query(c, "page", 1)
	limit := fiber.Query(c, "limit", config.ServiceConfig.PageSize)

	if fiber.Query(c, "accessCounts", false) {
		levels, err := h.levelService.ListWithAccessCounts(c.Context(), nameFilter, page, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"data": levels,
		})
	}

	levels, err := h.levelService.List(c.Context(), nameFilter, sortField, sortOrder, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": levels,
	})
}

// GetLevel returns the level together with its live accesses, pre-populating
// the edit form.
func (h *LevelHandler) GetLevel(c fiber.Ctx) error {
	levelID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid level ID format",
		})
	}

	level, err := h.levelService.Get(c.Context(), levelID)
	if err != nil {
		return errorResponse(c, err)
	}

	accesses, err := h.levelService.Accesses(c.Context(), levelID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"level":    level,
			"accesses": accesses,
		},
	})
}

func (h *LevelHandler) CreateLevel(c fiber.Ctx) error {
	actor, err := actorFromRequest(c, h.jwtService)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var request struct {
		Name      string   `json:"name"`
		AccessIDs []string `json:"accessIds"`
	}
	if err := c.Bind().Body(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	level, err := h.levelService.Create(c.Context(), actor, request.Name)
	if err != nil {
		levelMutations.WithLabelValues("create", "failure").Inc()
		return errorResponse(c, err)
	}
	levelMutations.WithLabelValues("create", "success").Inc()

	// The create form submits the initial association set in the same call.
	if len(request.AccessIDs) > 0 {
		accessIDs, parseErr := parseObjectIDs(request.AccessIDs)
		if parseErr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid access ID format",
			})
		}
		if err := h.levelService.SyncAccesses(c.Context(), actor, level.ID, accessIDs); err != nil {
			return errorResponse(c, err)
		}
	}

	log.Printf("Actor %s created level '%s'", actor.ID.Hex(), level.Name)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Level created successfully",
		"data":    level,
	})
}

func (h *LevelHandler) UpdateLevel(c fiber.Ctx) error {
	actor, err := actorFromRequest(c, h.jwtService)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	levelID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid level ID format",
		})
	}

	var request struct {
		Name string `json:"name"`
	}
	if err := c.Bind().Body(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	level, err := h.levelService.Update(c.Context(), actor, levelID, request.Name)
	if err != nil {
		levelMutations.WithLabelValues("update", "failure").Inc()
		return errorResponse(c, err)
	}
	levelMutations.WithLabelValues("update", "success").Inc()

	return c.JSON(fiber.Map{
		"message": "Level updated successfully",
		"data":    level,
	})
}

func (h *LevelHandler) DeleteLevel(c fiber.Ctx) error {
	actor, err := actorFromRequest(c, h.jwtService)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	levelID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid level ID format",
		})
	}

	if err := h.levelService.Delete(c.Context(), actor, levelID); err != nil {
		levelMutations.WithLabelValues("delete", "failure").Inc()
		return errorResponse(c, err)
	}
	levelMutations.WithLabelValues("delete", "success").Inc()

	return c.JSON(fiber.Map{
		"message": "Level deleted successfully",
	})
}

func (h *LevelHandler) SyncLevelAccesses(c fiber.Ctx) error {
	actor, err := actorFromRequest(c, h.jwtService)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	levelID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid level ID format",
		})
	}

	var request struct {
		AccessIDs []string `json:"accessIds"`
	}
	if err := c.Bind().Body(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	accessIDs, err := parseObjectIDs(request.AccessIDs)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid access ID format",
		})
	}

	if err := h.levelService.SyncAccesses(c.Context(), actor, levelID, accessIDs); err != nil {
		levelMutations.WithLabelValues("sync", "failure").Inc()
		return errorResponse(c, err)
	}
	levelMutations.WithLabelValues("sync", "success").Inc()

	return c.JSON(fiber.Map{
		"message": "Level accesses synced successfully",
	})
}

func (h *LevelHandler) GetLevelAudit(c fiber.Ctx) error {
	levelID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid level ID format",
		})
	}

	page := fiber.Query(c, "page", 1)
	limit := fiber.Query(c, "limit", config.ServiceConfig.PageSize)

	records, err := h.auditService.History(c.Context(), models.EntityLevel, levelID, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": records,
	})
}

func parseObjectIDs(hexIDs []string) ([]bson.ObjectID, error) {
	ids := make([]bson.ObjectID, 0, len(hexIDs))
	for _, hexID := range hexIDs {
		id, err := bson.ObjectIDFromHex(hexID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
