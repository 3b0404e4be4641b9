package handlers

import (
	"access_service/internal/service"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	permissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"result"}, // result: allowed/denied/error
	)

	permissionCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "access_permission_check_duration_seconds",
			Help:    "Time spent resolving permission checks",
			Buckets: prometheus.DefBuckets,
		},
	)
)

type PermissionHandler struct {
	permissionService *service.PermissionService
}

func NewPermissionHandler(permissionService *service.PermissionService) *PermissionHandler {
	return &PermissionHandler{
		permissionService: permissionService,
	}
}

func (h *PermissionHandler) RegisterRoutes(app *fiber.App) {
	permissionGroup := app.Group("/protected/access/permissions")

	permissionGroup.Get("/check", h.Check)
	permissionGroup.Post("/check-batch", h.CheckBatch)
	permissionGroup.Get("/users/:userId", h.GetUserPermissions)
}

// Check answers one authorization question. Denial is a 200 with
// allowed=false; only unknown users and storage failures are errors.
func (h *PermissionHandler) Check(c fiber.Ctx) error {
	timer := prometheus.NewTimer(permissionCheckDuration)
	defer timer.ObserveDuration()

	userID, err := bson.ObjectIDFromHex(c.Query("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID format",
		})
	}

	route := c.Query("route")
	if route == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Route is required",
		})
	}

	var allowed bool
	if fiber.Query(c, "strict", false) {
		allowed, err = h.permissionService.IsPermittedStrict(c.Context(), userID, route)
	} else {
		allowed, err = h.permissionService.IsPermitted(c.Context(), userID, route)
	}
	if err != nil {
		permissionChecks.WithLabelValues("error").Inc()
		return errorResponse(c, err)
	}

	if allowed {
		permissionChecks.WithLabelValues("allowed").Inc()
	} else {
		permissionChecks.WithLabelValues("denied").Inc()
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"userId":  c.Query("userId"),
			"route":   route,
			"allowed": allowed,
		},
	})
}

// CheckBatch resolves many keys for one user from a single snapshot; the
// middleware calls this once per request instead of once per key.
func (h *PermissionHandler) CheckBatch(c fiber.Ctx) error {
	timer := prometheus.NewTimer(permissionCheckDuration)
	defer timer.ObserveDuration()

	var request struct {
		UserID string   `json:"userId"`
		Routes []string `json:"routes"`
	}
	if err := c.Bind().Body(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	userID, err := bson.ObjectIDFromHex(request.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID format",
		})
	}

	checker, err := h.permissionService.NewChecker(c.Context(), userID)
	if err != nil {
		permissionChecks.WithLabelValues("error").Inc()
		return errorResponse(c, err)
	}

	results := make(map[string]bool, len(request.Routes))
	for _, route := range request.Routes {
		allowed := checker.Allowed(route)
		results[route] = allowed
		if allowed {
			permissionChecks.WithLabelValues("allowed").Inc()
		} else {
			permissionChecks.WithLabelValues("denied").Inc()
		}
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"userId":  request.UserID,
			"results": results,
		},
	})
}

func (h *PermissionHandler) GetUserPermissions(c fiber.Ctx) error {
	userID, err := bson.ObjectIDFromHex(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID format",
		})
	}

	permissions, err := h.permissionService.UserPermissions(c.Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}

	log.Printf("Collected %d permissions for user %s", len(permissions), userID.Hex())

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"userId":      userID.Hex(),
			"permissions": permissions,
		},
	})
}
