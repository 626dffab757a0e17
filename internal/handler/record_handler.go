package handler

import (
	"errors"
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/service"
	"backoffice/internal/workflow"
	"backoffice/pkg/pagination"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

// RecordHandler serves every approvable entity kind from one set of
// endpoints, registered once per resource path.
type RecordHandler struct {
	recordService service.RecordService
}

func NewRecordHandler(recordService service.RecordService) *RecordHandler {
	return &RecordHandler{recordService: recordService}
}

// RegisterRoutes binds the CRUD and verdict endpoints for each registered
// kind, e.g. /api/stocks, /api/stocks/:id/approve.
func (h *RecordHandler) RegisterRoutes(router *gin.RouterGroup) {
	for kind, cfg := range model.Kinds() {
		group := router.Group("/api/" + cfg.Resource)
		group.Use(middleware.RequireAuth())

		k := kind
		group.GET("", h.list(k))
		group.GET("/:id", h.get(k))
		group.POST("", h.create(k))
		group.PUT("/:id", h.update(k))
		group.DELETE("/:id", h.del(k))
		group.POST("/:id/approve", h.approve(k))
		group.POST("/:id/deny", h.deny(k))
	}
}

// statusFromError maps the service/engine error taxonomy onto HTTP codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

// list returns records of one kind, optionally filtered by status
// @Summary      List records
// @Description  Lists approvable records of one kind, newest first
// @Tags         records
// @Security     BearerAuth
// @Produce      json
// @Param        status  query  string  false  "Filter by workflow status"
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response
// @Router       /api/{resource} [get]
func (h *RecordHandler) list(kind model.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := pagination.Parse(c)
		tenantID := middleware.TenantFromContext(c)

		records, total, err := h.recordService.List(c.Request.Context(), kind, tenantID, c.Query("status"), params.Page, params.Limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{
			Items: records,
			Total: total,
			Page:  params.Page,
			Limit: params.Limit,
		}))
	}
}

func (h *RecordHandler) get(kind model.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := middleware.TenantFromContext(c)

		record, err := h.recordService.Get(c.Request.Context(), kind, tenantID, c.Param("id"))
		if err != nil {
			code := statusFromError(err)
			c.JSON(code, response.Error(code, err.Error()))
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
	}
}

// create submits a new record; whether it activates immediately depends on
// the caller's roles
func (h *RecordHandler) create(kind model.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}

		ctx := service.WithActorID(c.Request.Context(), middleware.UserIDFromContext(c))
		record, err := h.recordService.Create(ctx, kind, middleware.ActorFromContext(c), middleware.TenantFromContext(c), payload)
		if err != nil {
			code := statusFromError(err)
			c.JSON(code, response.Error(code, err.Error()))
			return
		}

		c.JSON(http.StatusCreated, response.Success(http.StatusCreated, record))
	}
}

func (h *RecordHandler) update(kind model.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}

		ctx := service.WithActorID(c.Request.Context(), middleware.UserIDFromContext(c))
		record, err := h.recordService.Update(ctx, kind, middleware.ActorFromContext(c), middleware.TenantFromContext(c), c.Param("id"), payload)
		if err != nil {
			code := statusFromError(err)
			c.JSON(code, response.Error(code, err.Error()))
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
	}
}

// del removes the record outright for privileged callers and stages it for
// deletion otherwise
func (h *RecordHandler) del(kind model.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := service.WithActorID(c.Request.Context(), middleware.UserIDFromContext(c))
		err := h.recordService.Delete(ctx, kind, middleware.ActorFromContext(c), middleware.TenantFromContext(c), c.Param("id"))
		if err != nil {
			code := statusFromError(err)
			c.JSON(code, response.Error(code, err.Error()))
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "delete processed"}))
	}
}

func (h *RecordHandler) approve(kind model.Kind) gin.HandlerFunc {
	return h.verdict(kind, true)
}

func (h *RecordHandler) deny(kind model.Kind) gin.HandlerFunc {
	return h.verdict(kind, false)
}

func (h *RecordHandler) verdict(kind model.Kind, approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := service.WithActorID(c.Request.Context(), middleware.UserIDFromContext(c))
		actor := middleware.ActorFromContext(c)
		tenantID := middleware.TenantFromContext(c)

		var record *service.RecordResponse
		var err error
		if approve {
			record, err = h.recordService.Approve(ctx, kind, actor, tenantID, c.Param("id"))
		} else {
			record, err = h.recordService.Deny(ctx, kind, actor, tenantID, c.Param("id"))
		}
		if err != nil {
			code := statusFromError(err)
			c.JSON(code, response.Error(code, err.Error()))
			return
		}

		// A nil record means the verdict removed it from the store.
		if record == nil {
			c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "record deleted"}))
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
	}
}
