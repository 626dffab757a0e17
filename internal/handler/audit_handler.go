package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/service"
	"backoffice/pkg/pagination"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireRole(model.UserRoleSuperAdmin, model.UserRoleAdmin, model.UserRoleManager))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves the tenant's audit trail, newest first
// @Summary      Get audit logs
// @Description  Retrieves the audit trail, optionally filtered by action or entity
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action     query     string  false  "Filter by action"
// @Param        entity_id  query     string  false  "Filter by entity id"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	filter := repository.AuditFilter{
		TenantID: middleware.TenantFromContext(c),
		Action:   c.Query("action"),
		EntityID: c.Query("entity_id"),
		Page:     params.Page,
		Limit:    params.Limit,
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve audit logs: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{
		Items: logs,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}))
}
