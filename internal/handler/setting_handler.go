package handler

import (
	"errors"
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type SettingHandler struct {
	settingService service.SettingService
}

func NewSettingHandler(settingService service.SettingService) *SettingHandler {
	return &SettingHandler{settingService: settingService}
}

func (h *SettingHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/settings")
	{
		group.GET("", middleware.RequireAuth(), h.ListSettings)
		group.GET("/:key", middleware.RequireAuth(), h.GetSetting)
		group.PUT("/:key", middleware.RequireRole(model.UserRoleSuperAdmin, model.UserRoleAdmin), h.PutSetting)
		group.DELETE("/:key", middleware.RequireRole(model.UserRoleSuperAdmin, model.UserRoleAdmin), h.DeleteSetting)
	}
}

// ListSettings returns the tenant's configuration entries
// @Summary      List settings
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.SettingResponse}
// @Router       /api/settings [get]
func (h *SettingHandler) ListSettings(c *gin.Context) {
	settings, err := h.settingService.List(c.Request.Context(), middleware.TenantFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, settings))
}

// GetSetting returns a single configuration entry
func (h *SettingHandler) GetSetting(c *gin.Context) {
	setting, err := h.settingService.Get(c.Request.Context(), middleware.TenantFromContext(c), c.Param("key"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "setting not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, setting))
}

// PutSetting creates or replaces a configuration entry
// @Summary      Put setting
// @Tags         settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        key      path      string                      true  "Setting key"
// @Param        payload  body      service.PutSettingRequest   true  "Setting value"
// @Success      200      {object}  response.Response{data=service.SettingResponse}
// @Router       /api/settings/{key} [put]
func (h *SettingHandler) PutSetting(c *gin.Context) {
	var req service.PutSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	username, _ := c.Get(middleware.CtxUsername)
	updatedBy, _ := username.(string)

	ctx := service.WithActorID(c.Request.Context(), middleware.UserIDFromContext(c))
	setting, err := h.settingService.Put(ctx, middleware.TenantFromContext(c), c.Param("key"), req.Value, updatedBy)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, setting))
}

// DeleteSetting removes a configuration entry
func (h *SettingHandler) DeleteSetting(c *gin.Context) {
	err := h.settingService.Delete(c.Request.Context(), middleware.TenantFromContext(c), c.Param("key"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "setting not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "setting deleted"}))
}
