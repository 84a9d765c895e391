package apikey

import (
	"net/http"

	"ftc-platform/pkg/access"
	"ftc-platform/pkg/errutil"
	"ftc-platform/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type Handler struct {
	svc      *Service
	enforcer *access.Enforcer
}

type HandlerParams struct {
	fx.In
	Service  *Service
	Enforcer *access.Enforcer
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{svc: p.Service, enforcer: p.Enforcer}
}

func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/admin/api-keys", middleware.APIKey(h.svc),
		middleware.RequireScope(h.enforcer, access.ResourceAPIKeys, access.ActionWrite))
	g.POST("", h.Create)
	g.DELETE("/:keyId", h.Revoke)
}

func (h *Handler) Create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}
	if p, ok := access.PrincipalFrom(c.Request.Context()); ok {
		in.CreatedBy = &p.KeyID
	}

	created, err := h.svc.CreateKey(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) Revoke(c *gin.Context) {
	if err := h.svc.Revoke(c.Request.Context(), c.Param("keyId")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
