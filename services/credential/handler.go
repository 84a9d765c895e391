package credential

import (
	"net/http"
	"strconv"

	"ftc-platform/pkg/access"
	"ftc-platform/pkg/db/pagination"
	"ftc-platform/pkg/errutil"
	"ftc-platform/pkg/middleware"
	"ftc-platform/pkg/task"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type Handler struct {
	svc      *Service
	auth     middleware.KeyAuthenticator
	enforcer *access.Enforcer
	enqueuer task.Enqueuer
}

type HandlerParams struct {
	fx.In
	Service  *Service
	Auth     middleware.KeyAuthenticator
	Enforcer *access.Enforcer
	Enqueuer task.Enqueuer `optional:"true"`
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{svc: p.Service, auth: p.Auth, enforcer: p.Enforcer, enqueuer: p.Enqueuer}
}

func (h *Handler) Register(r gin.IRouter) {
	tg := r.Group("/telegram", middleware.UserID())
	tg.POST("/auth/start", h.StartAuth)
	tg.POST("/auth/code", h.SendPhoneCode)
	tg.POST("/auth/verify", h.VerifyAndStore)
	tg.GET("/auth/status", h.GetAuthStatus)
	tg.DELETE("/auth", h.DeleteAuth)
	tg.POST("/contacts/import", h.ImportContacts)
	tg.GET("/contacts", h.ListContacts)

	admin := r.Group("/admin/telegram", middleware.APIKey(h.auth),
		middleware.RequireScope(h.enforcer, access.ResourceSessions, access.ActionWrite))
	admin.POST("/sessions/cleanup", h.Cleanup)
}

func (h *Handler) StartAuth(c *gin.Context) {
	var in StartAuthInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			_ = c.Error(errutil.BadRequest("invalid request body", err))
			return
		}
	}

	status, err := h.svc.StartAuth(c.Request.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) SendPhoneCode(c *gin.Context) {
	var in SendCodeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	status, err := h.svc.SendPhoneCode(c.Request.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) VerifyAndStore(c *gin.Context) {
	var in VerifyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	status, err := h.svc.VerifyAndStore(c.Request.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) GetAuthStatus(c *gin.Context) {
	status, err := h.svc.GetAuthStatus(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) DeleteAuth(c *gin.Context) {
	if err := h.svc.DeleteAuth(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ImportContacts(c *gin.Context) {
	res, err := h.svc.ImportContacts(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListContacts(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(errutil.BadRequest("invalid pagination", err))
		return
	}

	contacts, info, err := h.svc.ListContacts(c.Request.Context(), middleware.CurrentUserID(c), page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts, "count": len(contacts), "pageInfo": info})
}

// Cleanup previews by default; dryRun=false deletes, and async=true hands the
// deletion to the worker.
func (h *Handler) Cleanup(c *gin.Context) {
	dryRun, err := strconv.ParseBool(c.DefaultQuery("dryRun", "true"))
	if err != nil {
		_ = c.Error(errutil.BadRequest("dryRun must be a boolean", err))
		return
	}
	async, err := strconv.ParseBool(c.DefaultQuery("async", "false"))
	if err != nil {
		_ = c.Error(errutil.BadRequest("async must be a boolean", err))
		return
	}

	if async {
		if h.enqueuer == nil {
			_ = c.Error(errutil.New(errutil.StatusServiceUnavailable, "task queue is not configured"))
			return
		}
		t, err := NewCleanupTask(dryRun)
		if err != nil {
			_ = c.Error(errutil.Internal("failed to build task", err))
			return
		}
		info, err := h.enqueuer.Enqueue(c.Request.Context(), t)
		if err != nil {
			_ = c.Error(errutil.Internal("failed to enqueue cleanup", err))
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"taskId": info.ID, "queue": info.Queue})
		return
	}

	res, err := h.svc.CleanupExpiredSessions(c.Request.Context(), dryRun)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}
