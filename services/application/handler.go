package application

import (
	"net/http"

	"ftc-platform/pkg/errutil"
	"ftc-platform/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/applications/:applicationId/completion", middleware.UserID(), h.GetCompletion)
}

// GetCompletion is limited to the applicant who owns the application.
func (h *Handler) GetCompletion(c *gin.Context) {
	ctx := c.Request.Context()
	app, err := h.svc.GetApplication(ctx, c.Param("applicationId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if app.UserID != middleware.CurrentUserID(c) {
		_ = c.Error(errutil.Forbidden("not the owner of this application", nil))
		return
	}

	result, err := h.svc.GetCompletion(ctx, app.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
