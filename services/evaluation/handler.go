package evaluation

import (
	"net/http"
	"strconv"

	"ftc-platform/pkg/access"
	"ftc-platform/pkg/errutil"
	"ftc-platform/pkg/featureflags"
	"ftc-platform/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type Handler struct {
	svc      *Service
	auth     middleware.KeyAuthenticator
	enforcer *access.Enforcer
	flags    featureflags.FeatureFlag
}

type HandlerParams struct {
	fx.In
	Service  *Service
	Auth     middleware.KeyAuthenticator
	Enforcer *access.Enforcer
	Flags    featureflags.FeatureFlag `optional:"true"`
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{svc: p.Service, auth: p.Auth, enforcer: p.Enforcer, flags: p.Flags}
}

func (h *Handler) Register(r gin.IRouter) {
	read := middleware.RequireScope(h.enforcer, access.ResourceAIEvaluations, access.ActionRead)
	write := middleware.RequireScope(h.enforcer, access.ResourceAIEvaluations, access.ActionWrite)

	g := r.Group("", middleware.APIKey(h.auth))
	g.GET("/evaluation-criteria", read, h.ListCriteria)
	g.GET("/events/:eventId/ai-evaluations", read, h.ListAIEvaluations)
	g.POST("/events/:eventId/ai-evaluations", write, h.ingestionEnabled, h.CreateAIEvaluation)
	g.POST("/events/:eventId/ai-evaluations/batch", write, h.ingestionEnabled, h.BatchCreateAIEvaluations)
}

func (h *Handler) ingestionEnabled(c *gin.Context) {
	if h.flags != nil && !h.flags.IsEnabled(c.Request.Context(), featureflags.AIEvaluationIngestion, c.Param("eventId"), true) {
		middleware.Abort(c, errutil.New(errutil.StatusServiceUnavailable, "ai evaluation ingestion is disabled"))
		return
	}
	c.Next()
}

type criterionView struct {
	Criterion
	CategoryDescription string `json:"categoryDescription"`
}

func (h *Handler) ListCriteria(c *gin.Context) {
	criteria, err := h.svc.ActiveCriteria(c.Request.Context())
	if err != nil {
		_ = c.Error(errutil.Internal("failed to list criteria", err))
		return
	}

	out := make([]criterionView, 0, len(criteria))
	for _, cr := range criteria {
		out = append(out, criterionView{Criterion: cr, CategoryDescription: CategoryDescription(cr.Category)})
	}
	c.JSON(http.StatusOK, gin.H{"criteria": out})
}

func (h *Handler) ListAIEvaluations(c *gin.Context) {
	evals, summary, err := h.svc.ListAIEvaluations(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"evaluations": evals,
		"summary":     summary,
		"count":       len(evals),
	})
}

func (h *Handler) CreateAIEvaluation(c *gin.Context) {
	var in EvaluationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	rec, err := h.svc.CreateEvaluation(c.Request.Context(), c.Param("eventId"), in, "")
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"evaluation": rec})
}

func (h *Handler) BatchCreateAIEvaluations(c *gin.Context) {
	dryRun, err := strconv.ParseBool(c.DefaultQuery("dryRun", "false"))
	if err != nil {
		_ = c.Error(errutil.BadRequest("dryRun must be a boolean", err))
		return
	}

	var in BatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	result, err := h.svc.BatchCreateEvaluations(c.Request.Context(), c.Param("eventId"), in, dryRun)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
