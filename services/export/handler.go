package export

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
	r.GET("/events/:eventId/training-data",
		middleware.APIKey(h.auth),
		middleware.RequireScope(h.enforcer, access.ResourceTrainingData, access.ActionRead),
		h.exportEnabled,
		h.TrainingData,
	)
}

func (h *Handler) exportEnabled(c *gin.Context) {
	if h.flags != nil && !h.flags.IsEnabled(c.Request.Context(), featureflags.TrainingDataExport, c.Param("eventId"), true) {
		middleware.Abort(c, errutil.New(errutil.StatusServiceUnavailable, "training data export is disabled"))
		return
	}
	c.Next()
}

func (h *Handler) TrainingData(c *gin.Context) {
	opts, err := parseOptions(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	exp, err := h.svc.TrainingData(ctx, c.Param("eventId"), opts)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if opts.Archive {
		if _, err := h.svc.Archive(ctx, exp); err != nil {
			_ = c.Error(err)
			return
		}
	}
	c.JSON(http.StatusOK, exp)
}

func parseOptions(c *gin.Context) (Options, error) {
	opts := DefaultOptions()
	var details []errutil.Detail

	boolParam := func(name string, dst *bool) {
		raw, ok := c.GetQuery(name)
		if !ok {
			return
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			details = append(details, errutil.Detail{Field: name, Message: "must be a boolean"})
			return
		}
		*dst = v
	}
	boolParam("includeCompleted", &opts.IncludeCompleted)
	boolParam("includeInProgress", &opts.IncludeInProgress)
	boolParam("archive", &opts.Archive)

	if raw, ok := c.GetQuery("minEvaluations"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, errutil.Detail{Field: "minEvaluations", Message: "must be an integer"})
		} else {
			opts.MinEvaluations = n
		}
	}
	if raw, ok := c.GetQuery("format"); ok {
		opts.Format = Format(raw)
	}

	if len(details) > 0 {
		return opts, errutil.New(errutil.StatusBadRequest, "invalid query parameters", errutil.WithDetails(details...))
	}
	return opts, nil
}
