package access

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && r.act == p.act
`

// Resources guarded by API-key scopes.
const (
	ResourceAIEvaluations = "ai-evaluations"
	ResourceTrainingData  = "training-data"
	ResourceSessions      = "telegram-sessions"
	ResourceAPIKeys       = "api-keys"

	ActionRead  = "read"
	ActionWrite = "write"
)

// Scopes granted to API keys.
const (
	ScopeAIEvaluationsRead  = "ai_evaluations:read"
	ScopeAIEvaluationsWrite = "ai_evaluations:write"
	ScopeTrainingDataRead   = "training_data:read"
	ScopeSessionsAdmin      = "sessions:admin"
	ScopeAdmin              = "admin"
)

var defaultPolicies = [][]string{
	{ScopeAIEvaluationsRead, ResourceAIEvaluations, ActionRead},
	{ScopeAIEvaluationsWrite, ResourceAIEvaluations, ActionWrite},
	{ScopeTrainingDataRead, ResourceTrainingData, ActionRead},
	{ScopeSessionsAdmin, ResourceSessions, ActionWrite},
}

var Module = fx.Module("access", fx.Provide(NewEnforcer))

type Enforcer struct {
	e *casbin.Enforcer
}

// NewEnforcer builds the scope enforcer. The admin scope inherits every other scope,
// and a write scope implies read on the same resource.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	for _, p := range defaultPolicies {
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, err
		}
		if _, err := e.AddGroupingPolicy(ScopeAdmin, p[0]); err != nil {
			return nil, err
		}
	}
	if _, err := e.AddGroupingPolicy(ScopeAIEvaluationsWrite, ScopeAIEvaluationsRead); err != nil {
		return nil, err
	}
	if _, err := e.AddPolicy(ScopeAdmin, ResourceAPIKeys, ActionWrite); err != nil {
		return nil, err
	}

	return &Enforcer{e: e}, nil
}

// Allowed reports whether any of scopes grants act on obj.
func (a *Enforcer) Allowed(scopes []string, obj, act string) bool {
	for _, scope := range scopes {
		ok, err := a.e.Enforce(scope, obj, act)
		if err != nil {
			zap.L().Warn("enforce failed", zap.String("scope", scope), zap.Error(err))
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// ValidScope reports whether scope can be granted to an API key.
func ValidScope(scope string) bool {
	switch scope {
	case ScopeAIEvaluationsRead, ScopeAIEvaluationsWrite, ScopeTrainingDataRead, ScopeSessionsAdmin, ScopeAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller of a machine endpoint.
type Principal struct {
	KeyID  string
	Name   string
	Scopes []string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
