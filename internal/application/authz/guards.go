package authz

import (
	"context"

	"vulntrack/internal/domain/authz"
)

// GuardRequest is what guards know about the operation being protected.
type GuardRequest struct {
	Subject      string
	Group        string
	Organization string
}

// GuardResult is a guard's verdict. Reason is for logs only and never
// reaches the client.
type GuardResult struct {
	Allowed bool
	Reason  string
}

func pass() GuardResult { return GuardResult{Allowed: true} }

func deny(reason string) GuardResult { return GuardResult{Reason: reason} }

// Guard checks one precondition of a protected operation.
type Guard func(ctx context.Context, req GuardRequest) GuardResult

// RunGuards runs guards in order and stops at the first failure.
func RunGuards(ctx context.Context, req GuardRequest, guards ...Guard) GuardResult {
	for _, g := range guards {
		if res := g(ctx, req); !res.Allowed {
			return res
		}
	}
	return pass()
}

// Guards builds guards backed by a Service.
type Guards struct {
	svc *Service
}

func NewGuards(svc *Service) *Guards {
	return &Guards{svc: svc}
}

// RequireLogin fails for anonymous requests.
func (g *Guards) RequireLogin() Guard {
	return func(_ context.Context, req GuardRequest) GuardResult {
		if authz.Normalize(req.Subject) == "" {
			return deny("login required")
		}
		return pass()
	}
}

// RequireLevelAction checks action against the request's object for level.
func (g *Guards) RequireLevelAction(level authz.Level, action string) Guard {
	return func(ctx context.Context, req GuardRequest) GuardResult {
		var object string
		switch level {
		case authz.LevelGroup:
			object = req.Group
		case authz.LevelOrganization:
			object = req.Organization
		default:
			object = authz.SelfObject
		}
		if object == "" {
			return deny("no " + string(level) + " in request")
		}
		if !g.svc.Authorize(ctx, level, req.Subject, object, action) {
			return deny(string(level) + " action " + action + " not granted")
		}
		return pass()
	}
}

// RequireService fails unless the request's group is entitled to svc.
func (g *Guards) RequireService(svc authz.Service) Guard {
	return func(ctx context.Context, req GuardRequest) GuardResult {
		if req.Group == "" {
			return deny("no group in request")
		}
		ok, err := g.svc.HasService(ctx, req.Group, svc)
		if err != nil {
			return deny("service lookup failed")
		}
		if !ok {
			return deny("group lacks service " + string(svc))
		}
		return pass()
	}
}

// RequireStaff fails unless the subject belongs to the operating
// organization.
func (g *Guards) RequireStaff() Guard {
	return func(_ context.Context, req GuardRequest) GuardResult {
		if !g.svc.roles.IsStaff(req.Subject) {
			return deny("staff only")
		}
		return pass()
	}
}
