package notification

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/notification"
)

// PolicyLister is the part of the policy store recipient resolution needs.
type PolicyLister interface {
	ListByObject(ctx context.Context, level authz.Level, object string) ([]*authz.Policy, error)
}

var _ notification.RecipientResolver = (*RecipientResolver)(nil)

// RecipientResolver expands a selector into the e-mails of every group
// member holding one of the selected roles, plus the explicit addresses.
type RecipientResolver struct {
	policies PolicyLister
}

func NewRecipientResolver(policies PolicyLister) *RecipientResolver {
	return &RecipientResolver{policies: policies}
}

// Resolve returns unique, lower-cased addresses in stable order. Subjects
// that are not e-mail addresses are skipped.
func (r *RecipientResolver) Resolve(ctx context.Context, selector notification.Selector) ([]string, error) {
	seen := make(map[string]struct{})
	add := func(addr string) {
		addr = authz.Normalize(addr)
		if !strings.Contains(addr, "@") {
			return
		}
		seen[addr] = struct{}{}
	}

	if group := authz.Normalize(selector.Group); group != "" && len(selector.Roles) > 0 {
		wanted := make(map[string]bool, len(selector.Roles))
		for _, role := range selector.Roles {
			wanted[authz.Normalize(role)] = true
		}
		policies, err := r.policies.ListByObject(ctx, authz.LevelGroup, group)
		if err != nil {
			return nil, fmt.Errorf("failed to list members of %s: %w", group, err)
		}
		for _, p := range policies {
			if wanted[p.Role()] {
				add(p.Subject())
			}
		}
	}
	for _, e := range selector.Emails {
		add(e)
	}

	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out, nil
}
