package authz

import (
	"fmt"
	"strings"
	"time"
)

// Policy grants role to subject over object at a level. At most one policy
// exists per (level, subject, object); writing again replaces the role.
type Policy struct {
	level        Level
	subject      string
	object       string
	role         string
	modifiedBy   string
	modifiedDate time.Time
}

// Normalize lower-cases and trims an identifier. Every subject and object
// crossing into this package goes through it.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func NewPolicy(level Level, subject, object, role, modifiedBy string, now time.Time) (*Policy, error) {
	if !level.IsValid() {
		return nil, fmt.Errorf("invalid level: %s", level)
	}
	subject = Normalize(subject)
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	object = Normalize(object)
	if level == LevelUser {
		object = SelfObject
	}
	if object == "" {
		return nil, fmt.Errorf("object is required")
	}
	role = Normalize(role)
	if role == "" {
		return nil, fmt.Errorf("role is required")
	}

	return &Policy{
		level:        level,
		subject:      subject,
		object:       object,
		role:         role,
		modifiedBy:   Normalize(modifiedBy),
		modifiedDate: now.UTC(),
	}, nil
}

func ReconstructPolicy(level Level, subject, object, role, modifiedBy string, modifiedDate time.Time) *Policy {
	return &Policy{
		level:        level,
		subject:      subject,
		object:       object,
		role:         role,
		modifiedBy:   modifiedBy,
		modifiedDate: modifiedDate,
	}
}

func (p *Policy) Level() Level            { return p.level }
func (p *Policy) Subject() string         { return p.subject }
func (p *Policy) Object() string          { return p.object }
func (p *Policy) Role() string            { return p.role }
func (p *Policy) ModifiedBy() string      { return p.modifiedBy }
func (p *Policy) ModifiedDate() time.Time { return p.modifiedDate }

// FilterByLevel keeps the policies granted at level.
func FilterByLevel(policies []*Policy, level Level) []*Policy {
	out := make([]*Policy, 0, len(policies))
	for _, p := range policies {
		if p.level == level {
			out = append(out, p)
		}
	}
	return out
}

// HasUserRole reports whether policies hold role at the user level.
func HasUserRole(policies []*Policy, role string) bool {
	for _, p := range policies {
		if p.level == LevelUser && p.role == role {
			return true
		}
	}
	return false
}
