package authz

import (
	"fmt"
	"strings"
)

// Level is the scope a role is granted at.
type Level string

const (
	LevelUser         Level = "user"
	LevelGroup        Level = "group"
	LevelOrganization Level = "organization"
)

// SelfObject is the object of every user-level grant.
const SelfObject = "self"

var validLevels = map[Level]bool{
	LevelUser:         true,
	LevelGroup:        true,
	LevelOrganization: true,
}

func (l Level) String() string {
	return string(l)
}

func (l Level) IsValid() bool {
	return validLevels[l]
}

// AllowsAdminBypass reports whether a user-level admin is implicitly granted
// every action at this level.
func (l Level) AllowsAdminBypass() bool {
	return l == LevelGroup || l == LevelOrganization
}

func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if !l.IsValid() {
		return "", fmt.Errorf("invalid authz level: %s", s)
	}
	return l, nil
}
