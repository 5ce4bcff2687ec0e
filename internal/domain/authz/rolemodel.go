package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed roles.yaml
var rolesYAML []byte

type levelTables struct {
	Default RoleTable `yaml:"default"`
	Staff   RoleTable `yaml:"staff"`
}

// RoleModel holds the default and staff-extended role tables of every
// level. It is immutable once built.
type RoleModel struct {
	staffDomain string
	defaults    map[Level]RoleTable
	extended    map[Level]RoleTable
}

// NewRoleModel parses the embedded role tables. Subjects whose e-mail ends
// in "@"+staffDomain get the extended tables.
func NewRoleModel(staffDomain string) (*RoleModel, error) {
	return ParseRoleModel(rolesYAML, staffDomain)
}

func ParseRoleModel(data []byte, staffDomain string) (*RoleModel, error) {
	var raw map[Level]levelTables
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse role tables: %w", err)
	}

	m := &RoleModel{
		staffDomain: Normalize(staffDomain),
		defaults:    make(map[Level]RoleTable),
		extended:    make(map[Level]RoleTable),
	}
	for _, level := range []Level{LevelUser, LevelGroup, LevelOrganization} {
		tables, ok := raw[level]
		if !ok || len(tables.Default) == 0 {
			return nil, fmt.Errorf("role tables for level %s are missing", level)
		}
		m.defaults[level] = tables.Default
		m.extended[level] = tables.Default.extend(tables.Staff)
	}
	return m, nil
}

// IsStaff reports whether subject belongs to the operating organization.
func (m *RoleModel) IsStaff(subject string) bool {
	if m.staffDomain == "" {
		return false
	}
	return strings.HasSuffix(Normalize(subject), "@"+m.staffDomain)
}

// RolesFor returns the role table that applies to subject at level. Unknown
// levels get an empty table; this never fails.
func (m *RoleModel) RolesFor(level Level, subject string) RoleTable {
	if m.IsStaff(subject) {
		if t, ok := m.extended[level]; ok {
			return t
		}
	}
	if t, ok := m.defaults[level]; ok {
		return t
	}
	return RoleTable{}
}

// ActionsFor returns every action any role at level could grant subject.
func (m *RoleModel) ActionsFor(level Level, subject string) []string {
	return m.RolesFor(level, subject).Actions()
}

// IsValidRole reports whether role exists at level in either table.
func (m *RoleModel) IsValidRole(level Level, role string) bool {
	role = Normalize(role)
	if _, ok := m.defaults[level][role]; ok {
		return true
	}
	_, ok := m.extended[level][role]
	return ok
}

// RolesWithTag returns the default-table roles at level carrying tag.
func (m *RoleModel) RolesWithTag(level Level, tag string) []string {
	return m.defaults[level].RolesWithTag(tag)
}
