package authz

import "sort"

// RoleDefinition is the static capability set of one role at one level.
type RoleDefinition struct {
	Actions []string `yaml:"actions"`
	Tags    []string `yaml:"tags"`
}

func (d RoleDefinition) HasAction(action string) bool {
	for _, a := range d.Actions {
		if a == action {
			return true
		}
	}
	return false
}

func (d RoleDefinition) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RoleTable maps role names to their definitions at a single level.
type RoleTable map[string]RoleDefinition

// Allows reports whether role grants action.
func (t RoleTable) Allows(role, action string) bool {
	def, ok := t[role]
	return ok && def.HasAction(action)
}

// Actions returns the sorted union of every role's actions.
func (t RoleTable) Actions() []string {
	seen := make(map[string]struct{})
	for _, def := range t {
		for _, a := range def.Actions {
			seen[a] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// RolesWithTag returns the sorted names of roles carrying tag.
func (t RoleTable) RolesWithTag(tag string) []string {
	var out []string
	for name, def := range t {
		if def.HasTag(tag) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// extend returns a copy of t with extra merged in. Roles present in both get
// the union of their actions and tags.
func (t RoleTable) extend(extra RoleTable) RoleTable {
	out := make(RoleTable, len(t)+len(extra))
	for name, def := range t {
		out[name] = RoleDefinition{
			Actions: append([]string(nil), def.Actions...),
			Tags:    append([]string(nil), def.Tags...),
		}
	}
	for name, def := range extra {
		cur := out[name]
		cur.Actions = union(cur.Actions, def.Actions)
		cur.Tags = union(cur.Tags, def.Tags)
		out[name] = cur
	}
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
