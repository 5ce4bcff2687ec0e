package authz

import (
	"fmt"
	"sort"
	"time"
)

// Service is a paid capability a group is entitled to.
type Service string

const (
	ServiceIntegrates  Service = "integrates"
	ServiceForces      Service = "forces"
	ServiceDrillsBlack Service = "drills-black"
	ServiceDrillsWhite Service = "drills-white"
)

// Capability attributes derived from services.
const (
	AttrHasIntegrates = "has_integrates"
	AttrHasForces     = "has_forces"
	AttrHasDrills     = "has_drills"
	AttrHasBlack      = "has_black"
	AttrHasWhite      = "has_white"
)

var serviceAttributes = map[Service][]string{
	ServiceIntegrates:  {AttrHasIntegrates},
	ServiceForces:      {AttrHasForces},
	ServiceDrillsBlack: {AttrHasDrills, AttrHasBlack},
	ServiceDrillsWhite: {AttrHasDrills, AttrHasWhite},
}

func (s Service) IsValid() bool {
	_, ok := serviceAttributes[s]
	return ok
}

func ParseService(s string) (Service, error) {
	svc := Service(Normalize(s))
	if !svc.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidService, s)
	}
	return svc, nil
}

// GroupServices is the set of services a group is entitled to.
type GroupServices struct {
	group        string
	services     map[Service]struct{}
	modifiedBy   string
	modifiedDate time.Time
}

func NewGroupServices(group string) *GroupServices {
	return &GroupServices{
		group:    Normalize(group),
		services: make(map[Service]struct{}),
	}
}

func ReconstructGroupServices(group string, services []Service, modifiedBy string, modifiedDate time.Time) *GroupServices {
	gs := NewGroupServices(group)
	for _, s := range services {
		gs.services[s] = struct{}{}
	}
	gs.modifiedBy = modifiedBy
	gs.modifiedDate = modifiedDate
	return gs
}

func (g *GroupServices) Group() string           { return g.group }
func (g *GroupServices) ModifiedBy() string      { return g.modifiedBy }
func (g *GroupServices) ModifiedDate() time.Time { return g.modifiedDate }

func (g *GroupServices) Has(s Service) bool {
	_, ok := g.services[s]
	return ok
}

func (g *GroupServices) Add(s Service, actor string, now time.Time) {
	g.services[s] = struct{}{}
	g.touch(actor, now)
}

func (g *GroupServices) Remove(s Service, actor string, now time.Time) {
	delete(g.services, s)
	g.touch(actor, now)
}

func (g *GroupServices) touch(actor string, now time.Time) {
	g.modifiedBy = Normalize(actor)
	g.modifiedDate = now.UTC()
}

// Services returns the entitled services in stable order.
func (g *GroupServices) Services() []Service {
	out := make([]Service, 0, len(g.services))
	for s := range g.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasAttribute reports whether any entitled service yields attr.
func (g *GroupServices) HasAttribute(attr string) bool {
	for s := range g.services {
		for _, a := range serviceAttributes[s] {
			if a == attr {
				return true
			}
		}
	}
	return false
}
