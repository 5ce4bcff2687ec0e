package mappers

import (
	"encoding/json"
	"fmt"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/infrastructure/persistence/models"
)

// PolicyToModel converts a policy to its row.
func PolicyToModel(p *authz.Policy) *models.PolicyModel {
	return &models.PolicyModel{
		Level:        string(p.Level()),
		Subject:      p.Subject(),
		Object:       p.Object(),
		Role:         p.Role(),
		ModifiedBy:   p.ModifiedBy(),
		ModifiedDate: p.ModifiedDate().UTC(),
	}
}

func PolicyToDomain(m *models.PolicyModel) *authz.Policy {
	if m == nil {
		return nil
	}
	return authz.ReconstructPolicy(
		authz.Level(m.Level),
		m.Subject,
		m.Object,
		m.Role,
		m.ModifiedBy,
		m.ModifiedDate.UTC(),
	)
}

func PoliciesToDomain(list []models.PolicyModel) []*authz.Policy {
	out := make([]*authz.Policy, 0, len(list))
	for i := range list {
		out = append(out, PolicyToDomain(&list[i]))
	}
	return out
}

func GroupServicesToModel(g *authz.GroupServices) (*models.GroupServicesModel, error) {
	data, err := json.Marshal(g.Services())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal services: %w", err)
	}
	return &models.GroupServicesModel{
		GroupName:    g.Group(),
		Services:     data,
		ModifiedBy:   g.ModifiedBy(),
		ModifiedDate: g.ModifiedDate().UTC(),
	}, nil
}

func GroupServicesToDomain(m *models.GroupServicesModel) (*authz.GroupServices, error) {
	var services []authz.Service
	if len(m.Services) > 0 {
		if err := json.Unmarshal(m.Services, &services); err != nil {
			return nil, fmt.Errorf("failed to unmarshal services for group %s: %w", m.GroupName, err)
		}
	}
	return authz.ReconstructGroupServices(m.GroupName, services, m.ModifiedBy, m.ModifiedDate.UTC()), nil
}
