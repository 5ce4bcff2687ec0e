package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apporganization "vulntrack/internal/application/organization"
	"vulntrack/internal/domain/organization"
	"vulntrack/internal/shared/errors"
	"vulntrack/internal/shared/logger"
)

func doOrganization(svc *mockOrganizationService, subject, method, path, body string) *httptest.ResponseRecorder {
	h := NewOrganizationHandler(svc, logger.NewNopLogger())
	return serve(func(r *gin.Engine) {
		r.POST("/organizations", h.CreateOrganization)
		r.POST("/organizations/:id/groups", h.CreateGroup)
		r.GET("/organizations/:id/policies", h.GetPolicies)
		r.PUT("/organizations/:id/policies", h.UpdatePolicies)
	}, subject, method, path, body)
}

func TestOrganizationHandler_Create(t *testing.T) {
	svc := &mockOrganizationService{
		CreateOrganizationFunc: func(_ context.Context, cmd apporganization.CreateOrganizationCommand, _ string) (*organization.Organization, error) {
			return organization.NewOrganization("o1", cmd.Name, testNow)
		},
		CreateGroupFunc: func(_ context.Context, cmd apporganization.CreateGroupCommand, _ string) (*organization.Group, error) {
			return &organization.Group{Name: cmd.Name, OrganizationID: cmd.OrganizationID}, nil
		},
	}

	w := doOrganization(svc, analyst, http.MethodPost, "/organizations", `{"name":"acme-corp"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, string(parse(t, w).Data), `"name":"acme-corp"`)

	w = doOrganization(svc, analyst, http.MethodPost, "/organizations/o1/groups", `{"name":"acme"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, string(parse(t, w).Data), `"organization_id":"o1"`)

	w = doOrganization(svc, "", http.MethodPost, "/organizations", `{"name":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrganizationHandler_Policies(t *testing.T) {
	days := 30
	var got apporganization.UpdatePoliciesCommand
	svc := &mockOrganizationService{
		GetPoliciesFunc: func(_ context.Context, orgID, actor string) (organization.Policies, error) {
			if actor != analyst {
				return organization.Policies{}, errors.NewAccessDeniedError()
			}
			return organization.Policies{MaxAcceptanceDays: &days}, nil
		},
		UpdatePoliciesFunc: func(_ context.Context, cmd apporganization.UpdatePoliciesCommand, _ string) (organization.Policies, error) {
			got = cmd
			return organization.Policies{MaxAcceptanceDays: cmd.MaxAcceptanceDays}, nil
		},
	}

	w := doOrganization(svc, analyst, http.MethodGet, "/organizations/o1/policies", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(parse(t, w).Data), `"max_acceptance_days":30`)

	w = doOrganization(svc, "other@evil.com", http.MethodGet, "/organizations/o1/policies", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doOrganization(svc, analyst, http.MethodPut, "/organizations/o1/policies",
		`{"max_acceptance_days":60,"max_number_acceptances":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "o1", got.OrganizationID)
	require.NotNil(t, got.MaxAcceptanceDays)
	assert.Equal(t, 60, *got.MaxAcceptanceDays)
	assert.Nil(t, got.MinAcceptanceSeverity)
}
