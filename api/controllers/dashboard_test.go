package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaksic84/rentmate-backend/internal/dashboard"
	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
)

type stubDashboardService struct {
	userFn  func(ctx context.Context, userID uuid.UUID) (*dashboard.UserDashboard, error)
	adminFn func(ctx context.Context) (*dashboard.AdminDashboard, error)
}

func (s *stubDashboardService) UserDashboard(ctx context.Context, userID uuid.UUID) (*dashboard.UserDashboard, error) {
	return s.userFn(ctx, userID)
}

func (s *stubDashboardService) AdminDashboard(ctx context.Context) (*dashboard.AdminDashboard, error) {
	return s.adminFn(ctx)
}

func TestUserDashboardUsesCaller(t *testing.T) {
	user := uuid.New()
	svc := &stubDashboardService{
		userFn: func(ctx context.Context, userID uuid.UUID) (*dashboard.UserDashboard, error) {
			assert.Equal(t, user, userID)
			return &dashboard.UserDashboard{Counts: dashboard.UserCountsDTO{OwnedItems: 2}}, nil
		},
	}

	resp := httptest.NewRecorder()
	UserDashboard(svc, testLogger())(resp, asUser(newRequest(http.MethodGet, "/", ""), user))
	require.Equal(t, http.StatusOK, resp.Code)
	var data dashboard.UserDashboard
	decodeData(t, resp, &data)
	assert.EqualValues(t, 2, data.Counts.OwnedItems)
}

func TestAdminDashboardErrors(t *testing.T) {
	svc := &stubDashboardService{
		adminFn: func(ctx context.Context) (*dashboard.AdminDashboard, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStorageUnavailable, "count items")
		},
	}
	resp := httptest.NewRecorder()
	AdminDashboard(svc, testLogger())(resp, asAdmin(newRequest(http.MethodGet, "/", ""), uuid.New()))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
