package controllers

import (
	"net/http"

	"github.com/bjaksic84/rentmate-backend/api/responses"
	"github.com/bjaksic84/rentmate-backend/internal/dashboard"
	"github.com/bjaksic84/rentmate-backend/pkg/logger"
)

// UserDashboard returns the caller's items, rentals and counters.
func UserDashboard(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "dashboard")
			return
		}
		id, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		resp, err := svc.UserDashboard(r.Context(), id.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// AdminDashboard returns marketplace-wide totals. Routed behind RequireRole(admin).
func AdminDashboard(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "dashboard")
			return
		}
		resp, err := svc.AdminDashboard(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
