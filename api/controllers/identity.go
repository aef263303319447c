package controllers

import (
	"net/http"

	"github.com/bjaksic84/rentmate-backend/api/middleware"
	"github.com/bjaksic84/rentmate-backend/api/responses"
	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
	"github.com/bjaksic84/rentmate-backend/pkg/logger"
)

// requireIdentity returns the authenticated caller or writes a 401.
func requireIdentity(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (middleware.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return middleware.Identity{}, false
	}
	return id, true
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}
