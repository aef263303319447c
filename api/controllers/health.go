package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bjaksic84/rentmate-backend/api/responses"
	"github.com/bjaksic84/rentmate-backend/pkg/config"
	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
	"github.com/bjaksic84/rentmate-backend/pkg/logger"
	pkgredis "github.com/bjaksic84/rentmate-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

// Dependency names a backend checked by the readiness probe.
type Dependency struct {
	Name   string
	Pinger pkgredis.Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RentMate-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and reports 503 when any is down.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...Dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RentMate-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		var failed []string
		for _, dep := range deps {
			if dep.Pinger == nil {
				continue
			}
			if err := dep.Pinger.Ping(ctx); err != nil {
				checks[dep.Name] = "down"
				failed = append(failed, dep.Name)
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": dep.Name, "error": err.Error()}), "health.dependency_down")
				}
				continue
			}
			checks[dep.Name] = "up"
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeStorageUnavailable, "dependencies unavailable: "+strings.Join(failed, ",")))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
