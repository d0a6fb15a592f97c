package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/miguelsantiago/turista-backend/api/responses"
	"github.com/miguelsantiago/turista-backend/pkg/config"
	pkgerrors "github.com/miguelsantiago/turista-backend/pkg/errors"
	"github.com/miguelsantiago/turista-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger is the health-check surface each dependency exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessDeps lists the dependencies the ready probe verifies. Nil entries
// are skipped so workers can reuse the probe with a partial set.
type ReadinessDeps struct {
	DB     Pinger
	Redis  Pinger
	PubSub Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Turista-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps ReadinessDeps) http.HandlerFunc {
	checks := []struct {
		name   string
		pinger Pinger
	}{
		{"database", deps.DB},
		{"redis", deps.Redis},
		{"pubsub", deps.PubSub},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Turista-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		for _, check := range checks {
			if check.pinger == nil {
				continue
			}
			if err := check.pinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.name+" unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
