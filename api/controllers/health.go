package controllers

import (
	"context"
	"net/http"

	"github.com/reytechinc/scprs-backend/api/responses"
	"github.com/reytechinc/scprs-backend/pkg/config"
	"github.com/reytechinc/scprs-backend/pkg/db"
	pkgerrors "github.com/reytechinc/scprs-backend/pkg/errors"
	"github.com/reytechinc/scprs-backend/pkg/logger"
)

// PortalProber reports live reachability of the remote portal.
type PortalProber interface {
	Probe(ctx context.Context) (bool, string)
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SCPRS-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, store db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SCPRS-Env", cfg.App.Env)
		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg,
					w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "price store unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

// PortalHealth performs a live probe against the portal landing page. It is
// deliberately not part of readiness; the API serves cached prices even when
// the portal is down.
func PortalHealth(prober PortalProber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connected, message := prober.Probe(r.Context())
		responses.WriteSuccess(w, map[string]any{
			"connected": connected,
			"message":   message,
		})
	}
}
