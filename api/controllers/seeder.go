package controllers

import (
	"net/http"

	"github.com/reytechinc/scprs-backend/api/responses"
	"github.com/reytechinc/scprs-backend/api/validators"
	"github.com/reytechinc/scprs-backend/internal/seeder"
	pkgerrors "github.com/reytechinc/scprs-backend/pkg/errors"
	"github.com/reytechinc/scprs-backend/pkg/logger"
)

type seederStartRequest struct {
	Priority          string `json:"priority" validate:"omitempty,oneof=P0 P1 P2"`
	MaxCategories     int    `json:"max_categories" validate:"omitempty,min=1,max=100"`
	MaxPOsPerCategory int    `json:"max_pos_per_category" validate:"omitempty,min=1,max=25"`
}

// SeederStart launches a background seeding run.
func SeederStart(logg *logger.Logger, svc seeder.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := seederStartRequest{Priority: seeder.PriorityP0}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if req.Priority == "" {
				req.Priority = seeder.PriorityP0
			}
		}

		status, err := svc.Start(seeder.StartOptions{
			Priority:          req.Priority,
			MaxCategories:     req.MaxCategories,
			MaxPOsPerCategory: req.MaxPOsPerCategory,
		})
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
				err = typed.WithDetails(status)
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, status)
	}
}

// SeederStop requests cooperative cancellation of the current run.
func SeederStop(svc seeder.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Stop())
	}
}

// SeederStatus reports the current or last run.
func SeederStatus(svc seeder.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Status())
	}
}
