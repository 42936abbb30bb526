package controllers

import (
	"net/http"

	"github.com/reytechinc/scprs-backend/api/responses"
	"github.com/reytechinc/scprs-backend/api/validators"
	"github.com/reytechinc/scprs-backend/internal/pricing"
	"github.com/reytechinc/scprs-backend/pkg/logger"
)

// The bulk cap is deliberate; every miss can cost several portal round
// trips.
type bulkLookupRequest struct {
	Items []pricing.LookupRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

type lookupResponse struct {
	Found  bool                  `json:"found"`
	Result *pricing.LookupResult `json:"result,omitempty"`
}

// PricingLookup resolves one product's last known purchase price.
func PricingLookup(logg *logger.Logger, svc pricing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pricing.LookupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req.ItemNumber = validators.SanitizeString(req.ItemNumber, 100)
		req.Description = validators.SanitizeString(req.Description, 2000)

		result, err := svc.FindPrice(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lookupResponse{Found: result != nil, Result: result})
	}
}

// PricingBulkLookup resolves a batch of products sequentially.
func PricingBulkLookup(logg *logger.Logger, svc pricing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkLookupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := svc.BulkLookup(r.Context(), req.Items)
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// PricingStats reports local price store contents.
func PricingStats(logg *logger.Logger, svc pricing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
