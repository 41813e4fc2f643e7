package deals

import (
	"net/http"

	"github.com/angelmondragon/dealdesk-backend/api/responses"
	"github.com/angelmondragon/dealdesk-backend/api/validators"
	internaldeals "github.com/angelmondragon/dealdesk-backend/internal/deals"
	"github.com/angelmondragon/dealdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealdesk-backend/pkg/errors"
	"github.com/angelmondragon/dealdesk-backend/pkg/logger"
	"github.com/angelmondragon/dealdesk-backend/pkg/pagination"
)

const dealIDParam = "dealId"

type listQuery struct {
	Status string `json:"status" validate:"omitempty,oneof=pending scheduled in_progress completed cancelled"`
	Cursor string `json:"cursor" validate:"omitempty,base64rawurl"`
}

// Create persists a new deal from a draft body in either naming convention.
func Create(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deals service unavailable"))
			return
		}

		body, err := validators.DecodeJSONObject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.CreateDeal(r.Context(), internaldeals.ParseDraft(body))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, detail)
	}
}

// Update reconciles the stored deal with the submitted draft.
func Update(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deals service unavailable"))
			return
		}

		dealID, err := validators.ParseUUIDParam(r, dealIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithDealID(ctx, dealID.String())
		}

		body, err := validators.DecodeJSONObject(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		detail, err := svc.UpdateDeal(ctx, dealID, internaldeals.ParseDraft(body))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func Get(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deals service unavailable"))
			return
		}

		dealID, err := validators.ParseUUIDParam(r, dealIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetDeal(r.Context(), dealID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// Draft renders the stored deal as an editable draft. ?convention=camel switches
// the key spelling; snake is the default.
func Draft(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deals service unavailable"))
			return
		}

		dealID, err := validators.ParseUUIDParam(r, dealIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		convention, err := internaldeals.ParseConvention(validators.ParseQueryString(r, "convention", 16))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid convention").WithDetails(map[string]any{"field": "convention"}))
			return
		}

		draft, err := svc.GetDraft(r.Context(), dealID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internaldeals.RenderDraft(*draft, convention))
	}
}

func List(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deals service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := listQuery{
			Status: validators.ParseQueryString(r, "status", 32),
			Cursor: validators.ParseQueryString(r, "cursor", 256),
		}
		if err := validators.ValidateStruct(query); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters internaldeals.ListFilters
		if query.Status != "" {
			status := enums.DealStatus(query.Status)
			filters.Status = &status
		}

		list, err := svc.ListDeals(r.Context(), pagination.Params{Limit: limit, Cursor: query.Cursor}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
