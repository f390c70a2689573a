package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tundeajala/bookhaven-payments/api/responses"
	"github.com/tundeajala/bookhaven-payments/internal/payouts"
	pkgerrors "github.com/tundeajala/bookhaven-payments/pkg/errors"
	"github.com/tundeajala/bookhaven-payments/pkg/logger"
	"github.com/tundeajala/bookhaven-payments/pkg/pagination"
)

// PayoutLister pages through failed payout splits.
type PayoutLister interface {
	ListFailed(ctx context.Context, params payouts.ListParams) (*payouts.ListResult, error)
}

// FailedPayoutSplits serves the ops backlog of splits that never
// reached the payout rail, so an operator can replay them.
func FailedPayoutSplits(logg *logger.Logger, lister PayoutLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if lister == nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "payout lister not configured"))
			return
		}

		params := payouts.ListParams{
			Params: pagination.Params{
				Cursor: r.URL.Query().Get("cursor"),
			},
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid limit"))
				return
			}
			params.Limit = limit
		}

		result, err := lister.ListFailed(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
