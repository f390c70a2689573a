package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tundeajala/bookhaven-payments/pkg/db/models"
	"github.com/tundeajala/bookhaven-payments/pkg/enums"
	pkgerrors "github.com/tundeajala/bookhaven-payments/pkg/errors"
	pkgpagination "github.com/tundeajala/bookhaven-payments/pkg/pagination"
)

type ListParams struct {
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID                 uuid.UUID          `json:"id"`
	PaymentRecordID    uuid.UUID          `json:"payment_record_id"`
	ProcessorPaymentID string             `json:"processor_payment_id"`
	Status             enums.PayoutStatus `json:"status"`
	LastError          string             `json:"last_error,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

type listQuery struct {
	limit  int
	cursor *pkgpagination.Cursor
}

func toListItem(m models.PayoutSplit) ListItem {
	item := ListItem{
		ID:                 m.ID,
		PaymentRecordID:    m.PaymentRecordID,
		ProcessorPaymentID: m.ProcessorPaymentID,
		Status:             m.Status,
		CreatedAt:          m.CreatedAt,
	}
	if m.LastError != nil {
		item.LastError = *m.LastError
	}
	return item
}

// ListFailed pages through failed splits for the retry operator, oldest
// first. The returned cursor is empty on the last page.
func (r *Repository) ListFailed(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		limit: pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := r.listFailed(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list failed payout splits")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit-1].CreatedAt,
			ID:        rows[limit-1].ID,
		})
		rows = rows[:limit]
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}
