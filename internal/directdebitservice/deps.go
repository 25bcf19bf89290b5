package directdebitservice

import (
	"context"

	"github.com/go-petr/movement-engine/internal/domain"
)

// Pipeline checks direct debit creation requests.
type Pipeline interface {
	DirectDebit(ctx context.Context, clientGUID string, arg domain.CreateDirectDebitParams) (domain.Client, error)
}

// MovementSubmitter charges one cycle through the regular movement path.
type MovementSubmitter interface {
	SubmitDirectDebitCharge(ctx context.Context, clientGUID string, c domain.DirectDebitCharge) (domain.Movement, error)
	GetByGUID(ctx context.Context, guid string) (domain.Movement, error)
}
