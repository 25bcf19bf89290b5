package movementservice

import (
	"context"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/internal/validation"
)

// Pipeline admits movements.
type Pipeline interface {
	Movement(ctx context.Context, clientGUID string, v domain.Variant) (validation.Admission, error)
}

// Ledger applies balance mutations and runs commit while the accounts are locked.
type Ledger interface {
	Apply(ctx context.Context, debitIBAN, creditIBAN string, amount domain.Money, commit func(ctx context.Context) error) error
}
