// Package movementservice manages business logic layer of movements.
package movementservice

import (
	"context"
	"errors"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/internal/ledger"
	"github.com/go-petr/movement-engine/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repo provides data access layer interface needed by movement service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package movementservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateMovementParams) (domain.Movement, error)
	Get(ctx context.Context, id int64) (domain.Movement, error)
	GetByGUID(ctx context.Context, guid string) (domain.Movement, error)
	ListByClient(ctx context.Context, clientGUID string) ([]domain.Movement, error)
	SoftDelete(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// Service facilitates movement service layer logic.
type Service struct {
	repo     Repo
	pipeline Pipeline
	ledger   Ledger
	clients  validation.ClientDirectory
}

// New returns movement service struct to manage movement business logic.
func New(repo Repo, pipeline Pipeline, ledger Ledger, clients validation.ClientDirectory) *Service {
	return &Service{
		repo:     repo,
		pipeline: pipeline,
		ledger:   ledger,
		clients:  clients,
	}
}

// Submit admits the movement, applies it to the balances and records it.
//
// The record is saved while the accounts are still locked, so a movement is
// recorded only if its balance mutation was applied and a mutation whose record
// cannot be saved is reverted before anyone can spend the credited amount.
func (s *Service) Submit(ctx context.Context, clientGUID string, v domain.Variant) (domain.Movement, error) {
	l := zerolog.Ctx(ctx)

	adm, err := s.pipeline.Movement(ctx, clientGUID, v)
	if err != nil {
		return domain.Movement{}, err
	}

	arg := domain.CreateMovementParams{
		GUID:       movementGUID(adm.Variant),
		ClientGUID: adm.Client.GUID,
		Variant:    adm.Variant,
	}

	var m domain.Movement

	err = s.ledger.Apply(ctx, adm.DebitIBAN, adm.CreditIBAN, adm.Amount, func(ctx context.Context) error {
		var err error

		m, err = s.repo.Create(ctx, arg)
		if err != nil {
			l.Error().Err(err).Str("kind", string(adm.Variant.Kind)).Msg("saving movement failed, reverting")
		}

		return err
	})
	if err != nil {
		if errors.Is(err, ledger.ErrCompensationFailed) {
			l.Error().Err(err).
				Str("debit_iban", adm.DebitIBAN).
				Str("credit_iban", adm.CreditIBAN).
				Str("amount", adm.Amount.String()).
				Msg("reverting balance mutation failed")
		} else {
			l.Info().Err(err).Str("kind", string(adm.Variant.Kind)).Send()
		}

		return domain.Movement{}, err
	}

	return m, nil
}

// movementGUID returns a fresh guid, except for direct debit charges whose guid
// identifies the charged cycle.
func movementGUID(v domain.Variant) string {
	if v.Kind == domain.KindDirectDebit {
		if guid := v.DirectDebit.MovementGUID(); guid != "" {
			return guid
		}
	}

	return uuid.NewString()
}

// SubmitTransfer submits a transfer between two accounts.
func (s *Service) SubmitTransfer(ctx context.Context, clientGUID string, t domain.Transfer) (domain.Movement, error) {
	return s.Submit(ctx, clientGUID, domain.TransferVariant(t))
}

// SubmitCardPayment submits a payment with one of the client's cards.
func (s *Service) SubmitCardPayment(ctx context.Context, clientGUID string, p domain.CardPayment) (domain.Movement, error) {
	return s.Submit(ctx, clientGUID, domain.CardPaymentVariant(p))
}

// SubmitPayrollDeposit submits a salary deposit.
func (s *Service) SubmitPayrollDeposit(ctx context.Context, clientGUID string, p domain.PayrollDeposit) (domain.Movement, error) {
	return s.Submit(ctx, clientGUID, domain.PayrollDepositVariant(p))
}

// SubmitDirectDebitCharge submits one cycle of a direct debit.
func (s *Service) SubmitDirectDebitCharge(ctx context.Context, clientGUID string, c domain.DirectDebitCharge) (domain.Movement, error) {
	return s.Submit(ctx, clientGUID, domain.DirectDebitVariant(c))
}

// Get returns the movement with the given id.
func (s *Service) Get(ctx context.Context, id int64) (domain.Movement, error) {
	return s.repo.Get(ctx, id)
}

// GetByGUID returns the movement with the given guid.
func (s *Service) GetByGUID(ctx context.Context, guid string) (domain.Movement, error) {
	return s.repo.GetByGUID(ctx, guid)
}

// ListByClient returns the client's movements in creation order.
func (s *Service) ListByClient(ctx context.Context, clientGUID string) ([]domain.Movement, error) {
	l := zerolog.Ctx(ctx)

	if _, err := s.clients.GetClient(ctx, clientGUID); err != nil {
		l.Info().Err(err).Send()
		return nil, err
	}

	movements, err := s.repo.ListByClient(ctx, clientGUID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, err
	}

	if len(movements) == 0 {
		return nil, domain.NewNotFoundError(domain.ErrClientHasNoMovements, clientGUID)
	}

	return movements, nil
}

// SoftDelete hides the movement from every read path.
func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	return s.repo.SoftDelete(ctx, id)
}

// Delete physically removes the movement.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
