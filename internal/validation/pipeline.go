// Package validation admits movements and direct debits before any balance is touched.
package validation

import (
	"context"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/rs/zerolog"
)

// ClientDirectory resolves clients.
type ClientDirectory interface {
	GetClient(ctx context.Context, guid string) (domain.Client, error)
}

// AccountDirectory resolves accounts.
type AccountDirectory interface {
	GetAccount(ctx context.Context, iban string) (domain.Account, error)
	ListAccountsByClient(ctx context.Context, clientGUID string) ([]domain.Account, error)
}

// CardDirectory resolves cards.
type CardDirectory interface {
	GetCard(ctx context.Context, number string) (domain.Card, error)
}

// DirectDebitLister lists the active direct debits of a client.
type DirectDebitLister interface {
	ListActiveByClient(ctx context.Context, clientGUID string) ([]domain.DirectDebit, error)
}

// Pipeline runs the admission checks in a fixed order. Every check is a pure read.
type Pipeline struct {
	clients      ClientDirectory
	accounts     AccountDirectory
	cards        CardDirectory
	directDebits DirectDebitLister
}

// New returns a Pipeline.
func New(clients ClientDirectory, accounts AccountDirectory, cards CardDirectory, directDebits DirectDebitLister) *Pipeline {
	return &Pipeline{
		clients:      clients,
		accounts:     accounts,
		cards:        cards,
		directDebits: directDebits,
	}
}

// Admission is an admitted movement ready for the ledger.
type Admission struct {
	Client  domain.Client
	Variant domain.Variant
	// DebitIBAN is always set. CreditIBAN is empty for debit-only movements.
	DebitIBAN  string
	CreditIBAN string
	Amount     domain.Money
}

// Movement checks the variant for clientGUID and resolves the accounts it touches.
func (p *Pipeline) Movement(ctx context.Context, clientGUID string, v domain.Variant) (Admission, error) {
	l := zerolog.Ctx(ctx)

	if err := v.Check(); err != nil {
		l.Info().Err(err).Send()
		return Admission{}, err
	}

	client, err := p.clients.GetClient(ctx, clientGUID)
	if err != nil {
		l.Info().Err(err).Send()
		return Admission{}, err
	}

	var source domain.Account

	adm := Admission{Client: client, Amount: v.Amount()}

	switch v.Kind {
	case domain.KindTransfer:
		t := *v.Transfer

		if source, err = p.accounts.GetAccount(ctx, t.FromIBAN); err != nil {
			l.Info().Err(err).Send()
			return Admission{}, err
		}

		if _, err = p.accounts.GetAccount(ctx, t.ToIBAN); err != nil {
			l.Info().Err(err).Send()
			return Admission{}, err
		}

		adm.Variant = domain.TransferVariant(t)
		adm.DebitIBAN, adm.CreditIBAN = t.FromIBAN, t.ToIBAN

	case domain.KindPayrollDeposit:
		pd := *v.PayrollDeposit

		if _, err = p.accounts.GetAccount(ctx, pd.ToIBAN); err != nil {
			l.Info().Err(err).Send()
			return Admission{}, err
		}

		if source, err = p.accounts.GetAccount(ctx, pd.FromIBAN); err != nil {
			l.Info().Err(err).Send()
			return Admission{}, err
		}

		adm.Variant = domain.PayrollDepositVariant(pd)
		adm.DebitIBAN, adm.CreditIBAN = pd.FromIBAN, pd.ToIBAN

	case domain.KindCardPayment:
		cp := *v.CardPayment

		if source, err = p.cardAccount(ctx, client.GUID, cp.CardNumber); err != nil {
			l.Info().Err(err).Send()
			return Admission{}, err
		}

		cp.AccountIBAN = source.IBAN
		adm.Variant = domain.CardPaymentVariant(cp)
		adm.DebitIBAN = source.IBAN

	case domain.KindDirectDebit:
		c := *v.DirectDebit

		if source, err = p.accounts.GetAccount(ctx, c.FromIBAN); err != nil {
			l.Info().Err(err).Send()
			return Admission{}, err
		}

		adm.Variant = domain.DirectDebitVariant(c)
		adm.DebitIBAN = c.FromIBAN
	}

	if !adm.Amount.IsPositive() {
		err := domain.NewValidationError(domain.ErrNegativeAmount, adm.Amount.String())
		l.Info().Err(err).Send()

		return Admission{}, err
	}

	// The ledger repeats this check under the account lock.
	if source.Balance.LessThan(adm.Amount) {
		err := &domain.InsufficientFundsError{IBAN: source.IBAN, Balance: source.Balance}
		l.Info().Err(err).Send()

		return Admission{}, err
	}

	return adm, nil
}

// cardAccount returns the client's account linked to the card.
func (p *Pipeline) cardAccount(ctx context.Context, clientGUID, number string) (domain.Account, error) {
	card, err := p.cards.GetCard(ctx, number)
	if err != nil {
		return domain.Account{}, err
	}

	accounts, err := p.accounts.ListAccountsByClient(ctx, clientGUID)
	if err != nil {
		return domain.Account{}, err
	}

	for _, a := range accounts {
		if a.CardGUID == card.GUID {
			return a, nil
		}
	}

	return domain.Account{}, domain.NewNotFoundError(domain.ErrAccountNotFoundByCard, card.GUID)
}

// DirectDebit checks a direct debit creation request for clientGUID.
func (p *Pipeline) DirectDebit(ctx context.Context, clientGUID string, arg domain.CreateDirectDebitParams) (domain.Client, error) {
	l := zerolog.Ctx(ctx)

	client, err := p.clients.GetClient(ctx, clientGUID)
	if err != nil {
		l.Info().Err(err).Send()
		return domain.Client{}, err
	}

	if _, err := p.accounts.GetAccount(ctx, arg.FromIBAN); err != nil {
		l.Info().Err(err).Send()
		return domain.Client{}, err
	}

	if !arg.Amount.IsPositive() {
		err := domain.NewValidationError(domain.ErrNegativeAmount, arg.Amount.String())
		l.Info().Err(err).Send()

		return domain.Client{}, err
	}

	if !arg.Periodicity.IsValid() {
		err := domain.NewValidationError(domain.ErrInvalidPeriodicity, string(arg.Periodicity))
		l.Info().Err(err).Send()

		return domain.Client{}, err
	}

	active, err := p.directDebits.ListActiveByClient(ctx, client.GUID)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Client{}, err
	}

	for _, d := range active {
		if d.Creditor == arg.Creditor {
			err := domain.NewValidationError(domain.ErrDuplicatedDirectDebit, arg.Creditor)
			l.Info().Err(err).Send()

			return domain.Client{}, err
		}
	}

	return client, nil
}
