// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/pkg/dbpkg"
	"github.com/go-petr/movement-engine/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const getAccountQuery = `
SELECT
	iban, client_guid, COALESCE(card_guid, ''), balance, created_at
FROM accounts
WHERE iban = $1
`

// GetAccount returns the account with the given IBAN.
func (r *RepoPGS) GetAccount(ctx context.Context, iban string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getAccountQuery, iban)

	var a domain.Account

	err := row.Scan(
		&a.IBAN,
		&a.ClientGUID,
		&a.CardGUID,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Account{}, domain.NewNotFoundError(domain.ErrAccountNotFound, iban)
		}

		l.Error().Err(err).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const listAccountsByClientQuery = `
SELECT
	iban, client_guid, COALESCE(card_guid, ''), balance, created_at
FROM accounts
WHERE client_guid = $1
ORDER BY iban
`

// ListAccountsByClient returns the client's accounts ordered by IBAN.
func (r *RepoPGS) ListAccountsByClient(ctx context.Context, clientGUID string) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listAccountsByClientQuery, clientGUID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Account{}

	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.IBAN, &a.ClientGUID, &a.CardGUID, &a.Balance, &a.CreatedAt); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, a)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const balanceQuery = `
SELECT balance FROM accounts WHERE iban = $1
`

// Balance returns the account balance.
func (r *RepoPGS) Balance(ctx context.Context, iban string) (domain.Money, error) {
	l := zerolog.Ctx(ctx)

	var balance domain.Money

	if err := r.db.QueryRowContext(ctx, balanceQuery, iban).Scan(&balance); err != nil {
		if err == sql.ErrNoRows {
			return domain.Zero, domain.NewNotFoundError(domain.ErrAccountNotFound, iban)
		}

		l.Error().Err(err).Send()

		return domain.Zero, errorspkg.ErrInternal
	}

	return balance, nil
}

const withdrawQuery = `
UPDATE accounts
SET balance = balance - $1::numeric
WHERE iban = $2 AND balance >= $1::numeric
RETURNING balance
`

// Withdraw subtracts amount from the account balance in a single statement
// that refuses to leave a negative balance.
func (r *RepoPGS) Withdraw(ctx context.Context, iban string, amount domain.Money) (domain.Money, error) {
	l := zerolog.Ctx(ctx)

	var balance domain.Money

	err := r.db.QueryRowContext(ctx, withdrawQuery, amount, iban).Scan(&balance)
	if err == nil {
		return balance, nil
	}

	if err == sql.ErrNoRows {
		current, berr := r.Balance(ctx, iban)
		if berr != nil {
			return domain.Zero, berr
		}

		return domain.Zero, &domain.InsufficientFundsError{IBAN: iban, Balance: current}
	}

	l.Error().Err(err).Send()

	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Constraint == "accounts_balance_check" {
			return domain.Zero, &domain.InsufficientFundsError{IBAN: iban}
		}
	}

	return domain.Zero, errorspkg.ErrInternal
}

const depositQuery = `
UPDATE accounts
SET balance = balance + $1::numeric
WHERE iban = $2 AND balance <= $3::numeric - $1::numeric
RETURNING balance
`

// Deposit adds amount to the account balance in a single statement that keeps
// the balance within domain.MaxMoney.
func (r *RepoPGS) Deposit(ctx context.Context, iban string, amount domain.Money) (domain.Money, error) {
	l := zerolog.Ctx(ctx)

	var balance domain.Money

	err := r.db.QueryRowContext(ctx, depositQuery, amount, iban, domain.MaxMoney).Scan(&balance)
	if err == nil {
		return balance, nil
	}

	if err == sql.ErrNoRows {
		current, berr := r.Balance(ctx, iban)
		if berr != nil {
			return domain.Zero, berr
		}

		return domain.Zero, domain.NewValidationError(domain.ErrAmountOverflow, current.String()+" + "+amount.String())
	}

	l.Error().Err(err).Send()

	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "22003" {
			return domain.Zero, domain.NewValidationError(domain.ErrAmountOverflow, amount.String())
		}
	}

	return domain.Zero, errorspkg.ErrInternal
}
