// Package directdebitrepo manages repository layer of direct debits.
package directdebitrepo

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/pkg/dbpkg"
	"github.com/go-petr/movement-engine/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates direct debit repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns direct debit RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const columns = `id, guid, client_guid, from_iban, creditor, amount, periodicity, last_execution, active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDirectDebit(row scanner) (domain.DirectDebit, error) {
	var d domain.DirectDebit

	err := row.Scan(
		&d.ID,
		&d.GUID,
		&d.ClientGUID,
		&d.FromIBAN,
		&d.Creditor,
		&d.Amount,
		&d.Periodicity,
		&d.LastExecution,
		&d.Active,
		&d.CreatedAt,
	)

	return d, err
}

const createQuery = `
INSERT INTO
	direct_debits (guid, client_guid, from_iban, creditor, amount, periodicity, last_execution)
VALUES
	($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + columns

// Create creates an active direct debit and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.SaveDirectDebitParams) (domain.DirectDebit, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.GUID,
		arg.ClientGUID,
		arg.FromIBAN,
		arg.Creditor,
		arg.Amount,
		string(arg.Periodicity),
		arg.LastExecution,
	)

	d, err := scanDirectDebit(row)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "direct_debits_active_client_creditor_key":
				return domain.DirectDebit{}, domain.NewValidationError(domain.ErrDuplicatedDirectDebit, arg.Creditor)
			case "direct_debits_client_guid_fkey":
				return domain.DirectDebit{}, domain.NewNotFoundError(domain.ErrClientNotFound, arg.ClientGUID)
			case "direct_debits_from_iban_fkey":
				return domain.DirectDebit{}, domain.NewNotFoundError(domain.ErrAccountNotFound, arg.FromIBAN)
			}
		}

		return domain.DirectDebit{}, errorspkg.ErrInternal
	}

	return d, nil
}

const getQuery = `
SELECT ` + columns + `
FROM direct_debits
WHERE id = $1
`

// Get returns the direct debit with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.DirectDebit, error) {
	return r.one(ctx, getQuery, id)
}

const listByClientQuery = `
SELECT ` + columns + `
FROM direct_debits
WHERE client_guid = $1
ORDER BY id
`

// ListByClient returns every direct debit of the client ordered by id.
func (r *RepoPGS) ListByClient(ctx context.Context, clientGUID string) ([]domain.DirectDebit, error) {
	return r.list(ctx, listByClientQuery, clientGUID)
}

const listActiveByClientQuery = `
SELECT ` + columns + `
FROM direct_debits
WHERE client_guid = $1 AND active
ORDER BY id
`

// ListActiveByClient returns the client's active direct debits ordered by id.
func (r *RepoPGS) ListActiveByClient(ctx context.Context, clientGUID string) ([]domain.DirectDebit, error) {
	return r.list(ctx, listActiveByClientQuery, clientGUID)
}

const listActiveQuery = `
SELECT ` + columns + `
FROM direct_debits
WHERE active
ORDER BY id
`

// ListActive returns every active direct debit ordered by id.
func (r *RepoPGS) ListActive(ctx context.Context) ([]domain.DirectDebit, error) {
	return r.list(ctx, listActiveQuery)
}

const markExecutedQuery = `
UPDATE direct_debits
SET last_execution = $2
WHERE id = $1
RETURNING ` + columns

// MarkExecuted records a successful cycle.
func (r *RepoPGS) MarkExecuted(ctx context.Context, id int64, at time.Time) (domain.DirectDebit, error) {
	return r.one(ctx, markExecutedQuery, id, at)
}

const deactivateQuery = `
UPDATE direct_debits
SET active = false
WHERE id = $1
RETURNING ` + columns

// Deactivate permanently disables the direct debit.
func (r *RepoPGS) Deactivate(ctx context.Context, id int64) (domain.DirectDebit, error) {
	return r.one(ctx, deactivateQuery, id)
}

func (r *RepoPGS) one(ctx context.Context, query string, id int64, args ...any) (domain.DirectDebit, error) {
	l := zerolog.Ctx(ctx)

	d, err := scanDirectDebit(r.db.QueryRowContext(ctx, query, append([]any{id}, args...)...))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.DirectDebit{}, domain.NewNotFoundError(domain.ErrDirectDebitNotFound, strconv.FormatInt(id, 10))
		}

		l.Error().Err(err).Send()

		return domain.DirectDebit{}, errorspkg.ErrInternal
	}

	return d, nil
}

func (r *RepoPGS) list(ctx context.Context, query string, args ...any) ([]domain.DirectDebit, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.DirectDebit{}

	for rows.Next() {
		d, err := scanDirectDebit(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, d)
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
