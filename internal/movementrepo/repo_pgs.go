// Package movementrepo manages repository layer of movements.
package movementrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/pkg/dbpkg"
	"github.com/go-petr/movement-engine/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates movement repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns movement RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMovement(row scanner) (domain.Movement, error) {
	var (
		m       domain.Movement
		payload []byte
	)

	if err := row.Scan(&m.ID, &m.GUID, &m.ClientGUID, &payload, &m.IsDeleted, &m.CreatedAt); err != nil {
		return domain.Movement{}, err
	}

	if err := json.Unmarshal(payload, &m.Variant); err != nil {
		return domain.Movement{}, err
	}

	return m, nil
}

const createQuery = `
INSERT INTO
	movements (guid, client_guid, kind, payload)
VALUES
	($1, $2, $3, $4)
RETURNING id, guid, client_guid, payload, is_deleted, created_at
`

// Create creates the movement and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateMovementParams) (domain.Movement, error) {
	l := zerolog.Ctx(ctx)

	payload, err := json.Marshal(arg.Variant)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Movement{}, errorspkg.ErrInternal
	}

	row := r.db.QueryRowContext(ctx, createQuery, arg.GUID, arg.ClientGUID, string(arg.Variant.Kind), string(payload))

	m, err := scanMovement(row)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "movements_client_guid_fkey" {
				return domain.Movement{}, domain.NewNotFoundError(domain.ErrClientNotFound, arg.ClientGUID)
			}
		}

		return domain.Movement{}, errorspkg.ErrInternal
	}

	return m, nil
}

const getQuery = `
SELECT
	id, guid, client_guid, payload, is_deleted, created_at
FROM movements
WHERE id = $1 AND NOT is_deleted
`

// Get returns the visible movement with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Movement, error) {
	l := zerolog.Ctx(ctx)

	m, err := scanMovement(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Movement{}, domain.NewNotFoundError(domain.ErrMovementNotFound, strconv.FormatInt(id, 10))
		}

		l.Error().Err(err).Send()

		return domain.Movement{}, errorspkg.ErrInternal
	}

	return m, nil
}

const getByGUIDQuery = `
SELECT
	id, guid, client_guid, payload, is_deleted, created_at
FROM movements
WHERE guid = $1 AND NOT is_deleted
`

// GetByGUID returns the visible movement with the given guid.
func (r *RepoPGS) GetByGUID(ctx context.Context, guid string) (domain.Movement, error) {
	l := zerolog.Ctx(ctx)

	m, err := scanMovement(r.db.QueryRowContext(ctx, getByGUIDQuery, guid))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Movement{}, domain.NewNotFoundError(domain.ErrMovementNotFound, guid)
		}

		l.Error().Err(err).Send()

		return domain.Movement{}, errorspkg.ErrInternal
	}

	return m, nil
}

const listByClientQuery = `
SELECT
	id, guid, client_guid, payload, is_deleted, created_at
FROM movements
WHERE client_guid = $1 AND NOT is_deleted
ORDER BY created_at, id
`

// ListByClient returns the client's visible movements in creation order.
func (r *RepoPGS) ListByClient(ctx context.Context, clientGUID string) ([]domain.Movement, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listByClientQuery, clientGUID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Movement{}

	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, m)
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

const softDeleteQuery = `
UPDATE movements
SET is_deleted = true
WHERE id = $1 AND NOT is_deleted
`

// SoftDelete hides the movement from every read path.
func (r *RepoPGS) SoftDelete(ctx context.Context, id int64) error {
	return r.exec(ctx, softDeleteQuery, id)
}

const deleteQuery = `
DELETE FROM movements
WHERE id = $1
`

// Delete physically removes the movement.
func (r *RepoPGS) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, deleteQuery, id)
}

func (r *RepoPGS) exec(ctx context.Context, query string, id int64) error {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if n == 0 {
		return domain.NewNotFoundError(domain.ErrMovementNotFound, strconv.FormatInt(id, 10))
	}

	return nil
}
