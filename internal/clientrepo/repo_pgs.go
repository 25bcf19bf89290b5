// Package clientrepo manages repository layer of clients.
package clientrepo

import (
	"context"
	"database/sql"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/pkg/dbpkg"
	"github.com/go-petr/movement-engine/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates client repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns client RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const getClientQuery = `
SELECT
	guid, name, email, created_at
FROM clients
WHERE guid = $1
`

// GetClient returns the client with the given guid.
func (r *RepoPGS) GetClient(ctx context.Context, guid string) (domain.Client, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getClientQuery, guid)

	var c domain.Client

	if err := row.Scan(&c.GUID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Client{}, domain.NewNotFoundError(domain.ErrClientNotFound, guid)
		}

		l.Error().Err(err).Send()

		return domain.Client{}, errorspkg.ErrInternal
	}

	return c, nil
}
