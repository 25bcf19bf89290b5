// Package cardrepo manages repository layer of cards.
package cardrepo

import (
	"context"
	"database/sql"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/pkg/dbpkg"
	"github.com/go-petr/movement-engine/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates card repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns card RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const getCardQuery = `
SELECT
	guid, number, created_at
FROM cards
WHERE number = $1
`

// GetCard returns the card with the given number.
func (r *RepoPGS) GetCard(ctx context.Context, number string) (domain.Card, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getCardQuery, number)

	var c domain.Card

	if err := row.Scan(&c.GUID, &c.Number, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Card{}, domain.NewNotFoundError(domain.ErrCardNotFound, number)
		}

		l.Error().Err(err).Send()

		return domain.Card{}, errorspkg.ErrInternal
	}

	return c, nil
}
