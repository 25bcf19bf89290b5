package integrationtest

import (
	"context"
	"testing"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/pkg/dbpkg"
	"github.com/go-petr/movement-engine/pkg/randompkg"
)

const seedClientQuery = `
INSERT INTO clients (guid, name, email)
VALUES ($1, $2, $3)
RETURNING guid, name, email, created_at
`

// SeedClient creates a random client.
func SeedClient(t *testing.T, db dbpkg.SQLInterface) domain.Client {
	t.Helper()

	var c domain.Client

	guid := randompkg.ClientGUID()
	name := randompkg.String(8)
	email := name + "@email.com"

	err := db.QueryRowContext(context.Background(), seedClientQuery, guid, name, email).
		Scan(&c.GUID, &c.Name, &c.Email, &c.CreatedAt)
	if err != nil {
		t.Fatalf("seed client %v returned error: %v", guid, err)
	}

	return c
}

const seedCardQuery = `
INSERT INTO cards (guid, number)
VALUES ($1, $2)
RETURNING guid, number, created_at
`

// SeedCard creates a random card.
func SeedCard(t *testing.T, db dbpkg.SQLInterface) domain.Card {
	t.Helper()

	var c domain.Card

	err := db.QueryRowContext(context.Background(), seedCardQuery, randompkg.ClientGUID(), randompkg.CardNumber()).
		Scan(&c.GUID, &c.Number, &c.CreatedAt)
	if err != nil {
		t.Fatalf("seed card returned error: %v", err)
	}

	return c
}

const seedAccountQuery = `
INSERT INTO accounts (iban, client_guid, card_guid, balance)
VALUES ($1, $2, NULLIF($3, ''), $4)
RETURNING iban, client_guid, COALESCE(card_guid, ''), balance, created_at
`

// SeedAccount creates an account of clientGUID holding balance, linked to cardGUID when not empty.
func SeedAccount(t *testing.T, db dbpkg.SQLInterface, clientGUID, cardGUID, balance string) domain.Account {
	t.Helper()

	var a domain.Account

	err := db.QueryRowContext(context.Background(), seedAccountQuery,
		randompkg.IBAN(), clientGUID, cardGUID, domain.MustParseMoney(balance)).
		Scan(&a.IBAN, &a.ClientGUID, &a.CardGUID, &a.Balance, &a.CreatedAt)
	if err != nil {
		t.Fatalf("seed account of %v returned error: %v", clientGUID, err)
	}

	return a
}
