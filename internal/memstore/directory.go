// Package memstore provides in-process implementations of the engine's directories and stores.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/go-petr/movement-engine/internal/domain"
)

// Directory holds clients, accounts and cards, and doubles as the ledger's balance store.
type Directory struct {
	mu       sync.RWMutex
	clients  map[string]domain.Client
	accounts map[string]domain.Account
	cards    map[string]domain.Card
}

// NewDirectory returns an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		clients:  make(map[string]domain.Client),
		accounts: make(map[string]domain.Account),
		cards:    make(map[string]domain.Card),
	}
}

// AddClient registers or replaces a client.
func (d *Directory) AddClient(c domain.Client) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.clients[c.GUID] = c
}

// AddAccount registers or replaces an account.
func (d *Directory) AddAccount(a domain.Account) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.accounts[a.IBAN] = a
}

// RemoveAccount deletes an account.
func (d *Directory) RemoveAccount(iban string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.accounts, iban)
}

// AddCard registers or replaces a card.
func (d *Directory) AddCard(c domain.Card) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cards[c.Number] = c
}

// GetClient returns the client with the given guid.
func (d *Directory) GetClient(_ context.Context, guid string) (domain.Client, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.clients[guid]
	if !ok {
		return domain.Client{}, domain.NewNotFoundError(domain.ErrClientNotFound, guid)
	}

	return c, nil
}

// GetAccount returns the account with the given IBAN.
func (d *Directory) GetAccount(_ context.Context, iban string) (domain.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	a, ok := d.accounts[iban]
	if !ok {
		return domain.Account{}, domain.NewNotFoundError(domain.ErrAccountNotFound, iban)
	}

	return a, nil
}

// ListAccountsByClient returns the client's accounts ordered by IBAN.
func (d *Directory) ListAccountsByClient(_ context.Context, clientGUID string) ([]domain.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	items := []domain.Account{}

	for _, a := range d.accounts {
		if a.ClientGUID == clientGUID {
			items = append(items, a)
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].IBAN < items[j].IBAN })

	return items, nil
}

// GetCard returns the card with the given number.
func (d *Directory) GetCard(_ context.Context, number string) (domain.Card, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.cards[number]
	if !ok {
		return domain.Card{}, domain.NewNotFoundError(domain.ErrCardNotFound, number)
	}

	return c, nil
}

// Balance returns the account balance.
func (d *Directory) Balance(ctx context.Context, iban string) (domain.Money, error) {
	a, err := d.GetAccount(ctx, iban)
	if err != nil {
		return domain.Zero, err
	}

	return a.Balance, nil
}

// Withdraw subtracts amount from the account balance unless it would go negative.
func (d *Directory) Withdraw(_ context.Context, iban string, amount domain.Money) (domain.Money, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.accounts[iban]
	if !ok {
		return domain.Zero, domain.NewNotFoundError(domain.ErrAccountNotFound, iban)
	}

	if a.Balance.LessThan(amount) {
		return domain.Zero, &domain.InsufficientFundsError{IBAN: iban, Balance: a.Balance}
	}

	a.Balance = a.Balance.Sub(amount)
	d.accounts[iban] = a

	return a.Balance, nil
}

// Deposit adds amount to the account balance.
func (d *Directory) Deposit(_ context.Context, iban string, amount domain.Money) (domain.Money, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.accounts[iban]
	if !ok {
		return domain.Zero, domain.NewNotFoundError(domain.ErrAccountNotFound, iban)
	}

	balance, err := a.Balance.CheckedAdd(amount)
	if err != nil {
		return domain.Zero, err
	}

	a.Balance = balance
	d.accounts[iban] = a

	return a.Balance, nil
}
