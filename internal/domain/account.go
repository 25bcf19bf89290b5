// Package domain provides definitions of all entities.
package domain

import "time"

// Client is the owner of accounts and movements.
type Client struct {
	GUID      string    `json:"guid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Account holds the balance of a customer account identified by its IBAN.
type Account struct {
	IBAN       string    `json:"iban"`
	ClientGUID string    `json:"client_guid"`
	CardGUID   string    `json:"card_guid,omitempty"`
	Balance    Money     `json:"balance"`
	CreatedAt  time.Time `json:"created_at"`
}

// Card is a payment card that resolves to one account through Account.CardGUID.
type Card struct {
	GUID      string    `json:"guid"`
	Number    string    `json:"number"`
	CreatedAt time.Time `json:"created_at"`
}
