package domain

import "time"

// Periodicity is the cycle length of a direct debit.
type Periodicity string

// Supported periodicities.
const (
	Daily   Periodicity = "DAILY"
	Weekly  Periodicity = "WEEKLY"
	Monthly Periodicity = "MONTHLY"
	Yearly  Periodicity = "YEARLY"
)

// IsValid returns true if the periodicity is supported.
func (p Periodicity) IsValid() bool {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// Next returns the start of the cycle following t.
func (p Periodicity) Next(t time.Time) time.Time {
	switch p {
	case Daily:
		return t.AddDate(0, 0, 1)
	case Weekly:
		return t.AddDate(0, 0, 7)
	case Monthly:
		return t.AddDate(0, 1, 0)
	case Yearly:
		return t.AddDate(1, 0, 0)
	}

	return t
}

// DirectDebit is a standing order debiting FromIBAN every cycle.
type DirectDebit struct {
	ID            int64       `json:"id"`
	GUID          string      `json:"guid"`
	ClientGUID    string      `json:"client_guid"`
	FromIBAN      string      `json:"from_iban"`
	Creditor      string      `json:"creditor"`
	Amount        Money       `json:"amount"`
	Periodicity   Periodicity `json:"periodicity"`
	LastExecution time.Time   `json:"last_execution"`
	Active        bool        `json:"active"`
	CreatedAt     time.Time   `json:"created_at"`
}

// NextExecution returns when the next cycle becomes due.
func (d DirectDebit) NextExecution() time.Time {
	return d.Periodicity.Next(d.LastExecution)
}

// IsDue reports whether an active direct debit must be executed at asOf.
func (d DirectDebit) IsDue(asOf time.Time) bool {
	return d.Active && !asOf.Before(d.NextExecution())
}

// Charge returns the movement payload for the cycle starting at NextExecution.
func (d DirectDebit) Charge() DirectDebitCharge {
	return DirectDebitCharge{
		DirectDebitGUID: d.GUID,
		FromIBAN:        d.FromIBAN,
		Creditor:        d.Creditor,
		Amount:          d.Amount,
		Periodicity:     d.Periodicity,
		Cycle:           d.NextExecution(),
	}
}

// CreateDirectDebitParams is the input data to create a direct debit.
type CreateDirectDebitParams struct {
	FromIBAN    string      `json:"from_iban"`
	Creditor    string      `json:"creditor"`
	Amount      Money       `json:"amount"`
	Periodicity Periodicity `json:"periodicity"`
}

// SaveDirectDebitParams is the data persisted when a direct debit is created.
type SaveDirectDebitParams struct {
	GUID          string
	ClientGUID    string
	FromIBAN      string
	Creditor      string
	Amount        Money
	Periodicity   Periodicity
	LastExecution time.Time
}
