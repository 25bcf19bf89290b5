package domain

import (
	"time"

	"github.com/google/uuid"
)

// Kind tags the payload carried by a Variant.
type Kind string

// Supported movement kinds.
const (
	KindTransfer       Kind = "TRANSFER"
	KindCardPayment    Kind = "CARD_PAYMENT"
	KindPayrollDeposit Kind = "PAYROLL_DEPOSIT"
	KindDirectDebit    Kind = "DIRECT_DEBIT"
)

// Transfer moves money between two accounts.
type Transfer struct {
	FromIBAN    string `json:"from_iban"`
	ToIBAN      string `json:"to_iban"`
	Amount      Money  `json:"amount"` // must be positive
	Beneficiary string `json:"beneficiary,omitempty"`
}

// CardPayment debits the account linked to the card.
type CardPayment struct {
	CardNumber  string `json:"card_number"`
	Amount      Money  `json:"amount"`
	Merchant    string `json:"merchant,omitempty"`
	AccountIBAN string `json:"account_iban,omitempty"` // resolved during validation
}

// PayrollDeposit moves a salary from the company account to the employee account.
type PayrollDeposit struct {
	FromIBAN     string `json:"from_iban"`
	ToIBAN       string `json:"to_iban"`
	Amount       Money  `json:"amount"`
	Company      string `json:"company,omitempty"`
	CompanyTaxID string `json:"company_tax_id,omitempty"`
}

// DirectDebitCharge is one executed cycle of a DirectDebit.
type DirectDebitCharge struct {
	DirectDebitGUID string      `json:"direct_debit_guid"`
	FromIBAN        string      `json:"from_iban"`
	Creditor        string      `json:"creditor"`
	Amount          Money       `json:"amount"`
	Periodicity     Periodicity `json:"periodicity"`
	Cycle           time.Time   `json:"cycle"`
}

// MovementGUID returns the guid of the movement recording this charge. It is the
// same for every attempt at one cycle of one order, and empty for charges that
// do not come from a stored order.
func (c DirectDebitCharge) MovementGUID() string {
	if c.DirectDebitGUID == "" {
		return ""
	}

	name := c.DirectDebitGUID + "/" + c.Cycle.UTC().Format(time.RFC3339Nano)

	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Variant is a tagged union of the movement payloads. Exactly one payload is set
// and it matches Kind.
type Variant struct {
	Kind           Kind               `json:"kind"`
	Transfer       *Transfer          `json:"transfer,omitempty"`
	CardPayment    *CardPayment       `json:"card_payment,omitempty"`
	PayrollDeposit *PayrollDeposit    `json:"payroll_deposit,omitempty"`
	DirectDebit    *DirectDebitCharge `json:"direct_debit,omitempty"`
}

// TransferVariant wraps t into a Variant.
func TransferVariant(t Transfer) Variant {
	return Variant{Kind: KindTransfer, Transfer: &t}
}

// CardPaymentVariant wraps p into a Variant.
func CardPaymentVariant(p CardPayment) Variant {
	return Variant{Kind: KindCardPayment, CardPayment: &p}
}

// PayrollDepositVariant wraps p into a Variant.
func PayrollDepositVariant(p PayrollDeposit) Variant {
	return Variant{Kind: KindPayrollDeposit, PayrollDeposit: &p}
}

// DirectDebitVariant wraps c into a Variant.
func DirectDebitVariant(c DirectDebitCharge) Variant {
	return Variant{Kind: KindDirectDebit, DirectDebit: &c}
}

// Check reports ErrInvalidMovement unless exactly the payload named by Kind is set.
func (v Variant) Check() error {
	set := 0
	for _, p := range []bool{v.Transfer != nil, v.CardPayment != nil, v.PayrollDeposit != nil, v.DirectDebit != nil} {
		if p {
			set++
		}
	}

	if set != 1 {
		return NewValidationError(ErrInvalidMovement, string(v.Kind))
	}

	var ok bool

	switch v.Kind {
	case KindTransfer:
		ok = v.Transfer != nil
	case KindCardPayment:
		ok = v.CardPayment != nil
	case KindPayrollDeposit:
		ok = v.PayrollDeposit != nil
	case KindDirectDebit:
		ok = v.DirectDebit != nil
	}

	if !ok {
		return NewValidationError(ErrInvalidMovement, string(v.Kind))
	}

	return nil
}

// Amount returns the amount of the set payload.
func (v Variant) Amount() Money {
	switch v.Kind {
	case KindTransfer:
		return v.Transfer.Amount
	case KindCardPayment:
		return v.CardPayment.Amount
	case KindPayrollDeposit:
		return v.PayrollDeposit.Amount
	case KindDirectDebit:
		return v.DirectDebit.Amount
	}

	return Zero
}

// Movement is an admitted, immutable movement record.
type Movement struct {
	ID         int64     `json:"id"`
	GUID       string    `json:"guid"`
	ClientGUID string    `json:"client_guid"`
	Variant    Variant   `json:"movement"`
	IsDeleted  bool      `json:"is_deleted"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateMovementParams is the input data to persist a movement.
type CreateMovementParams struct {
	GUID       string
	ClientGUID string
	Variant    Variant
}
