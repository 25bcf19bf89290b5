package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the engine matches exactly one of them
// with errors.Is, except internal failures which match errorspkg.ErrInternal.
var (
	// ErrNotFound indicates a missing client, account, card, movement or direct debit.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates input that can never succeed unchanged.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientFunds indicates that the source balance does not cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrContention indicates that an account lock could not be acquired in time.
	ErrContention = errors.New("resource busy, retry later")
)

var (
	// ErrClientNotFound indicates that the caller's client does not exist.
	ErrClientNotFound = errors.New("client not found")
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrCardNotFound indicates that the card is not found.
	ErrCardNotFound = errors.New("card not found")
	// ErrAccountNotFoundByCard indicates that none of the client's accounts is linked to the card.
	ErrAccountNotFoundByCard = errors.New("account not found by card")
	// ErrMovementNotFound indicates that the movement is not found.
	ErrMovementNotFound = errors.New("movement not found")
	// ErrClientHasNoMovements indicates that the client exists but has no movements.
	ErrClientHasNoMovements = errors.New("client has no movements")
	// ErrDirectDebitNotFound indicates that the direct debit is not found.
	ErrDirectDebitNotFound = errors.New("direct debit not found")
)

var (
	// ErrInvalidAmount indicates a malformed amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNegativeAmount indicates an amount that is zero or negative.
	ErrNegativeAmount = errors.New("negative amount")
	// ErrAmountOverflow indicates a resulting balance beyond the representable range.
	ErrAmountOverflow = errors.New("amount overflow")
	// ErrDuplicatedDirectDebit indicates an active direct debit with the same creditor.
	ErrDuplicatedDirectDebit = errors.New("duplicated direct debit")
	// ErrInvalidPeriodicity indicates an unsupported periodicity.
	ErrInvalidPeriodicity = errors.New("invalid periodicity")
	// ErrInvalidMovement indicates a variant whose tag and payload disagree.
	ErrInvalidMovement = errors.New("invalid movement")
	// ErrDirectDebitInactive indicates an operation on a deactivated direct debit.
	ErrDirectDebitInactive = errors.New("direct debit is not active")
	// ErrDirectDebitNotDue indicates an execution attempt before the next cycle.
	ErrDirectDebitNotDue = errors.New("direct debit is not due")
	// ErrDirectDebitOwnerMismatch indicates that the direct debit belongs to another client.
	ErrDirectDebitOwnerMismatch = errors.New("direct debit belongs to another client")
)

// NotFoundError carries the reference that could not be resolved.
type NotFoundError struct {
	Err error
	Ref string
}

// NewNotFoundError wraps err with the offending reference.
func NewNotFoundError(err error, ref string) *NotFoundError {
	return &NotFoundError{Err: err, Ref: ref}
}

func (e *NotFoundError) Error() string {
	if e.Ref == "" {
		return e.Err.Error()
	}

	return fmt.Sprintf("%s: %s", e.Err, e.Ref)
}

func (e *NotFoundError) Unwrap() []error { return []error{e.Err, ErrNotFound} }

// ValidationError carries the offending input.
type ValidationError struct {
	Err    error
	Detail string
}

// NewValidationError wraps err with the offending input.
func NewValidationError(err error, detail string) *ValidationError {
	return &ValidationError{Err: err, Detail: detail}
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}

	return fmt.Sprintf("%s: %s", e.Err, e.Detail)
}

func (e *ValidationError) Unwrap() []error { return []error{e.Err, ErrValidation} }

// InsufficientFundsError reports the account and its balance at the time of the check.
type InsufficientFundsError struct {
	IBAN    string
	Balance Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in account %s, current balance %s", e.IBAN, e.Balance)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// ContentionError reports the lock key that timed out.
type ContentionError struct {
	Key string
}

func (e *ContentionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrContention, e.Key)
}

func (e *ContentionError) Unwrap() error { return ErrContention }
