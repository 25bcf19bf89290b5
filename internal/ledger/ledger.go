// Package ledger applies balance mutations under per-account exclusive access.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/internal/locking"
	"github.com/go-petr/movement-engine/pkg/errorspkg"
	"github.com/rs/zerolog"
)

var (
	// ErrCompensated indicates that a credit failed after the debit and the debit was reverted.
	ErrCompensated = fmt.Errorf("%w: credit failed, debit compensated", errorspkg.ErrInternal)
	// ErrCompensationFailed indicates that reverting an applied mutation failed.
	ErrCompensationFailed = fmt.Errorf("%w: compensation failed", errorspkg.ErrInternal)
)

// DefaultLockTimeout bounds lock acquisition when none is configured.
const DefaultLockTimeout = 2 * time.Second

// BalanceStore provides access to the authoritative account balances.
//
// Withdraw and Deposit are relative and atomic in the store itself, so concurrent
// writers that do not share a Locker cannot lose updates.
type BalanceStore interface {
	Balance(ctx context.Context, iban string) (domain.Money, error)
	// Withdraw subtracts amount and refuses to leave a negative balance.
	Withdraw(ctx context.Context, iban string, amount domain.Money) (domain.Money, error)
	// Deposit adds amount.
	Deposit(ctx context.Context, iban string, amount domain.Money) (domain.Money, error)
}

// Ledger serializes debits and credits per account.
type Ledger struct {
	store       BalanceStore
	locker      locking.Locker
	lockTimeout time.Duration
}

// New returns a Ledger. A non-positive lockTimeout falls back to DefaultLockTimeout.
func New(store BalanceStore, locker locking.Locker, lockTimeout time.Duration) *Ledger {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}

	return &Ledger{
		store:       store,
		locker:      locker,
		lockTimeout: lockTimeout,
	}
}

// TransferResult holds both balances after a transfer.
type TransferResult struct {
	FromBalance domain.Money
	ToBalance   domain.Money
}

// Balance returns the current balance of the account.
func (l *Ledger) Balance(ctx context.Context, iban string) (domain.Money, error) {
	return l.store.Balance(ctx, iban)
}

// Debit withdraws amount from the account and returns the new balance.
//
// The funds check and the write happen inside the same critical section.
func (l *Ledger) Debit(ctx context.Context, iban string, amount domain.Money) (domain.Money, error) {
	if !amount.IsPositive() {
		return domain.Zero, domain.NewValidationError(domain.ErrNegativeAmount, amount.String())
	}

	release, err := l.lock(ctx, iban)
	if err != nil {
		return domain.Zero, err
	}
	defer release()

	return l.store.Withdraw(context.WithoutCancel(ctx), iban, amount)
}

// Credit deposits amount into the account and returns the new balance.
func (l *Ledger) Credit(ctx context.Context, iban string, amount domain.Money) (domain.Money, error) {
	if !amount.IsPositive() {
		return domain.Zero, domain.NewValidationError(domain.ErrNegativeAmount, amount.String())
	}

	release, err := l.lock(ctx, iban)
	if err != nil {
		return domain.Zero, err
	}
	defer release()

	return l.store.Deposit(context.WithoutCancel(ctx), iban, amount)
}

// Transfer debits from and credits to while holding both account locks.
//
// Either both sides are applied or none: a failed credit reverts the debit and
// returns ErrCompensated.
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount domain.Money) (TransferResult, error) {
	if !amount.IsPositive() {
		return TransferResult{}, domain.NewValidationError(domain.ErrNegativeAmount, amount.String())
	}

	release, err := l.lock(ctx, from, to)
	if err != nil {
		return TransferResult{}, err
	}
	defer release()

	// Past this point the movement is not cancellable.
	return l.transfer(context.WithoutCancel(ctx), from, to, amount)
}

// Apply debits amount from debitIBAN, credits it to creditIBAN unless it is empty,
// and runs commit before the account locks are released.
//
// If commit fails the mutation is reverted under the same locks and the commit
// error is returned. A failed revert returns ErrCompensationFailed.
func (l *Ledger) Apply(ctx context.Context, debitIBAN, creditIBAN string, amount domain.Money, commit func(ctx context.Context) error) error {
	if !amount.IsPositive() {
		return domain.NewValidationError(domain.ErrNegativeAmount, amount.String())
	}

	ibans := []string{debitIBAN}
	if creditIBAN != "" {
		ibans = append(ibans, creditIBAN)
	}

	release, err := l.lock(ctx, ibans...)
	if err != nil {
		return err
	}
	defer release()

	ctx = context.WithoutCancel(ctx)
	log := zerolog.Ctx(ctx)

	if creditIBAN == "" {
		_, err = l.store.Withdraw(ctx, debitIBAN, amount)
	} else {
		_, err = l.transfer(ctx, debitIBAN, creditIBAN, amount)
	}

	if err != nil {
		return err
	}

	cerr := commit(ctx)
	if cerr == nil {
		return nil
	}

	// The credited account is still locked, so it holds at least amount.
	if creditIBAN != "" {
		if _, err := l.store.Withdraw(ctx, creditIBAN, amount); err != nil {
			log.Error().Err(err).
				Str("iban", creditIBAN).
				Str("amount", amount.String()).
				Msg("reverting credit failed")

			return fmt.Errorf("%w: commit: %v, revert: %v", ErrCompensationFailed, cerr, err)
		}
	}

	if _, err := l.store.Deposit(ctx, debitIBAN, amount); err != nil {
		log.Error().Err(err).
			Str("iban", debitIBAN).
			Str("amount", amount.String()).
			Msg("reverting debit failed")

		return fmt.Errorf("%w: commit: %v, revert: %v", ErrCompensationFailed, cerr, err)
	}

	return cerr
}

func (l *Ledger) transfer(ctx context.Context, from, to string, amount domain.Money) (TransferResult, error) {
	log := zerolog.Ctx(ctx)

	fromBalance, err := l.store.Withdraw(ctx, from, amount)
	if err != nil {
		return TransferResult{}, err
	}

	toBalance, err := l.store.Deposit(ctx, to, amount)
	if err != nil {
		log.Error().Err(err).
			Str("from_iban", from).
			Str("to_iban", to).
			Str("amount", amount.String()).
			Msg("credit failed after debit, compensating")

		if _, cerr := l.store.Deposit(ctx, from, amount); cerr != nil {
			log.Error().Err(cerr).
				Str("iban", from).
				Str("amount", amount.String()).
				Msg("debit compensation failed")

			return TransferResult{}, fmt.Errorf("%w: credit: %v, compensation: %v", ErrCompensationFailed, err, cerr)
		}

		// A credit that can never succeed leaves nothing applied.
		if errors.Is(err, domain.ErrValidation) {
			return TransferResult{}, err
		}

		return TransferResult{}, fmt.Errorf("%w: %v", ErrCompensated, err)
	}

	return TransferResult{FromBalance: fromBalance, ToBalance: toBalance}, nil
}

func lockKey(iban string) string {
	return "account:" + iban
}

// lock acquires the accounts in lexicographic order so that concurrent transfers
// in opposite directions cannot deadlock.
func (l *Ledger) lock(ctx context.Context, ibans ...string) (func(), error) {
	keys := make([]string, 0, len(ibans))
	seen := make(map[string]bool, len(ibans))

	for _, iban := range ibans {
		if !seen[iban] {
			seen[iban] = true
			keys = append(keys, lockKey(iban))
		}
	}

	sort.Strings(keys)

	lockCtx, cancel := context.WithTimeout(ctx, l.lockTimeout)
	defer cancel()

	held := make([]locking.Unlocker, 0, len(keys))
	release := func() {
		unlockCtx := context.WithoutCancel(ctx)

		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Unlock(unlockCtx); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Send()
			}
		}
	}

	for _, key := range keys {
		h, err := l.locker.Lock(lockCtx, key)
		if err != nil {
			release()
			return nil, err
		}

		held = append(held, h)
	}

	return release, nil
}
