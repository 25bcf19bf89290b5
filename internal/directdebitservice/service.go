// Package directdebitservice manages standing direct debit orders and executes the due ones.
package directdebitservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/internal/locking"
	"github.com/go-petr/movement-engine/pkg/errorspkg"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultLockTimeout bounds the wait for an order lock when none is configured.
const DefaultLockTimeout = 2 * time.Second

// maxParallelExecutions caps the orders executed at once by ExecuteDue.
const maxParallelExecutions = 4

// Repo provides data access layer interface needed by direct debit service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package directdebitservice
type Repo interface {
	Create(ctx context.Context, arg domain.SaveDirectDebitParams) (domain.DirectDebit, error)
	Get(ctx context.Context, id int64) (domain.DirectDebit, error)
	ListByClient(ctx context.Context, clientGUID string) ([]domain.DirectDebit, error)
	ListActive(ctx context.Context) ([]domain.DirectDebit, error)
	MarkExecuted(ctx context.Context, id int64, at time.Time) (domain.DirectDebit, error)
	Deactivate(ctx context.Context, id int64) (domain.DirectDebit, error)
}

// Service facilitates direct debit service layer logic.
type Service struct {
	repo        Repo
	pipeline    Pipeline
	movements   MovementSubmitter
	locker      locking.Locker
	lockTimeout time.Duration
}

// New returns direct debit service struct. A non-positive lockTimeout falls back to DefaultLockTimeout.
func New(repo Repo, pipeline Pipeline, movements MovementSubmitter, locker locking.Locker, lockTimeout time.Duration) *Service {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}

	return &Service{
		repo:        repo,
		pipeline:    pipeline,
		movements:   movements,
		locker:      locker,
		lockTimeout: lockTimeout,
	}
}

// Create validates and stores a new active direct debit. Its first cycle is due one
// period after creation.
func (s *Service) Create(ctx context.Context, clientGUID string, arg domain.CreateDirectDebitParams) (domain.DirectDebit, error) {
	l := zerolog.Ctx(ctx)

	client, err := s.pipeline.DirectDebit(ctx, clientGUID, arg)
	if err != nil {
		return domain.DirectDebit{}, err
	}

	d, err := s.repo.Create(ctx, domain.SaveDirectDebitParams{
		GUID:          uuid.NewString(),
		ClientGUID:    client.GUID,
		FromIBAN:      arg.FromIBAN,
		Creditor:      arg.Creditor,
		Amount:        arg.Amount,
		Periodicity:   arg.Periodicity,
		LastExecution: time.Now().UTC(),
	})
	if err != nil {
		l.Error().Err(err).Send()
		return domain.DirectDebit{}, err
	}

	return d, nil
}

// Get returns the direct debit with the given id.
func (s *Service) Get(ctx context.Context, id int64) (domain.DirectDebit, error) {
	return s.repo.Get(ctx, id)
}

// ListByClient returns every direct debit of the client, active or not.
func (s *Service) ListByClient(ctx context.Context, clientGUID string) ([]domain.DirectDebit, error) {
	return s.repo.ListByClient(ctx, clientGUID)
}

// Due returns the active orders whose next cycle starts at or before asOf.
// No lock is held while scanning.
func (s *Service) Due(ctx context.Context, asOf time.Time) ([]domain.DirectDebit, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return nil, err
	}

	due := make([]domain.DirectDebit, 0, len(active))

	for _, d := range active {
		if d.IsDue(asOf) {
			due = append(due, d)
		}
	}

	return due, nil
}

// Execute charges one cycle of the order and records asOf as its last execution.
//
// The order is re-read under its lock, so a concurrent execution or deactivation
// is observed. A failed charge leaves the order unchanged and still due.
func (s *Service) Execute(ctx context.Context, id int64, asOf time.Time) (domain.Movement, error) {
	l := zerolog.Ctx(ctx)

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return domain.Movement{}, err
	}
	defer unlock()

	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Movement{}, err
	}

	if !d.Active {
		return domain.Movement{}, domain.NewValidationError(domain.ErrDirectDebitInactive, d.GUID)
	}

	if !d.IsDue(asOf) {
		return domain.Movement{}, domain.NewValidationError(domain.ErrDirectDebitNotDue, d.NextExecution().Format(time.RFC3339))
	}

	charge := d.Charge()

	m, err := s.movements.GetByGUID(ctx, charge.MovementGUID())
	switch {
	case err == nil:
		// Charged by an earlier attempt that could not record the execution.
		l.Warn().
			Str("direct_debit_guid", d.GUID).
			Str("movement_guid", m.GUID).
			Msg("direct debit cycle already charged")
	case errors.Is(err, domain.ErrNotFound):
		m, err = s.movements.SubmitDirectDebitCharge(ctx, d.ClientGUID, charge)
	}

	if err != nil {
		l.Warn().Err(err).
			Str("direct_debit_guid", d.GUID).
			Str("from_iban", d.FromIBAN).
			Str("amount", d.Amount.String()).
			Msg("direct debit charge failed")

		return domain.Movement{}, err
	}

	if _, err := s.repo.MarkExecuted(context.WithoutCancel(ctx), d.ID, asOf); err != nil {
		l.Error().Err(err).
			Str("direct_debit_guid", d.GUID).
			Str("movement_guid", m.GUID).
			Msg("direct debit charged but not marked as executed")

		return m, fmt.Errorf("%w: mark executed: %v", errorspkg.ErrInternal, err)
	}

	return m, nil
}

// Failure is an order whose execution failed during ExecuteDue.
type Failure struct {
	DirectDebit domain.DirectDebit
	Err         error
}

// RunReport summarizes one ExecuteDue run. Failed orders stay due and are retried
// by the next run.
type RunReport struct {
	AsOf     time.Time
	Executed []domain.Movement
	Failed   []Failure
}

// ExecuteDue executes every order due at asOf. Individual failures are collected in
// the report; only a failing scan is returned as an error.
func (s *Service) ExecuteDue(ctx context.Context, asOf time.Time) (RunReport, error) {
	due, err := s.Due(ctx, asOf)
	if err != nil {
		return RunReport{}, err
	}

	movements := make([]domain.Movement, len(due))
	errs := make([]error, len(due))

	var g errgroup.Group
	g.SetLimit(maxParallelExecutions)

	for i := range due {
		i := i

		g.Go(func() error {
			movements[i], errs[i] = s.Execute(ctx, due[i].ID, asOf)
			return nil
		})
	}

	_ = g.Wait()

	report := RunReport{AsOf: asOf}

	for i, d := range due {
		if errs[i] != nil {
			report.Failed = append(report.Failed, Failure{DirectDebit: d, Err: errs[i]})
			continue
		}

		report.Executed = append(report.Executed, movements[i])
	}

	zerolog.Ctx(ctx).Info().
		Time("as_of", asOf).
		Int("due", len(due)).
		Int("executed", len(report.Executed)).
		Int("failed", len(report.Failed)).
		Msg("direct debits run")

	return report, nil
}

// Deactivate permanently disables one of the client's orders.
func (s *Service) Deactivate(ctx context.Context, clientGUID string, id int64) (domain.DirectDebit, error) {
	l := zerolog.Ctx(ctx)

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return domain.DirectDebit{}, err
	}
	defer unlock()

	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.DirectDebit{}, err
	}

	if d.ClientGUID != clientGUID {
		err := domain.NewNotFoundError(domain.ErrDirectDebitOwnerMismatch, strconv.FormatInt(id, 10))
		l.Info().Err(err).Send()

		return domain.DirectDebit{}, err
	}

	if !d.Active {
		return domain.DirectDebit{}, domain.NewValidationError(domain.ErrDirectDebitInactive, d.GUID)
	}

	d, err = s.repo.Deactivate(ctx, id)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.DirectDebit{}, err
	}

	return d, nil
}

func (s *Service) lock(ctx context.Context, id int64) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	h, err := s.locker.Lock(lockCtx, "directdebit:"+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}

	return func() {
		if err := h.Unlock(context.WithoutCancel(ctx)); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Send()
		}
	}, nil
}
