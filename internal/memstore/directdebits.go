package memstore

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-petr/movement-engine/internal/domain"
)

// DirectDebits stores standing orders and enforces one active order per (client, creditor).
type DirectDebits struct {
	mu     sync.RWMutex
	lastID int64
	byID   map[int64]domain.DirectDebit
}

// NewDirectDebits returns an empty store.
func NewDirectDebits() *DirectDebits {
	return &DirectDebits{byID: make(map[int64]domain.DirectDebit)}
}

// Create stores an active direct debit.
func (s *DirectDebits) Create(_ context.Context, arg domain.SaveDirectDebitParams) (domain.DirectDebit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.byID {
		if d.Active && d.ClientGUID == arg.ClientGUID && d.Creditor == arg.Creditor {
			return domain.DirectDebit{}, domain.NewValidationError(domain.ErrDuplicatedDirectDebit, arg.Creditor)
		}
	}

	s.lastID++

	d := domain.DirectDebit{
		ID:            s.lastID,
		GUID:          arg.GUID,
		ClientGUID:    arg.ClientGUID,
		FromIBAN:      arg.FromIBAN,
		Creditor:      arg.Creditor,
		Amount:        arg.Amount,
		Periodicity:   arg.Periodicity,
		LastExecution: arg.LastExecution,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}

	s.byID[d.ID] = d

	return d, nil
}

// Get returns the direct debit with the given id.
func (s *DirectDebits) Get(_ context.Context, id int64) (domain.DirectDebit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.byID[id]
	if !ok {
		return domain.DirectDebit{}, domain.NewNotFoundError(domain.ErrDirectDebitNotFound, strconv.FormatInt(id, 10))
	}

	return d, nil
}

// ListByClient returns every direct debit of the client ordered by id.
func (s *DirectDebits) ListByClient(_ context.Context, clientGUID string) ([]domain.DirectDebit, error) {
	return s.list(func(d domain.DirectDebit) bool { return d.ClientGUID == clientGUID }), nil
}

// ListActiveByClient returns the client's active direct debits ordered by id.
func (s *DirectDebits) ListActiveByClient(_ context.Context, clientGUID string) ([]domain.DirectDebit, error) {
	return s.list(func(d domain.DirectDebit) bool { return d.Active && d.ClientGUID == clientGUID }), nil
}

// ListActive returns every active direct debit ordered by id.
func (s *DirectDebits) ListActive(_ context.Context) ([]domain.DirectDebit, error) {
	return s.list(func(d domain.DirectDebit) bool { return d.Active }), nil
}

// MarkExecuted records a successful cycle.
func (s *DirectDebits) MarkExecuted(_ context.Context, id int64, at time.Time) (domain.DirectDebit, error) {
	return s.update(id, func(d *domain.DirectDebit) { d.LastExecution = at })
}

// Deactivate permanently disables the direct debit.
func (s *DirectDebits) Deactivate(_ context.Context, id int64) (domain.DirectDebit, error) {
	return s.update(id, func(d *domain.DirectDebit) { d.Active = false })
}

func (s *DirectDebits) update(id int64, fn func(d *domain.DirectDebit)) (domain.DirectDebit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byID[id]
	if !ok {
		return domain.DirectDebit{}, domain.NewNotFoundError(domain.ErrDirectDebitNotFound, strconv.FormatInt(id, 10))
	}

	fn(&d)
	s.byID[id] = d

	return d, nil
}

func (s *DirectDebits) list(keep func(d domain.DirectDebit) bool) []domain.DirectDebit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []domain.DirectDebit{}

	for _, d := range s.byID {
		if keep(d) {
			items = append(items, d)
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return items
}
