package memstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/pkg/errorspkg"
)

// Movements is an append-only movement store.
type Movements struct {
	mu     sync.RWMutex
	lastID int64
	byID   map[int64]domain.Movement
	byGUID map[string]int64
}

// NewMovements returns an empty store.
func NewMovements() *Movements {
	return &Movements{
		byID:   make(map[int64]domain.Movement),
		byGUID: make(map[string]int64),
	}
}

// Create stores the movement, assigning its ID and creation time.
func (s *Movements) Create(_ context.Context, arg domain.CreateMovementParams) (domain.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byGUID[arg.GUID]; ok {
		return domain.Movement{}, fmt.Errorf("%w: duplicated movement guid %s", errorspkg.ErrInternal, arg.GUID)
	}

	s.lastID++

	m := domain.Movement{
		ID:         s.lastID,
		GUID:       arg.GUID,
		ClientGUID: arg.ClientGUID,
		Variant:    cloneVariant(arg.Variant),
		CreatedAt:  time.Now().UTC(),
	}

	s.byID[m.ID] = m
	s.byGUID[m.GUID] = m.ID

	return clone(m), nil
}

// Get returns a visible movement by id.
func (s *Movements) Get(_ context.Context, id int64) (domain.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.byID[id]
	if !ok || m.IsDeleted {
		return domain.Movement{}, domain.NewNotFoundError(domain.ErrMovementNotFound, strconv.FormatInt(id, 10))
	}

	return clone(m), nil
}

// GetByGUID returns a visible movement by guid.
func (s *Movements) GetByGUID(_ context.Context, guid string) (domain.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byGUID[guid]
	if !ok || s.byID[id].IsDeleted {
		return domain.Movement{}, domain.NewNotFoundError(domain.ErrMovementNotFound, guid)
	}

	return clone(s.byID[id]), nil
}

// ListByClient returns the client's visible movements in creation order.
func (s *Movements) ListByClient(_ context.Context, clientGUID string) ([]domain.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []domain.Movement{}

	for _, m := range s.byID {
		if m.ClientGUID == clientGUID && !m.IsDeleted {
			items = append(items, clone(m))
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}

		return items[i].ID < items[j].ID
	})

	return items, nil
}

// SoftDelete hides the movement from every read path.
func (s *Movements) SoftDelete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byID[id]
	if !ok || m.IsDeleted {
		return domain.NewNotFoundError(domain.ErrMovementNotFound, strconv.FormatInt(id, 10))
	}

	m.IsDeleted = true
	s.byID[id] = m

	return nil
}

// Delete physically removes the movement.
func (s *Movements) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byID[id]
	if !ok {
		return domain.NewNotFoundError(domain.ErrMovementNotFound, strconv.FormatInt(id, 10))
	}

	delete(s.byID, id)
	delete(s.byGUID, m.GUID)

	return nil
}

func clone(m domain.Movement) domain.Movement {
	m.Variant = cloneVariant(m.Variant)
	return m
}

func cloneVariant(v domain.Variant) domain.Variant {
	out := domain.Variant{Kind: v.Kind}

	if v.Transfer != nil {
		t := *v.Transfer
		out.Transfer = &t
	}

	if v.CardPayment != nil {
		p := *v.CardPayment
		out.CardPayment = &p
	}

	if v.PayrollDeposit != nil {
		p := *v.PayrollDeposit
		out.PayrollDeposit = &p
	}

	if v.DirectDebit != nil {
		c := *v.DirectDebit
		out.DirectDebit = &c
	}

	return out
}
