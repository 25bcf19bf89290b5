// Package movementcache decorates a movement store with a Redis read-through cache.
package movementcache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/internal/movementservice"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// DefaultTTL is used when no positive TTL is configured.
const DefaultTTL = 10 * time.Minute

// Store caches single-movement reads of the wrapped store. Cache failures are
// logged and never fail the call.
type Store struct {
	next movementservice.Repo
	rdb  *redis.Client
	ttl  time.Duration
}

var _ movementservice.Repo = (*Store)(nil)

// New returns a caching Store in front of next.
func New(next movementservice.Repo, rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Store{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
	}
}

func idKey(id int64) string {
	return "movement:id:" + strconv.FormatInt(id, 10)
}

func guidKey(guid string) string {
	return "movement:guid:" + guid
}

// Create stores the movement and caches it.
func (s *Store) Create(ctx context.Context, arg domain.CreateMovementParams) (domain.Movement, error) {
	m, err := s.next.Create(ctx, arg)
	if err != nil {
		return domain.Movement{}, err
	}

	s.put(ctx, m)

	return m, nil
}

// Get returns the movement from the cache, falling back to the wrapped store.
func (s *Store) Get(ctx context.Context, id int64) (domain.Movement, error) {
	if m, ok := s.lookup(ctx, idKey(id)); ok {
		return m, nil
	}

	m, err := s.next.Get(ctx, id)
	if err != nil {
		return domain.Movement{}, err
	}

	s.put(ctx, m)

	return m, nil
}

// GetByGUID returns the movement from the cache, falling back to the wrapped store.
func (s *Store) GetByGUID(ctx context.Context, guid string) (domain.Movement, error) {
	if m, ok := s.lookup(ctx, guidKey(guid)); ok {
		return m, nil
	}

	m, err := s.next.GetByGUID(ctx, guid)
	if err != nil {
		return domain.Movement{}, err
	}

	s.put(ctx, m)

	return m, nil
}

// ListByClient is served by the wrapped store.
func (s *Store) ListByClient(ctx context.Context, clientGUID string) ([]domain.Movement, error) {
	return s.next.ListByClient(ctx, clientGUID)
}

// SoftDelete hides the movement and evicts it.
func (s *Store) SoftDelete(ctx context.Context, id int64) error {
	guid := s.guidOf(ctx, id)

	if err := s.next.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.evict(ctx, id, guid)

	return nil
}

// Delete removes the movement and evicts it.
func (s *Store) Delete(ctx context.Context, id int64) error {
	guid := s.guidOf(ctx, id)

	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}

	s.evict(ctx, id, guid)

	return nil
}

// guidOf resolves the guid key to evict with id, preferring the cached entry.
func (s *Store) guidOf(ctx context.Context, id int64) string {
	if m, ok := s.lookup(ctx, idKey(id)); ok {
		return m.GUID
	}

	m, err := s.next.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("id", id).Msg("movement guid unresolved, guid key not evicted")
		}

		return ""
	}

	return m.GUID
}

func (s *Store) lookup(ctx context.Context, key string) (domain.Movement, bool) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("movement cache read failed")
		}

		return domain.Movement{}, false
	}

	var m domain.Movement
	if err := json.Unmarshal(b, &m); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("movement cache entry corrupted")
		return domain.Movement{}, false
	}

	return m, true
}

func (s *Store) put(ctx context.Context, m domain.Movement) {
	l := zerolog.Ctx(ctx)

	b, err := json.Marshal(m)
	if err != nil {
		l.Warn().Err(err).Send()
		return
	}

	for _, key := range []string{idKey(m.ID), guidKey(m.GUID)} {
		if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
			l.Warn().Err(err).Str("key", key).Msg("movement cache write failed")
		}
	}
}

func (s *Store) evict(ctx context.Context, id int64, guid string) {
	keys := []string{idKey(id)}
	if guid != "" {
		keys = append(keys, guidKey(guid))
	}

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Strs("keys", keys).Msg("movement cache eviction failed")
	}
}
