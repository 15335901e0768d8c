package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Store = (*MemoryStore)(nil)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// MemoryStore - хранилище сессий в памяти процесса для запуска без Redis.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

// getLocked возвращает живую запись; вызывается под мьютексом.
func (s *MemoryStore) getLocked(key string) ([]byte, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: append([]byte(nil), value...), expires: s.expiry(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.getLocked(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Update(_ context.Context, key string, ttl time.Duration, fn func([]byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.getLocked(key)
	if !ok {
		return ErrKeyNotFound
	}
	next, err := fn(append([]byte(nil), current...))
	if err != nil {
		return err
	}
	s.entries[key] = memoryEntry{value: next, expires: s.expiry(ttl)}
	return nil
}

func (s *MemoryStore) Lock(_ context.Context, key string, ttl time.Duration) (Unlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lockKey := "lock:" + key
	if _, held := s.getLocked(lockKey); held {
		return nil, ErrLockHeld
	}
	// Старый Unlock не должен снимать блокировку, захваченную заново после истечения TTL
	token := []byte(uuid.NewString())
	s.entries[lockKey] = memoryEntry{value: token, expires: s.expiry(ttl)}

	return func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if e, ok := s.entries[lockKey]; ok && string(e.value) == string(token) {
			delete(s.entries, lockKey)
		}
		return nil
	}, nil
}
