package session

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound - ключа нет или его TTL истек.
var ErrKeyNotFound = errors.New("session key not found")

// Store - хранилище сессий генерации в виде JSON-значений с TTL.
type Store interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Update атомарно читает значение, передает его в fn и записывает результат.
	// Ошибка fn прерывает запись и возвращается как есть.
	Update(ctx context.Context, key string, ttl time.Duration, fn func(current []byte) ([]byte, error)) error
	// Lock захватывает эксклюзивную блокировку. Если она занята, возвращает ErrLockHeld.
	Lock(ctx context.Context, key string, ttl time.Duration) (Unlock, error)
}

// Unlock освобождает блокировку, если она все еще принадлежит владельцу.
type Unlock func(ctx context.Context) error

// ErrLockHeld - блокировка занята другим владельцем.
var ErrLockHeld = errors.New("lock is held")
