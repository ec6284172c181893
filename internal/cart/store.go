package cart

import (
	"context"
	"sync"
)

// Store сохраняет корзину по идентификатору сессии.
// Load для неизвестной сессии возвращает пустую корзину.
type Store interface {
	Load(ctx context.Context, session string) (*Cart, error)
	Save(ctx context.Context, session string, c *Cart) error
	Delete(ctx context.Context, session string) error
}

// Mutate загружает корзину, применяет fn и сохраняет результат.
// Если fn вернула ошибку, корзина не сохраняется.
func Mutate(ctx context.Context, s Store, session string, fn func(c *Cart) error) (*Cart, error) {
	c, err := s.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, session, c); err != nil {
		return nil, err
	}
	return c, nil
}

// MemoryStore хранит корзины в памяти процесса
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]*Cart)}
}

func (m *MemoryStore) Load(_ context.Context, session string) (*Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.carts[session]; ok {
		return c.clone(), nil
	}
	return New(), nil
}

func (m *MemoryStore) Save(_ context.Context, session string, c *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.IsEmpty() {
		delete(m.carts, session)
		return nil
	}
	m.carts[session] = c.clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, session)
	return nil
}
