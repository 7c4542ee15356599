package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// ErrSessionNotFound is returned for unknown or already expired menus.
var ErrSessionNotFound = errors.New("ticket session not found")

// SessionStore keeps open-ticket menus until they expire.
// Entries disappear on their own once ExpiresAt has passed.
type SessionStore interface {
	Save(ctx context.Context, session *domain.TicketSession) error
	Get(ctx context.Context, id string) (*domain.TicketSession, error)
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore keeps sessions in process memory. Sessions are lost on restart.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.TicketSession
	now      func() time.Time
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore(now func() time.Time) *MemorySessionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{
		sessions: make(map[string]domain.TicketSession),
		now:      now,
	}
}

func (m *MemorySessionStore) Save(_ context.Context, session *domain.TicketSession) error {
	if session == nil || session.ID == "" {
		return errors.New("session id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	if !m.now().Before(session.ExpiresAt) {
		delete(m.sessions, session.ID)
		return nil
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*domain.TicketSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	return len(m.sessions)
}

// sweep drops expired sessions; callers hold mu.
func (m *MemorySessionStore) sweep() {
	now := m.now()
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
		}
	}
}

// RedisSessionStore keeps sessions as JSON values with a TTL matching the
// menu's expiry, so several bot processes can serve the same menu.
type RedisSessionStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisSessionStore creates a store using keys "<prefix>session:<id>".
func NewRedisSessionStore(client redis.Cmdable, prefix string, now func() time.Time) *RedisSessionStore {
	if now == nil {
		now = time.Now
	}
	return &RedisSessionStore{client: client, prefix: prefix, now: now}
}

func (r *RedisSessionStore) Save(ctx context.Context, session *domain.TicketSession) error {
	if session == nil || session.ID == "" {
		return errors.New("session id required")
	}
	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return r.Delete(ctx, session.ID)
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*domain.TicketSession, error) {
	payload, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session domain.TicketSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) key(id string) string {
	return r.prefix + "session:" + id
}
