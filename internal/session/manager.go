// Package session manages Redis-backed research sessions: run history
// and accumulated token/cost usage across a user's research queries.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dossierlab/dossier/internal/metrics"
)

const (
	defaultTTL       = 24 * time.Hour
	maxCachedEntries = 10000
)

// Manager handles session storage with a Redis backend and a local
// cache in front of it.
type Manager struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration

	mu          sync.RWMutex
	localCache  map[string]*Session
	cacheAccess map[string]time.Time
}

// NewManager connects to Redis and returns a session manager. The Redis
// password is read from REDIS_PASSWORD.
func NewManager(redisAddr string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Manager{
		client:      client,
		logger:      logger,
		ttl:         defaultTTL,
		localCache:  make(map[string]*Session),
		cacheAccess: make(map[string]time.Time),
	}, nil
}

// CreateSession creates and stores a new session.
func (m *Manager) CreateSession(ctx context.Context, userID string, metadata map[string]interface{}) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		Metadata:  metadata,
		Runs:      make([]RunRecord, 0),
	}

	if err := m.saveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	m.cachePut(session)

	m.logger.Info("Created research session",
		zap.String("session_id", session.ID),
		zap.String("user_id", userID),
	)
	metrics.SessionsCreated.Inc()
	return session, nil
}

// GetSession retrieves a session, preferring the local cache.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	cached, ok := m.localCache[sessionID]
	m.mu.RUnlock()
	if ok {
		metrics.SessionCacheHits.WithLabelValues("hit").Inc()
		if cached.IsExpired() {
			_ = m.DeleteSession(ctx, sessionID)
			return nil, ErrSessionExpired
		}
		m.mu.Lock()
		m.cacheAccess[sessionID] = time.Now()
		m.mu.Unlock()
		return cached, nil
	}
	metrics.SessionCacheHits.WithLabelValues("miss").Inc()

	data, err := m.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.IsExpired() {
		_ = m.DeleteSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}

	m.cachePut(&session)
	return &session, nil
}

// RecordRun appends one run summary to a session and persists it. A
// missing session is created on the fly so recording never fails a run
// for bookkeeping reasons.
func (m *Manager) RecordRun(ctx context.Context, sessionID string, run RunRecord) error {
	session, err := m.GetSession(ctx, sessionID)
	if err == ErrSessionNotFound || err == ErrSessionExpired {
		now := time.Now()
		session = &Session{
			ID:        sessionID,
			CreatedAt: now,
			UpdatedAt: now,
			ExpiresAt: now.Add(m.ttl),
			Runs:      make([]RunRecord, 0),
		}
		metrics.SessionsCreated.Inc()
	} else if err != nil {
		return err
	}

	session.RecordRun(run)
	if err := m.saveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	m.cachePut(session)

	m.logger.Debug("Recorded research run",
		zap.String("session_id", sessionID),
		zap.String("run_id", run.RunID),
		zap.Int("tokens", run.TokensUsed),
	)
	return nil
}

// DeleteSession removes a session from Redis and the local cache.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.localCache, sessionID)
	delete(m.cacheAccess, sessionID)
	m.mu.Unlock()

	if err := m.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (m *Manager) Close() error {
	return m.client.Close()
}

func (m *Manager) saveSession(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return m.client.Set(ctx, sessionKey(session.ID), data, m.ttl).Err()
}

func (m *Manager) cachePut(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.localCache[session.ID] = session
	m.cacheAccess[session.ID] = time.Now()
	m.evictLocked()
}

// evictLocked drops the least recently used entries once the cache
// exceeds its bound. Caller holds mu.
func (m *Manager) evictLocked() {
	for len(m.localCache) > maxCachedEntries {
		oldest := ""
		var oldestAt time.Time
		for id, at := range m.cacheAccess {
			if oldest == "" || at.Before(oldestAt) {
				oldest = id
				oldestAt = at
			}
		}
		delete(m.localCache, oldest)
		delete(m.cacheAccess, oldest)
	}
}

func sessionKey(id string) string {
	return "dossier:session:" + id
}
