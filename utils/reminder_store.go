package utils

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wastewise/api/engine"
)

// reminderTTL bounds how long unused reminder state is kept.
const reminderTTL = 30 * 24 * time.Hour

// ReminderStore persists per-user reminder dismissal state.
type ReminderStore interface {
	Load(ctx context.Context, userID uint) (engine.ReminderPrefs, error)
	Save(ctx context.Context, userID uint, prefs engine.ReminderPrefs) error
}

// NewReminderStore prefers Redis and falls back to process memory.
func NewReminderStore() ReminderStore {
	if rc := GetRedis(); rc != nil {
		return &redisReminderStore{rc: rc}
	}
	return NewMemoryReminderStore()
}

type redisReminderStore struct {
	rc *redis.Client
}

func reminderKey(userID uint) string {
	return "reminder:prefs:" + strconv.FormatUint(uint64(userID), 10)
}

func (s *redisReminderStore) Load(ctx context.Context, userID uint) (engine.ReminderPrefs, error) {
	var prefs engine.ReminderPrefs
	b, err := s.rc.Get(ctx, reminderKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return prefs, nil
	}
	if err != nil {
		return prefs, err
	}
	if err := json.Unmarshal(b, &prefs); err != nil {
		// corrupt entry: start over rather than wedge the user's reminders
		Sugar.Warnf("discarding unreadable reminder prefs user=%d: %v", userID, err)
		return engine.ReminderPrefs{}, nil
	}
	return prefs, nil
}

func (s *redisReminderStore) Save(ctx context.Context, userID uint, prefs engine.ReminderPrefs) error {
	b, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.rc.Set(ctx, reminderKey(userID), b, reminderTTL).Err()
}

// MemoryReminderStore keeps reminder state in process memory (single instance only).
type MemoryReminderStore struct {
	mu    sync.Mutex
	prefs map[uint]engine.ReminderPrefs
}

// NewMemoryReminderStore returns an empty in-memory store.
func NewMemoryReminderStore() *MemoryReminderStore {
	return &MemoryReminderStore{prefs: map[uint]engine.ReminderPrefs{}}
}

func (s *MemoryReminderStore) Load(_ context.Context, userID uint) (engine.ReminderPrefs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs[userID], nil
}

func (s *MemoryReminderStore) Save(_ context.Context, userID uint, prefs engine.ReminderPrefs) error {
	s.mu.Lock()
	s.prefs[userID] = prefs
	s.mu.Unlock()
	return nil
}
