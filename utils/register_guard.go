package utils

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wastewise/api/config"
	"github.com/wastewise/api/engine"
)

// Registration abuse counters live in redis; without it they fall back to process memory.
// Redis errors fail open so a cache outage never blocks sign-ups.

type regEntry struct {
	n         int
	expiresAt time.Time
}

var (
	regMem   = map[string]regEntry{}
	regMemMu sync.Mutex
)

func regKey(parts ...string) string {
	return "reg:" + strings.Join(parts, ":")
}

// RegistrationIsBanned reports whether ip is under a temporary registration ban.
func RegistrationIsBanned(ip string, now time.Time) bool {
	return regGet(regKey("ban", ip), now) > 0
}

// RegistrationCooldownTry claims the per-IP attempt cooldown; false while it is still running.
func RegistrationCooldownTry(ip string, now time.Time) bool {
	sec := config.Get().RegisterAttemptCooldownSec
	if sec <= 0 {
		return true
	}
	return regSetNX(regKey("cooldown", ip), time.Duration(sec)*time.Second, now)
}

// RegistrationDailyLimitCheck allows up to RegisterMaxPerIPPerDay accounts per IP per calendar day.
func RegistrationDailyLimitCheck(ip string, now time.Time) bool {
	limit := config.Get().RegisterMaxPerIPPerDay
	if limit <= 0 {
		return true
	}
	return regGet(regKey("succday", ip, engine.DayOf(now)), now) < limit
}

// RegistrationDailyIncrement counts a successful registration until the end of now's day.
func RegistrationDailyIncrement(ip string, now time.Time) {
	_, end := engine.DayBounds(now)
	regIncr(regKey("succday", ip, engine.DayOf(now)), end.Sub(now), now)
}

// RegistrationFailed records a rejected attempt and bans ip once the hourly threshold is hit.
// It returns the failure count of the current hour.
func RegistrationFailed(ip string, now time.Time) int {
	cfg := config.Get()
	n := regIncr(regKey("failhour", ip, now.UTC().Format("2006010215")), time.Hour, now)
	if cfg.RegisterFailedMaxPerIPPerHour > 0 && n >= cfg.RegisterFailedMaxPerIPPerHour {
		regIncr(regKey("ban", ip), time.Duration(max(cfg.RegisterTempBanMinutes, 1))*time.Minute, now)
		Sugar.Warnw("registration temporarily banned", "ip", ip, "failures", n)
	}
	return n
}

func regGet(key string, now time.Time) int {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		n, err := rc.Get(ctx, key).Int()
		if err != nil && err != redis.Nil {
			return 0
		}
		return n
	}
	regMemMu.Lock()
	defer regMemMu.Unlock()
	e, ok := regMem[key]
	if !ok || !now.Before(e.expiresAt) {
		return 0
	}
	return e.n
}

func regIncr(key string, ttl time.Duration, now time.Time) int {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		n, err := rc.Incr(ctx, key).Result()
		if err != nil {
			return 0
		}
		if n == 1 {
			_ = rc.Expire(ctx, key, ttl).Err()
		}
		return int(n)
	}
	regMemMu.Lock()
	defer regMemMu.Unlock()
	e, ok := regMem[key]
	if !ok || !now.Before(e.expiresAt) {
		e = regEntry{expiresAt: now.Add(ttl)}
	}
	e.n++
	regMem[key] = e
	return e.n
}

func regSetNX(key string, ttl time.Duration, now time.Time) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		ok, err := rc.SetNX(ctx, key, strconv.FormatInt(now.Unix(), 10), ttl).Result()
		if err != nil {
			return true
		}
		return ok
	}
	regMemMu.Lock()
	defer regMemMu.Unlock()
	if e, ok := regMem[key]; ok && now.Before(e.expiresAt) {
		return false
	}
	regMem[key] = regEntry{n: 1, expiresAt: now.Add(ttl)}
	return true
}
