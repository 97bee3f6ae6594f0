package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisEvaler struct {
	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
	result     int64
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

func TestRedisSendRateLimiterAllow(t *testing.T) {
	t.Run("nil receiver fail-open", func(t *testing.T) {
		var l *redisSendRateLimiter
		if !l.Allow("u1") {
			t.Fatalf("expected fail-open for nil limiter")
		}
	})

	t.Run("empty key rejected", func(t *testing.T) {
		l := &redisSendRateLimiter{client: &mockRedisEvaler{result: 1}, window: time.Minute, max: 3, prefix: "chat:send:rl:"}
		if l.Allow("   ") {
			t.Fatalf("expected empty key to be rejected")
		}
	})

	t.Run("allow when count within max", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 2}
		l := &redisSendRateLimiter{client: mock, window: 2 * time.Minute, max: 3, prefix: "chat:send:rl:"}
		if !l.Allow(" u1 ") {
			t.Fatalf("expected allow when count <= max")
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "chat:send:rl:u1" {
			t.Fatalf("unexpected key, got %+v", mock.lastKeys)
		}
		if len(mock.lastArgs) != 1 || mock.lastArgs[0] != 120 {
			t.Fatalf("expected TTL seconds=120, got %+v", mock.lastArgs)
		}
		if mock.lastScript != redisSendAllowScript {
			t.Fatalf("expected script to match")
		}
	})

	t.Run("deny when count exceeds max", func(t *testing.T) {
		l := &redisSendRateLimiter{client: &mockRedisEvaler{result: 4}, window: time.Minute, max: 3, prefix: "chat:send:rl:"}
		if l.Allow("u1") {
			t.Fatalf("expected deny when count > max")
		}
	})

	t.Run("redis error fail-open", func(t *testing.T) {
		l := &redisSendRateLimiter{client: &mockRedisEvaler{err: errors.New("redis down")}, window: time.Minute, max: 3, prefix: "chat:send:rl:"}
		if !l.Allow("u1") {
			t.Fatalf("expected fail-open on redis errors")
		}
	})
}

func TestNewRedisSendRateLimiter_NilClient(t *testing.T) {
	if l := NewRedisSendRateLimiter(nil, time.Minute, 3); l != nil {
		t.Fatalf("expected nil limiter without client")
	}
}

func TestMemorySendRateLimiter(t *testing.T) {
	l := NewMemorySendRateLimiter(50*time.Millisecond, 2)
	if !l.Allow("u1") || !l.Allow("u1") {
		t.Fatalf("expected first two sends allowed")
	}
	if l.Allow("u1") {
		t.Fatalf("expected third send denied")
	}
	if !l.Allow("u2") {
		t.Fatalf("limits must be per key")
	}
	time.Sleep(70 * time.Millisecond)
	if !l.Allow("u1") {
		t.Fatalf("expected allow after window")
	}
}

func TestMemorySendRateLimiter_DropsIdleKeys(t *testing.T) {
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := newMemorySendRateLimiter(time.Minute, 5)
	l.now = func() time.Time { return clock }

	for _, user := range []string{"u1", "u2", "u3"} {
		l.Allow(user)
	}
	if len(l.hits) != 3 {
		t.Fatalf("expected 3 tracked keys, got %d", len(l.hits))
	}

	clock = clock.Add(2 * time.Minute)
	l.Allow("u4")
	if len(l.hits) != 1 {
		t.Fatalf("expected idle keys dropped, got %d keys", len(l.hits))
	}
	if _, ok := l.hits["u4"]; !ok {
		t.Fatalf("expected active key kept")
	}
}
