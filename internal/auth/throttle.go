package auth

import (
	"strings"
	"sync"
	"time"
)

// ThrottleConfig はログイン失敗制限の設定。
type ThrottleConfig struct {
	MaxFailures int           // ロックまでの連続失敗回数
	Window      time.Duration // 失敗回数を数える期間
	Lockout     time.Duration // ロック期間
}

type attemptState struct {
	failures    int
	firstFailed time.Time
	lockedUntil time.Time
}

// LoginThrottle はキー単位でログイン失敗を数え、閾値を超えたら一定時間ロックする。
// キーはThrottleKeyで作る。
type LoginThrottle struct {
	mu       sync.Mutex
	attempts map[string]*attemptState
	config   ThrottleConfig
	now      func() time.Time
}

// NewLoginThrottle はLoginThrottleを生成する。
func NewLoginThrottle(cfg ThrottleConfig) *LoginThrottle {
	return &LoginThrottle{
		attempts: make(map[string]*attemptState),
		config:   cfg,
		now:      time.Now,
	}
}

// ThrottleKey はユーザー名とクライアントIPからロックのキーを作る。
// IP単位に分けるため、他のクライアントからの失敗で正規ユーザーはロックされない。
// IPが空の場合はユーザー名のみで判定する。
func ThrottleKey(username, clientIP string) string {
	key := strings.ToLower(strings.TrimSpace(username))
	if clientIP != "" {
		key += "|" + clientIP
	}
	return key
}

// Locked は指定キーがロック中であればtrueと残り時間を返す。
func (t *LoginThrottle) Locked(key string) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.attempts[key]
	if !ok {
		return false, 0
	}
	if remaining := st.lockedUntil.Sub(t.now()); remaining > 0 {
		return true, remaining
	}
	return false, 0
}

// RecordFailure はログイン失敗を記録する。閾値に達した場合はロックを開始する。
func (t *LoginThrottle) RecordFailure(key string) {
	if t.config.MaxFailures <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	st, ok := t.attempts[key]
	if !ok || now.Sub(st.firstFailed) > t.config.Window {
		st = &attemptState{firstFailed: now}
		t.attempts[key] = st
	}

	st.failures++
	if st.failures >= t.config.MaxFailures {
		st.lockedUntil = now.Add(t.config.Lockout)
		st.failures = 0
		st.firstFailed = now
	}
}

// Reset はログイン成功時に失敗記録を破棄する。
func (t *LoginThrottle) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, key)
}

// Cleanup はロックが解けて失敗期間も過ぎたエントリを削除する。
func (t *LoginThrottle) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for key, st := range t.attempts {
		if now.After(st.lockedUntil) && now.Sub(st.firstFailed) > t.config.Window {
			delete(t.attempts, key)
		}
	}
}
