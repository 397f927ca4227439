package auth

import (
	"testing"
	"time"
)

func newTestThrottle(now *time.Time) *LoginThrottle {
	th := NewLoginThrottle(ThrottleConfig{MaxFailures: 3, Window: 10 * time.Minute, Lockout: 5 * time.Minute})
	th.now = func() time.Time { return *now }
	return th
}

func TestLoginThrottle_LocksAfterMaxFailures(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	th := newTestThrottle(&now)

	for i := 0; i < 2; i++ {
		th.RecordFailure("alice")
	}
	if locked, _ := th.Locked("alice"); locked {
		t.Fatal("should not be locked before reaching the threshold")
	}

	th.RecordFailure(ThrottleKey("Alice ", ""))
	locked, remaining := th.Locked("alice")
	if !locked {
		t.Fatal("expected lock after 3 failures")
	}
	if remaining != 5*time.Minute {
		t.Errorf("remaining = %v, want %v", remaining, 5*time.Minute)
	}

	now = now.Add(5*time.Minute + time.Second)
	if locked, _ := th.Locked("alice"); locked {
		t.Error("lock should expire after the lockout period")
	}
}

func TestLoginThrottle_FailuresOutsideWindowDoNotAccumulate(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	th := newTestThrottle(&now)

	th.RecordFailure("bob")
	th.RecordFailure("bob")
	now = now.Add(11 * time.Minute)
	th.RecordFailure("bob")

	if locked, _ := th.Locked("bob"); locked {
		t.Error("failures outside the window should not lock")
	}
}

func TestLoginThrottle_ResetClearsFailures(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	th := newTestThrottle(&now)

	th.RecordFailure("carol")
	th.RecordFailure("carol")
	th.Reset("carol")
	th.RecordFailure("carol")

	if locked, _ := th.Locked("carol"); locked {
		t.Error("reset should clear previous failures")
	}
}

func TestLoginThrottle_CleanupRemovesStaleEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	th := newTestThrottle(&now)

	th.RecordFailure("dave")
	now = now.Add(time.Hour)
	th.Cleanup()

	if len(th.attempts) != 0 {
		t.Errorf("attempts = %d, want 0", len(th.attempts))
	}
}

func TestLoginThrottle_DisabledWhenMaxFailuresZero(t *testing.T) {
	th := NewLoginThrottle(ThrottleConfig{})
	for i := 0; i < 10; i++ {
		th.RecordFailure("eve")
	}
	if locked, _ := th.Locked("eve"); locked {
		t.Error("throttle with MaxFailures=0 should never lock")
	}
}

// TestThrottleKey はユーザー名を正規化し、クライアントIPごとにキーを分けることを検証する。
func TestThrottleKey(t *testing.T) {
	tests := []struct {
		username string
		ip       string
		want     string
	}{
		{" NicolaGreco ", "", "nicolagreco"},
		{"nicolagreco", "203.0.113.1", "nicolagreco|203.0.113.1"},
		{"NICOLAGRECO", "203.0.113.1", "nicolagreco|203.0.113.1"},
	}
	for _, tt := range tests {
		if got := ThrottleKey(tt.username, tt.ip); got != tt.want {
			t.Errorf("ThrottleKey(%q, %q) = %q, want %q", tt.username, tt.ip, got, tt.want)
		}
	}
}
