// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"testing"
	"time"
)

func TestLoginProtectionLockout(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})

	t.Run("locks after max failed attempts", func(t *testing.T) {
		username := "alice"

		for i := 0; i < 2; i++ {
			locked, _ := lp.RecordFailedAttempt(username)
			if locked {
				t.Fatalf("locked after %d attempts, want unlocked", i+1)
			}
		}

		locked, duration := lp.RecordFailedAttempt(username)
		if !locked {
			t.Fatal("not locked after max attempts")
		}
		if duration != time.Minute {
			t.Errorf("lock duration = %v, want %v", duration, time.Minute)
		}

		isLocked, remaining := lp.IsAccountLocked(username)
		if !isLocked {
			t.Error("IsAccountLocked() = false, want true")
		}
		if remaining <= 0 {
			t.Errorf("remaining = %v, want > 0", remaining)
		}
	})

	t.Run("unknown account is not locked", func(t *testing.T) {
		locked, _ := lp.IsAccountLocked("nobody")
		if locked {
			t.Error("IsAccountLocked() = true for unknown account")
		}
	})

	t.Run("successful login clears tracking", func(t *testing.T) {
		username := "bob"

		lp.RecordFailedAttempt(username)
		lp.RecordFailedAttempt(username)
		lp.RecordSuccessfulLogin(username)

		if got := lp.GetRemainingAttempts(username); got != 3 {
			t.Errorf("GetRemainingAttempts() = %d, want 3", got)
		}
	})

	t.Run("second lockout doubles duration", func(t *testing.T) {
		username := "carol"

		var duration time.Duration
		for i := 0; i < 3; i++ {
			_, duration = lp.RecordFailedAttempt(username)
		}
		if duration != time.Minute {
			t.Fatalf("first lock duration = %v, want %v", duration, time.Minute)
		}

		// Simulate the lock expiring, then fail again.
		lp.attemptsMu.Lock()
		lp.failedAttempts[username].lockedUntil = time.Now().Add(-time.Second)
		lp.attemptsMu.Unlock()

		for i := 0; i < 3; i++ {
			_, duration = lp.RecordFailedAttempt(username)
		}
		if duration != 2*time.Minute {
			t.Errorf("second lock duration = %v, want %v", duration, 2*time.Minute)
		}
	})
}

func TestLoginProtectionRemainingAttempts(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 5,
	})

	username := "dave"

	if got := lp.GetRemainingAttempts(username); got != 5 {
		t.Errorf("GetRemainingAttempts() = %d, want 5", got)
	}

	lp.RecordFailedAttempt(username)
	lp.RecordFailedAttempt(username)

	if got := lp.GetRemainingAttempts(username); got != 3 {
		t.Errorf("GetRemainingAttempts() = %d, want 3", got)
	}
}

func TestLoginProtectionIPRateLimit(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit: 1,
		IPBurst:     2,
	})

	ip := "192.0.2.1"

	if !lp.CheckIPRateLimit(ip) {
		t.Error("first request denied, want allowed")
	}
	if !lp.CheckIPRateLimit(ip) {
		t.Error("second request denied, want allowed within burst")
	}
	if lp.CheckIPRateLimit(ip) {
		t.Error("third request allowed, want denied past burst")
	}

	// A different IP has its own limiter.
	if !lp.CheckIPRateLimit("192.0.2.2") {
		t.Error("request from fresh IP denied, want allowed")
	}
}
