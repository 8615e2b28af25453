package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterSharesLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(10, 5)

	first := rl.getLimiter("10.0.0.1")
	second := rl.getLimiter("10.0.0.1")
	if first != second {
		t.Error("cùng một IP phải dùng chung một limiter")
	}
	if other := rl.getLimiter("10.0.0.2"); other == first {
		t.Error("IP khác phải có limiter riêng")
	}
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	limiter := rl.getLimiter("10.0.0.1")

	if !limiter.Allow() || !limiter.Allow() {
		t.Fatal("hai request đầu trong burst phải được cho qua")
	}
	if limiter.Allow() {
		t.Error("request vượt burst phải bị chặn")
	}
}

func TestRateLimiterCleanupKeepsActiveVisitors(t *testing.T) {
	rl := NewRateLimiter(10, 5)

	activeLimiter := rl.getLimiter("10.0.0.1")
	rl.getLimiter("10.0.0.2")

	// Backdate IP thứ hai quá ngưỡng idle, IP đầu vẫn vừa gửi request
	rl.mu.Lock()
	rl.visitors["10.0.0.2"].lastSeen = time.Now().Add(-visitorIdleTimeout - time.Minute)
	rl.mu.Unlock()

	rl.cleanup(visitorIdleTimeout)

	rl.mu.Lock()
	_, staleKept := rl.visitors["10.0.0.2"]
	active, activeKept := rl.visitors["10.0.0.1"]
	rl.mu.Unlock()

	if staleKept {
		t.Error("IP idle quá ngưỡng phải bị dọn")
	}
	if !activeKept {
		t.Fatal("IP còn hoạt động không được bị dọn")
	}
	if active.limiter != activeLimiter {
		t.Error("IP còn hoạt động phải giữ nguyên limiter, không được cấp bucket mới")
	}
}
