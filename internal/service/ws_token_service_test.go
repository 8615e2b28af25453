package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"parking_reservation/internal/tokenstore"
)

func TestWSTokenIssueAndVerify(t *testing.T) {
	svc := NewWSTokenService(tokenstore.NewMemoryStore(), "test-secret", 30*time.Minute)
	ctx := context.Background()

	token, lifetime, err := svc.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if lifetime != 30*time.Minute {
		t.Errorf("lifetime = %v, muốn 30 phút", lifetime)
	}

	userID, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != 7 {
		t.Errorf("Verify trả user %d, muốn 7", userID)
	}
}

func TestWSTokenRotationInvalidatesOld(t *testing.T) {
	svc := NewWSTokenService(tokenstore.NewMemoryStore(), "test-secret", 30*time.Minute)
	ctx := context.Background()

	oldToken, _, err := svc.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("Issue 1: %v", err)
	}
	// jti là uuid nên token mới luôn khác token cũ
	newToken, _, err := svc.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("Issue 2: %v", err)
	}
	if oldToken == newToken {
		t.Fatal("hai lần Issue phải cho token khác nhau")
	}

	if _, err := svc.Verify(ctx, oldToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("token cũ phải bị thu hồi sau khi cấp token mới, được %v", err)
	}
	if _, err := svc.Verify(ctx, newToken); err != nil {
		t.Errorf("token mới phải hợp lệ: %v", err)
	}
}

func TestWSTokenVerifyRejectsForeignToken(t *testing.T) {
	svc := NewWSTokenService(tokenstore.NewMemoryStore(), "test-secret", 30*time.Minute)
	other := NewWSTokenService(tokenstore.NewMemoryStore(), "other-secret", 30*time.Minute)
	ctx := context.Background()

	foreign, _, err := other.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Verify(ctx, foreign); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("token ký bằng secret khác phải bị từ chối, được %v", err)
	}
	if _, err := svc.Verify(ctx, "not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("chuỗi rác phải bị từ chối, được %v", err)
	}
}

func TestWSTokenRevoke(t *testing.T) {
	wsSvc := NewWSTokenService(tokenstore.NewMemoryStore(), "test-secret", 30*time.Minute)
	ctx := context.Background()

	token, _, err := wsSvc.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	// Token đúng chữ ký nhưng không còn trong kho thì không được chấp nhận
	if err := wsSvc.Revoke(ctx, 7); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := wsSvc.Verify(ctx, token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("token đã revoke phải bị từ chối, được %v", err)
	}
}
