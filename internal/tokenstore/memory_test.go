package tokenstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "ws_token_1", "abc", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, err := store.Get(ctx, "ws_token_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if value != "abc" {
		t.Errorf("Get = %q, muốn abc", value)
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "k", "old", time.Minute)
	store.Set(ctx, "k", "new", time.Minute)

	value, _ := store.Get(ctx, "k")
	if value != "new" {
		t.Errorf("Get sau khi ghi đè = %q, muốn new", value)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "k", "v", -time.Second) // Đã hết hạn ngay khi ghi
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Get key hết hạn = %v, muốn ErrTokenNotFound", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "k", "v", time.Minute)
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Get sau Delete = %v, muốn ErrTokenNotFound", err)
	}

	// Xóa key không tồn tại không được lỗi
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete key không tồn tại: %v", err)
	}
}
