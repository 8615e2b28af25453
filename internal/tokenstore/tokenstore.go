// Package tokenstore cung cấp kho key-value có TTL cho token WebSocket
// ngắn hạn. Storage được inject qua interface Store thay vì dùng cache
// toàn cục, để test không cần Redis thật.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

var ErrTokenNotFound = errors.New("không tìm thấy token trong kho")

type Store interface {
	// Set lưu giá trị với TTL; ghi đè giá trị cũ của cùng key.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Get trả về ErrTokenNotFound nếu key không tồn tại hoặc đã hết hạn.
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
