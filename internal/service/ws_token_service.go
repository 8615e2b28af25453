package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking_reservation/internal/tokenstore"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTypeWS = "ws_token"

// WSTokenService cấp token ngắn hạn riêng cho kết nối WebSocket, tránh
// để access token dài hạn xuất hiện trong query string. Token được lưu
// vào kho key-value với TTL; verify yêu cầu cả chữ ký hợp lệ lẫn giá trị
// còn nằm trong kho.
type WSTokenService struct {
	store     tokenstore.Store
	jwtSecret string
	lifetime  time.Duration
}

func NewWSTokenService(store tokenstore.Store, jwtSecret string, lifetime time.Duration) *WSTokenService {
	return &WSTokenService{store: store, jwtSecret: jwtSecret, lifetime: lifetime}
}

func wsTokenKey(userID int) string {
	return fmt.Sprintf("ws_token_%d", userID)
}

// Issue tạo token mới cho user và ghi đè token cũ trong kho (mỗi user
// chỉ có một ws token sống tại một thời điểm).
func (s *WSTokenService) Issue(ctx context.Context, userID int) (string, time.Duration, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", userID),
		"exp":  now.Add(s.lifetime).Unix(),
		"iat":  now.Unix(),
		"type": tokenTypeWS,
		"jti":  uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", 0, fmt.Errorf("lỗi tạo ws token: %w", err)
	}
	if err := s.store.Set(ctx, wsTokenKey(userID), token, s.lifetime); err != nil {
		return "", 0, fmt.Errorf("lỗi lưu ws token: %w", err)
	}
	return token, s.lifetime, nil
}

// Verify giải mã token và so với giá trị trong kho; token đã bị thay
// thế bởi lần Issue sau sẽ không còn hợp lệ.
func (s *WSTokenService) Verify(ctx context.Context, tokenString string) (int, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("phương thức ký không mong muốn: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, ErrTokenInvalid
	}
	if typ, _ := claims["type"].(string); typ != tokenTypeWS {
		return 0, fmt.Errorf("%w: không phải ws token", ErrTokenInvalid)
	}
	userID, err := subjectToUserID(claims)
	if err != nil {
		return 0, err
	}
	stored, err := s.store.Get(ctx, wsTokenKey(userID))
	if err != nil {
		if errors.Is(err, tokenstore.ErrTokenNotFound) {
			return 0, ErrTokenInvalid
		}
		return 0, fmt.Errorf("lỗi đọc ws token: %w", err)
	}
	if stored != tokenString {
		return 0, ErrTokenInvalid
	}
	return userID, nil
}

// Revoke xóa ws token hiện tại của user khỏi kho.
func (s *WSTokenService) Revoke(ctx context.Context, userID int) error {
	return s.store.Delete(ctx, wsTokenKey(userID))
}
