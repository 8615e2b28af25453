package handler

import (
	"encoding/json"
	"testing"
	"time"

	"parking_reservation/internal/domain"
)

func registerTestClient(t *testing.T, hub *NotificationHub, userID int) *wsClient {
	t.Helper()
	client := &wsClient{userID: userID, send: make(chan []byte, 4)}
	hub.register <- client
	waitForRegistered(t, hub, client)
	return client
}

func waitForRegistered(t *testing.T, hub *NotificationHub, client *wsClient) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		hub.mutex.RLock()
		_, ok := hub.clients[client.userID][client]
		hub.mutex.RUnlock()
		if ok {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("client không được đăng ký vào hub trong 1 giây")
}

func waitForEvent(t *testing.T, client *wsClient) domain.NotificationEvent {
	t.Helper()
	select {
	case message := <-client.send:
		var event domain.NotificationEvent
		if err := json.Unmarshal(message, &event); err != nil {
			t.Fatalf("payload không phải JSON hợp lệ: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("không nhận được event trong 1 giây")
		return domain.NotificationEvent{}
	}
}

func TestHubPublishesToAllConnectionsOfUser(t *testing.T) {
	hub := NewNotificationHub(nil, nil)
	go hub.Start()

	first := registerTestClient(t, hub, 7)
	second := registerTestClient(t, hub, 7)
	other := registerTestClient(t, hub, 8)

	event := domain.NotificationEvent{
		Type:    domain.NotifNewReservation,
		Message: "New reservation created",
		Data:    map[string]interface{}{"reservation_id": float64(3)},
	}
	if err := hub.PublishToUser(7, event); err != nil {
		t.Fatalf("PublishToUser: %v", err)
	}

	for _, client := range []*wsClient{first, second} {
		got := waitForEvent(t, client)
		if got.Type != domain.NotifNewReservation || got.Message != "New reservation created" {
			t.Errorf("event sai: %+v", got)
		}
	}

	select {
	case <-other.send:
		t.Error("user khác không được nhận event")
	default:
	}
}

func TestHubPublishToOfflineUserIsNoop(t *testing.T) {
	hub := NewNotificationHub(nil, nil)
	go hub.Start()

	err := hub.PublishToUser(99, domain.NotificationEvent{Type: domain.NotifReservationExpired})
	if err != nil {
		t.Errorf("publish cho user không online phải là no-op, được lỗi %v", err)
	}
}

func TestHubFullBufferDoesNotBlock(t *testing.T) {
	hub := NewNotificationHub(nil, nil)
	go hub.Start()

	client := &wsClient{userID: 7, send: make(chan []byte)} // Không buffer, không ai đọc
	hub.register <- client
	waitForRegistered(t, hub, client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.PublishToUser(7, domain.NotificationEvent{Type: domain.NotifUpcomingReservation})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PublishToUser bị block khi buffer của client đầy")
	}
}
