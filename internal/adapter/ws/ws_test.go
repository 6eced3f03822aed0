package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/adapter/auth"
	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/adapter/memory"
	"github.com/YelzhanWeb/restaurant/internal/app/chat"
	"github.com/YelzhanWeb/restaurant/internal/app/order"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wsFixture struct {
	hub    *Hub
	server *httptest.Server
}

func newWSFixture(t *testing.T, opts Options) *wsFixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	store.AddUser(domain.User{ID: "cust-1", Role: domain.RoleCustomer})
	store.AddUser(domain.User{ID: "cust-2", Role: domain.RoleCustomer})
	store.AddUser(domain.User{ID: "drv-1", Role: domain.RoleDelivery})

	require.NoError(t, store.Orders().Create(ctx, &domain.Order{
		ID:              "order-1",
		Number:          "ORD-1700000000000-1",
		CustomerID:      "cust-1",
		Status:          domain.StatusReady,
		DeliveryAddress: "1 Main St",
		Items:           []domain.OrderItem{{ProductID: "prod-1", Quantity: 1}},
	}))
	_, err := store.Orders().Claim(ctx, "order-1", "drv-1", &domain.Chat{
		ID: "chat-1", OrderID: "order-1", ClientID: "cust-1", DelivererID: "drv-1",
	})
	require.NoError(t, err)

	log := logger.Nop()
	hub := NewHub(log)
	chats := chat.NewService(store.Chats(), store.Users(), log)
	orders := order.NewService(store.Orders(), store.Products(), store.Users(), nil, nil, log)
	handler := NewHandler(hub, chats, orders, NewBroadcaster(hub, nil, "test", log), opts, log)

	// The query string stands in for the auth middleware.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.URL.Query().Get("user"); id != "" {
			p := domain.Principal{UserID: id, Role: domain.Role(r.URL.Query().Get("role"))}
			r = r.WithContext(auth.WithPrincipal(r.Context(), p))
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})

	return &wsFixture{hub: hub, server: server}
}

func (f *wsFixture) dial(t *testing.T, userID string, role domain.Role) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?user=" + userID + "&role=" + string(role)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

// expect reads frames until one of type typ arrives.
func expect(t *testing.T, conn *websocket.Conn, typ string) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg received
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func defaultOptions() Options {
	return Options{RatePerSecond: 100, Burst: 100}
}

func TestHandler_RejectsAnonymous(t *testing.T) {
	f := newWSFixture(t, defaultOptions())

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_ChatMessageReachesBothParticipants(t *testing.T) {
	f := newWSFixture(t, defaultOptions())

	customer := f.dial(t, "cust-1", domain.RoleCustomer)
	deliverer := f.dial(t, "drv-1", domain.RoleDelivery)

	for _, conn := range []*websocket.Conn{customer, deliverer} {
		send(t, conn, map[string]string{"type": "join_room", "chatId": "chat-1"})
		joined := expect(t, conn, "joined")
		assert.JSONEq(t, `{"room":"chat:chat-1"}`, string(joined.Data))
	}
	assert.Equal(t, 2, f.hub.Members(domain.ChatRoom("chat-1")))

	send(t, customer, map[string]string{"type": "send_message", "chatId": "chat-1", "text": "  at the door  "})

	for _, conn := range []*websocket.Conn{customer, deliverer} {
		msg := expect(t, conn, domain.EventChatMessage)
		var payload struct {
			ChatID string `json:"chatId"`
			Sender string `json:"sender"`
			Text   string `json:"text"`
		}
		require.NoError(t, json.Unmarshal(msg.Data, &payload))
		assert.Equal(t, "chat-1", payload.ChatID)
		assert.Equal(t, "cust-1", payload.Sender)
		assert.Equal(t, "at the door", payload.Text)
	}
}

func TestHandler_OutsiderCannotJoinChat(t *testing.T) {
	f := newWSFixture(t, defaultOptions())
	outsider := f.dial(t, "cust-2", domain.RoleCustomer)

	send(t, outsider, map[string]string{"type": "join_room", "chatId": "chat-1"})

	msg := expect(t, outsider, "error")
	assert.Contains(t, string(msg.Data), string(domain.KindUnauthorized))
	assert.Zero(t, f.hub.Members(domain.ChatRoom("chat-1")))
}

func TestHandler_JoinOrderReceivesStatusEvents(t *testing.T) {
	f := newWSFixture(t, defaultOptions())
	customer := f.dial(t, "cust-1", domain.RoleCustomer)
	other := f.dial(t, "cust-2", domain.RoleCustomer)

	send(t, customer, map[string]string{"type": "join_order", "orderId": "order-1"})
	expect(t, customer, "joined")

	send(t, other, map[string]string{"type": "join_order", "orderId": "order-1"})
	msg := expect(t, other, "error")
	assert.Contains(t, string(msg.Data), string(domain.KindNotFound))

	f.hub.Emit(domain.NewEvent(domain.EventOrderStatus, domain.OrderRoom("order-1"), map[string]string{
		"newStatus": "delivered",
	}))
	status := expect(t, customer, domain.EventOrderStatus)
	assert.JSONEq(t, `{"newStatus":"delivered"}`, string(status.Data))
}

func TestHandler_RateLimit(t *testing.T) {
	f := newWSFixture(t, Options{RatePerSecond: 0.001, Burst: 1})
	conn := f.dial(t, "cust-1", domain.RoleCustomer)

	send(t, conn, map[string]string{"type": "leave_room", "chatId": "chat-1"})
	expect(t, conn, "left")

	send(t, conn, map[string]string{"type": "leave_room", "chatId": "chat-1"})
	msg := expect(t, conn, "error")
	assert.Contains(t, string(msg.Data), "rate limit exceeded")
}

func TestHandler_UnknownFrame(t *testing.T) {
	f := newWSFixture(t, defaultOptions())
	conn := f.dial(t, "cust-1", domain.RoleCustomer)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := expect(t, conn, "error")
	assert.Contains(t, string(msg.Data), "malformed frame")

	send(t, conn, map[string]string{"type": "dance"})
	msg = expect(t, conn, "error")
	assert.Contains(t, string(msg.Data), "unknown frame type")
}

func TestHub_EmitWithoutRoomReachesEveryone(t *testing.T) {
	f := newWSFixture(t, defaultOptions())
	first := f.dial(t, "cust-1", domain.RoleCustomer)
	second := f.dial(t, "drv-1", domain.RoleDelivery)

	require.Eventually(t, func() bool { return f.hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	f.hub.Emit(domain.NewEvent(domain.EventOrderTaken, "", map[string]string{"orderId": "order-1"}))

	for _, conn := range []*websocket.Conn{first, second} {
		msg := expect(t, conn, domain.EventOrderTaken)
		assert.JSONEq(t, `{"orderId":"order-1"}`, string(msg.Data))
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []interfaces.EventMessage
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, msg interfaces.EventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	return nil
}

func (p *recordingPublisher) PublishLowStock(ctx context.Context, msg interfaces.LowStockMessage) error {
	return nil
}

func TestBroadcaster_PublishesWithOrigin(t *testing.T) {
	publisher := &recordingPublisher{}
	b := NewBroadcaster(NewHub(logger.Nop()), publisher, "instance-a", logger.Nop())

	b.Broadcast(context.Background(),
		domain.NewEvent(domain.EventOrderReleased, "", map[string]string{"orderId": "order-1"}),
		domain.NewEvent(domain.EventOrderStatus, domain.OrderRoom("order-1"), map[string]string{"newStatus": "ready"}),
	)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, "instance-a", publisher.events[0].Origin)
	assert.Equal(t, domain.EventOrderReleased, publisher.events[0].Name)
	assert.JSONEq(t, `{"orderId":"order-1"}`, string(publisher.events[0].Payload))
	assert.Equal(t, "order:order-1", publisher.events[1].Room)
	assert.Equal(t, "instance-a", b.Origin())
}
