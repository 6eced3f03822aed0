package domain

import "time"

const (
	EventOrderTaken     = "order:taken"
	EventOrderReleased  = "order:released"
	EventOrderDelivered = "order:delivered"
	EventOrderStatus    = "order:status"
	EventChatMessage    = "receive_message"
)

// Event is a real-time notification produced by a lifecycle operation.
// An empty Room means every connected listener.
type Event struct {
	Name    string    `json:"event"`
	Room    string    `json:"room,omitempty"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

func NewEvent(name, room string, payload any) Event {
	return Event{Name: name, Room: room, Payload: payload, At: time.Now().UTC()}
}

// OrderRoom names the room that follows a single order.
func OrderRoom(orderID string) string {
	return "order:" + orderID
}

// ChatRoom names the room of a chat channel.
func ChatRoom(chatID string) string {
	return "chat:" + chatID
}
