// Package realtime implements the websocket relay: a best-effort fan-out
// of task updates, assignment notifications and task-room chat to the
// currently connected clients. Nothing is queued or redelivered; a
// disconnected recipient catches up over the REST API.
package realtime

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Event names, symmetric with the web client.
const (
	// client -> server
	EventJoin          = "join"
	EventJoinTaskRoom  = "joinTaskRoom"
	EventLeaveTaskRoom = "leaveTaskRoom"
	EventSendMessage   = "sendMessage"
	EventTaskUpdated   = "taskUpdated"

	// server -> client
	EventReceiveMessage = "receiveMessage"
	EventMessageSent    = "messageSent"
	EventNotification   = "notification"
)

// Conn is the subset of *websocket.Conn the relay needs; tests use fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Event is a single JSON frame exchanged with a client.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeEvent(name string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling event data")
	}
	frame, err := json.Marshal(Event{Event: name, Data: raw})
	return frame, errors.Wrap(err, "marshalling event")
}
