package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ablespace/ablespace/core"
	"github.com/ablespace/ablespace/core/notification"
)

// sendBufSize bounds each session's outbound queue; events past it are
// dropped rather than applying backpressure to the hub.
const sendBufSize = 16

type (
	// Session is one live websocket connection.
	Session struct {
		userID string
		conn   Conn

		mu     sync.Mutex
		closed bool
		send   chan []byte
	}

	// Hub relays events between sessions. It owns the room membership
	// table; user targeting goes through the injected Registry.
	Hub struct {
		registry *Registry
		log      core.Logger

		mu    sync.RWMutex
		rooms map[string]map[*Session]struct{} // taskID -> members
	}
)

func NewHub(registry *Registry, log core.Logger) *Hub {
	return &Hub{
		registry: registry,
		log:      log,
		rooms:    make(map[string]map[*Session]struct{}),
	}
}

// HandleConn serves a single connection until it drops. The caller is
// expected to have authenticated userID already.
func (h *Hub) HandleConn(conn Conn, userID string) {
	s := &Session{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.registry.Put(userID, s)

	go s.writeLoop()
	h.readLoop(s)

	h.leaveAllRooms(s)
	h.registry.Remove(s)
	s.close()
}

// PushNotification delivers a notification to the recipient's current
// session, if any. Implements notification.Pusher.
func (h *Hub) PushNotification(userID string, n notification.Notification) {
	s, ok := h.registry.Get(userID)
	if !ok {
		return
	}
	h.sendTo(s, EventNotification, n)
}

// BroadcastTaskUpdated fans a task payload out to every connected client.
func (h *Hub) BroadcastTaskUpdated(payload interface{}) {
	frame, err := encodeEvent(EventTaskUpdated, payload)
	if err != nil {
		h.log.Error("realtime: encoding taskUpdated", err)
		return
	}
	for _, s := range h.registry.All() {
		s.enqueue(frame, h.log)
	}
}

func (h *Hub) readLoop(s *Session) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		h.dispatch(s, data)
	}
}

func (h *Hub) dispatch(s *Session, data []byte) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		h.log.Warn("realtime: dropping malformed frame", err)
		return
	}

	switch evt.Event {
	case EventJoin:
		var userID string
		if err := json.Unmarshal(evt.Data, &userID); err != nil || userID == "" {
			return
		}
		h.registry.Put(userID, s)

	case EventJoinTaskRoom:
		if taskID := decodeTaskID(evt.Data); taskID != "" {
			h.joinRoom(s, taskID)
		}

	case EventLeaveTaskRoom:
		if taskID := decodeTaskID(evt.Data); taskID != "" {
			h.leaveRoom(s, taskID)
		}

	case EventSendMessage:
		var payload struct {
			TaskID string `json:"task_id"`
		}
		if err := json.Unmarshal(evt.Data, &payload); err != nil || payload.TaskID == "" {
			return
		}
		// broadcast to the rest of the room, echo a confirmation to the sender
		h.roomBroadcast(payload.TaskID, EventReceiveMessage, evt.Data, s)
		h.sendTo(s, EventMessageSent, evt.Data)

	case EventTaskUpdated:
		h.BroadcastTaskUpdated(evt.Data)

	default:
		h.log.Warn("realtime: unknown event " + evt.Event)
	}
}

func decodeTaskID(data json.RawMessage) string {
	var taskID string
	if err := json.Unmarshal(data, &taskID); err != nil {
		return ""
	}
	return taskID
}

func (h *Hub) joinRoom(s *Session, taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[taskID]
	if !ok {
		room = make(map[*Session]struct{})
		h.rooms[taskID] = room
	}
	room[s] = struct{}{}
}

func (h *Hub) leaveRoom(s *Session, taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[taskID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, taskID)
		}
	}
}

func (h *Hub) leaveAllRooms(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for taskID, room := range h.rooms {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, taskID)
		}
	}
}

func (h *Hub) roomBroadcast(taskID, event string, payload interface{}, except *Session) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		h.log.Error("realtime: encoding "+event, err)
		return
	}

	h.mu.RLock()
	members := make([]*Session, 0, len(h.rooms[taskID]))
	for s := range h.rooms[taskID] {
		if s != except {
			members = append(members, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range members {
		s.enqueue(frame, h.log)
	}
}

func (h *Hub) sendTo(s *Session, event string, payload interface{}) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		h.log.Error("realtime: encoding "+event, err)
		return
	}
	s.enqueue(frame, h.log)
}

func (s *Session) enqueue(frame []byte, log core.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- frame:
	default:
		log.Warn("realtime: send buffer full, dropping event")
	}
}

func (s *Session) writeLoop() {
	for frame := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}

func (s *Session) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
	s.mu.Unlock()
	_ = s.conn.Close()
}
