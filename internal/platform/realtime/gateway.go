// Package realtime is the websocket side of the API: presence tracking and
// point-to-point message fan-out between connected users.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dimasfh/sociagram/pkg/eventlog"
	"github.com/dimasfh/sociagram/pkg/logger"
)

const (
	EventAddUser        = "addUser"
	EventSendMessage    = "send-message"
	EventReceiveMessage = "receive-message"
	EventOnlineUsers    = "getOnlineUsers"
	EventMessageAck     = "message-ack"
)

// SendMessage is the client payload asking for a fan-out. Sender and the
// recipient objects are kept opaque and relayed as-is; routing only reads
// each recipient's _id.
type SendMessage struct {
	AckID      string            `json:"ackId,omitempty"`
	RoomID     string            `json:"roomId"`
	Recipients []json.RawMessage `json:"recipients"`
	Sender     json.RawMessage   `json:"sender"`
	Text       string            `json:"text"`
}

// ReceiveMessage is what each recipient gets. Members holds the recipient
// objects plus the sender, minus the receiving recipient itself.
type ReceiveMessage struct {
	RoomID    string            `json:"roomId"`
	Members   []json.RawMessage `json:"members"`
	Sender    json.RawMessage   `json:"sender"`
	Text      string            `json:"text"`
	CreatedAt int64             `json:"createdAt"`
}

// Ack reports the fan-out outcome back to the sender, one delivery flag per
// recipient.
type Ack struct {
	AckID     string          `json:"ackId"`
	Success   bool            `json:"success"`
	CreatedAt int64           `json:"createdAt"`
	Delivered map[string]bool `json:"delivered"`
}

// Gateway owns every live websocket connection. Each connection joins exactly
// one room named after its own user id; fan-out targets rooms, so multiple
// tabs of the same user all receive.
type Gateway struct {
	mu       sync.RWMutex
	rooms    map[string][]*Client
	presence *Presence
	events   *eventlog.Writer
	upgrader websocket.Upgrader
	log      logger.Log
}

func NewGateway(presence *Presence, events *eventlog.Writer, log logger.Log) *Gateway {
	return &Gateway{
		rooms:    make(map[string][]*Client),
		presence: presence,
		events:   events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The browser client connects from a different origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// HandleWS upgrades the connection and joins the caller to its own room. The
// user id comes from the handshake query.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("id")
	if userID == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warnf("websocket upgrade: %v", err)
		return
	}

	client := newClient(userID, conn, g, g.log)
	g.connect(client)

	go client.writePump()
	go client.readPump()
}

func (g *Gateway) connect(c *Client) {
	g.mu.Lock()
	g.rooms[c.userID] = append(g.rooms[c.userID], c)
	g.mu.Unlock()

	if g.presence.Register(c.userID) {
		g.events.Write("presence_online", map[string]string{"userId": c.userID})
	}
	g.broadcastPresence()
	g.log.Infof("user %s connected", c.userID)
}

func (g *Gateway) disconnect(c *Client) {
	g.mu.Lock()
	clients := g.rooms[c.userID]
	for i, existing := range clients {
		if existing == c {
			clients = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(clients) == 0 {
		delete(g.rooms, c.userID)
	} else {
		g.rooms[c.userID] = clients
	}
	g.mu.Unlock()

	c.close()
	if g.presence.Unregister(c.userID) {
		g.events.Write("presence_offline", map[string]string{"userId": c.userID})
	}
	g.broadcastPresence()
	g.log.Infof("user %s disconnected", c.userID)
}

func (g *Gateway) handleFrame(c *Client, frame Frame) {
	switch frame.Event {
	case EventAddUser:
		// Registration already happened on connect; re-announce the snapshot
		// for clients that ask explicitly.
		g.broadcastPresence()
	case EventSendMessage:
		var msg SendMessage
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			g.log.Warnf("malformed %s from %s: %v", frame.Event, c.userID, err)
			return
		}
		g.Relay(c, msg)
	default:
		g.log.Debugf("unknown event %q from %s", frame.Event, c.userID)
	}
}

// Relay fans msg out to every recipient's room. One timestamp is captured for
// the whole relay so every recipient sees the same createdAt. The sender's own
// room is never a target. When the sender supplied an ackId, an ack with a
// per-recipient delivery map goes back on the sending connection only.
func (g *Gateway) Relay(sender *Client, msg SendMessage) {
	createdAt := time.Now().UnixMilli()
	delivered := make(map[string]bool, len(msg.Recipients))

	for _, recipient := range msg.Recipients {
		recipientID := participantID(recipient)
		if recipientID == "" || recipientID == sender.userID {
			continue
		}
		payload := ReceiveMessage{
			RoomID:    msg.RoomID,
			Members:   membersFor(msg.Recipients, msg.Sender, sender.userID, recipientID),
			Sender:    msg.Sender,
			Text:      msg.Text,
			CreatedAt: createdAt,
		}
		delivered[recipientID] = g.emit(recipientID, EventReceiveMessage, payload)
	}

	g.events.Write("message_relay", map[string]any{
		"roomId":    msg.RoomID,
		"sender":    sender.userID,
		"delivered": delivered,
		"createdAt": createdAt,
	})

	if msg.AckID == "" {
		return
	}
	ack, err := newFrame(EventMessageAck, Ack{
		AckID:     msg.AckID,
		Success:   true,
		CreatedAt: createdAt,
		Delivered: delivered,
	})
	if err != nil {
		g.log.Errorf("encode ack: %v", err)
		return
	}
	sender.enqueue(ack)
}

// emit delivers one frame to every connection in userID's room. Returns false
// when the room is empty; delivery is best effort either way.
func (g *Gateway) emit(userID, event string, data any) bool {
	frame, err := newFrame(event, data)
	if err != nil {
		g.log.Errorf("encode %s: %v", event, err)
		return false
	}

	g.mu.RLock()
	clients := append([]*Client(nil), g.rooms[userID]...)
	g.mu.RUnlock()

	if len(clients) == 0 {
		return false
	}
	sent := false
	for _, c := range clients {
		if c.enqueue(frame) {
			sent = true
		}
	}
	return sent
}

// broadcastPresence pushes the full online snapshot to every connection.
func (g *Gateway) broadcastPresence() {
	frame, err := newFrame(EventOnlineUsers, g.presence.Snapshot())
	if err != nil {
		g.log.Errorf("encode presence snapshot: %v", err)
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, clients := range g.rooms {
		for _, c := range clients {
			c.enqueue(frame)
		}
	}
}

// membersFor computes the recipient's view of the conversation: every
// participant object in the fan-out plus the sender, minus the recipient
// itself. Dedup and filtering go by each object's _id.
func membersFor(recipients []json.RawMessage, sender json.RawMessage, senderID, recipientID string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(recipients))
	seen := make(map[string]struct{}, len(recipients)+1)
	for _, raw := range recipients {
		id := participantID(raw)
		if id == "" || id == recipientID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, raw)
	}
	if _, ok := seen[senderID]; !ok && senderID != recipientID && len(sender) > 0 {
		out = append(out, sender)
	}
	return out
}

// participantID extracts the _id of an opaque participant object.
func participantID(raw json.RawMessage) string {
	var p struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}
	return p.ID
}
