package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"rancho-chat/internal/events"
)

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opSubscribe
	opUnsubscribe
	opRevoke
)

type hubOp struct {
	kind    opKind
	client  *Client
	channel string
	// account limits opRevoke to one account's clients; empty means all.
	account string
}

// Hub tracks connected clients and the pub/sub channels each one listens on.
// Membership changes are applied by Run in the order they were requested;
// delivery only takes the read lock.
type Hub struct {
	mu sync.RWMutex

	clients  map[string]*Client
	channels map[string]map[*Client]struct{}

	ops  chan hubOp
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[*Client]struct{}),
		ops:      make(chan hubOp, 1024),
		done:     make(chan struct{}),
	}
}

// Run applies queued operations until ctx is done. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-h.ops:
			switch op.kind {
			case opRegister:
				h.addClient(op.client)
			case opUnregister:
				h.removeClient(op.client)
			case opSubscribe:
				h.subscribeToChannel(op.client, op.channel)
			case opUnsubscribe:
				h.unsubscribeFromChannel(op.client, op.channel)
			case opRevoke:
				h.dropSubscribers(op.channel, op.account)
			}
		}
	}
}

// enqueue drops op once Run has returned.
func (h *Hub) enqueue(op hubOp) {
	select {
	case h.ops <- op:
	case <-h.done:
	}
}

func (h *Hub) Register(client *Client) {
	h.enqueue(hubOp{kind: opRegister, client: client})
}

func (h *Hub) Unregister(client *Client) {
	h.enqueue(hubOp{kind: opUnregister, client: client})
}

func (h *Hub) Subscribe(client *Client, channel string) {
	h.enqueue(hubOp{kind: opSubscribe, client: client, channel: channel})
}

func (h *Hub) Unsubscribe(client *Client, channel string) {
	h.enqueue(hubOp{kind: opUnsubscribe, client: client, channel: channel})
}

// Broadcast delivers payload to every client subscribed to channel. When the
// payload ends someone's membership their access to the channel is dropped
// before Broadcast returns, after they have been told.
func (h *Hub) Broadcast(channel string, payload []byte) {
	h.mu.RLock()
	for c := range h.channels[channel] {
		c.SendMessage(payload)
	}
	h.mu.RUnlock()

	h.revokeAccess(channel, payload)
}

// accessChange is the part of an events.Envelope the hub needs.
type accessChange struct {
	EventType      string `json:"event_type"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

func (h *Hub) revokeAccess(channel string, payload []byte) {
	if !strings.HasPrefix(channel, events.ChannelPrefixConversation) {
		return
	}
	var change accessChange
	if err := json.Unmarshal(payload, &change); err != nil {
		return
	}
	if events.ConversationChannel(change.ConversationID) != channel {
		return
	}

	var account string
	switch change.EventType {
	case events.EventTypeParticipantRemoved:
		if change.UserID == "" {
			return
		}
		account = change.UserID
	case events.EventTypeConversationRemoved:
	default:
		return
	}

	h.dropSubscribers(channel, account)
	// A subscribe authorized before the removal may still be queued; the
	// ordered op undoes it once applied.
	h.enqueue(hubOp{kind: opRevoke, channel: channel, account: account})
}

// dropSubscribers unsubscribes account's clients from channel, or every
// client when account is empty.
func (h *Hub) dropSubscribers(channel, account string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.channels[channel]
	if !ok {
		return
	}
	for c := range subscribers {
		if account == "" || c.AccountID == account {
			delete(subscribers, c)
			c.unsubscribe(channel)
		}
	}
	if len(subscribers) == 0 {
		delete(h.channels, channel)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ChannelSubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	for _, channel := range client.Channels() {
		if subscribers, ok := h.channels[channel]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.channels, channel)
			}
		}
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) subscribeToChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// the client may have disconnected before the request was applied
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*Client]struct{})
	}
	h.channels[channel][client] = struct{}{}
	client.subscribe(channel)
}

func (h *Hub) unsubscribeFromChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.channels[channel]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.channels, channel)
		}
	}
	client.unsubscribe(channel)
}
