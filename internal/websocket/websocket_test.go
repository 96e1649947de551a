package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"rancho-chat/internal/domain/conversation"
	"rancho-chat/internal/events"
	"rancho-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type staticConversations map[string]*conversation.Conversation

func (s staticConversations) CheckByID(_ context.Context, id string) (bool, error) {
	_, ok := s[id]
	return ok, nil
}

func (s staticConversations) GetByID(_ context.Context, id string) (*conversation.Conversation, error) {
	return s[id], nil
}

type tokenAuth map[string]string

func (t tokenAuth) Authenticate(_ context.Context, token, _ string) (string, error) {
	return t[token], nil
}

func testConversations() staticConversations {
	return staticConversations{
		"C1": {Preview: conversation.Preview{ID: "C1", OwnerID: "owner1", MemberUserIDs: []string{"u2"}}},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHubBroadcastReachesSubscribersOnly(t *testing.T) {
	hub := startHub(t)
	a := NewClient(nil, "u1")
	b := NewClient(nil, "u2")
	hub.Register(a)
	hub.Register(b)
	hub.Subscribe(a, "channel:conversation:C1")
	waitFor(t, func() bool { return hub.ChannelSubscriberCount("channel:conversation:C1") == 1 })

	hub.Broadcast("channel:conversation:C1", []byte("hello"))
	select {
	case msg := <-a.Send:
		if string(msg) != "hello" {
			t.Fatalf("unexpected payload %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive broadcast")
	}
	select {
	case msg := <-b.Send:
		t.Fatalf("non subscriber received %q", msg)
	default:
	}
}

func TestHubUnregisterDropsSubscriptions(t *testing.T) {
	hub := startHub(t)
	c := NewClient(nil, "u1")
	hub.Register(c)
	hub.Subscribe(c, "channel:conversation:C1")
	hub.Unregister(c)
	// subscribing after disconnect must not resurrect the client
	hub.Subscribe(c, "channel:conversation:C2")

	// ops apply in order, so once the marker is registered everything before it has been applied
	hub.Register(NewClient(nil, "marker"))
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	if hub.ChannelSubscriberCount("channel:conversation:C2") != 0 {
		t.Fatal("late subscription must be ignored")
	}
	if hub.ChannelSubscriberCount("channel:conversation:C1") != 0 {
		t.Fatal("subscriptions must be removed with the client")
	}
	if _, open := <-c.Send; open {
		t.Fatal("send channel must be closed")
	}
}

func TestChannelAuthorizer(t *testing.T) {
	a := NewChannelAuthorizer(testConversations())
	tests := []struct {
		name    string
		account string
		channel string
		want    bool
	}{
		{"own user channel", "u2", events.UserChannel("u2"), true},
		{"someone else's user channel", "u2", events.UserChannel("u3"), false},
		{"member", "u2", events.ConversationChannel("C1"), true},
		{"owner", "owner1", events.ConversationChannel("C1"), true},
		{"outsider", "u9", events.ConversationChannel("C1"), false},
		{"unknown conversation", "u2", events.ConversationChannel("C404"), false},
		{"unknown prefix", "u2", "channel:system:all", false},
		{"anonymous", "", events.ConversationChannel("C1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.CanSubscribe(context.Background(), tt.account, tt.channel)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleCommand(t *testing.T) {
	hub := startHub(t)
	h := NewHandler(tokenAuth{}, NewChannelAuthorizer(testConversations()), hub, logger.NewNop())
	member := NewClient(nil, "u2")
	outsider := NewClient(nil, "u9")
	hub.Register(member)
	hub.Register(outsider)

	tests := []struct {
		name   string
		client *Client
		raw    string
		want   string
	}{
		{"member subscribes", member, `{"action":"subscribe","conversation_id":"C1"}`, "ack"},
		{"outsider is refused", outsider, `{"action":"subscribe","conversation_id":"C1"}`, "error"},
		{"unknown action", member, `{"action":"shout","conversation_id":"C1"}`, "error"},
		{"garbage", member, `not json`, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.HandleCommand(context.Background(), tt.client, []byte(tt.raw)); got.Type != tt.want {
				t.Fatalf("got %+v, want type %s", got, tt.want)
			}
		})
	}
	waitFor(t, func() bool { return member.IsSubscribed(events.ConversationChannel("C1")) })
	if outsider.IsSubscribed(events.ConversationChannel("C1")) {
		t.Fatal("outsider must not be subscribed")
	}
}

func TestConnectDeliversConversationEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := startHub(t)
	h := NewHandler(tokenAuth{"good": "u2"}, NewChannelAuthorizer(testConversations()), hub, logger.NewNop())
	router := gin.New()
	router.GET("/ws", h.Connect)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=good"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	if err := conn.WriteJSON(Command{Action: ActionSubscribe, ConversationID: "C1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var ack Reply
	if err := conn.ReadJSON(&ack); err != nil || ack.Type != "ack" {
		t.Fatalf("expected ack, got %+v, %v", ack, err)
	}
	waitFor(t, func() bool { return hub.ChannelSubscriberCount(events.ConversationChannel("C1")) == 1 })

	env, _ := events.NewEnvelope(events.EventTypeMessageSent, events.AggregateTypeMessage, "m1", nil)
	env.ConversationID = "C1"
	if err := NewLocalPublisher(hub, nil).Publish(context.Background(), env); err != nil {
		t.Fatalf("publish: %v", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var got events.Envelope
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.EventType != events.EventTypeMessageSent || got.AggregateID != "m1" {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestConnectRejectsUnknownToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(tokenAuth{}, NewChannelAuthorizer(testConversations()), NewHub(), logger.NewNop())
	router := gin.New()
	router.GET("/ws", h.Connect)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ws?token=bad", nil))
	if w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

// flakySubscriber fails its first attempt, then delivers one payload and
// blocks until cancelled.
type flakySubscriber struct {
	attempts atomic.Int32
}

func (f *flakySubscriber) Subscribe(ctx context.Context, patterns []string, handler func(string, []byte)) error {
	if f.attempts.Add(1) == 1 {
		return errors.New("connection refused")
	}
	if len(patterns) != 1 || patterns[0] != events.ChannelPattern {
		return errors.New("unexpected patterns")
	}
	handler(events.ConversationChannel("C1"), []byte("relayed"))
	<-ctx.Done()
	return nil
}

func TestRedisBridgeRetriesSubscription(t *testing.T) {
	hub := startHub(t)
	c := NewClient(nil, "u1")
	hub.Register(c)
	hub.Subscribe(c, events.ConversationChannel("C1"))
	waitFor(t, func() bool { return hub.ChannelSubscriberCount(events.ConversationChannel("C1")) == 1 })

	sub := &flakySubscriber{}
	bridge := NewRedisBridge(sub, hub, logger.NewNop())
	bridge.minBackoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	select {
	case msg := <-c.Send:
		if string(msg) != "relayed" {
			t.Fatalf("unexpected payload %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not relay after retry")
	}
	if sub.attempts.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", sub.attempts.Load())
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run after cancel: %v", err)
	}
}

func drain(c *Client) []events.Envelope {
	var out []events.Envelope
	for {
		select {
		case data := <-c.Send:
			var env events.Envelope
			if err := json.Unmarshal(data, &env); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func eventTypes(envs []events.Envelope) []string {
	types := make([]string, 0, len(envs))
	for _, env := range envs {
		types = append(types, env.EventType)
	}
	return types
}

func conversationEvent(t *testing.T, eventType, conversationID, userID string, payload any) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelope(eventType, events.AggregateTypeConversation, conversationID, payload)
	if err != nil {
		t.Fatal(err)
	}
	env.ConversationID = conversationID
	env.UserID = userID
	return env
}

func subscribedPair(t *testing.T) (*Hub, *Client, *Client) {
	t.Helper()
	hub := startHub(t)
	h := NewHandler(tokenAuth{}, NewChannelAuthorizer(testConversations()), hub, logger.NewNop())
	owner := NewClient(nil, "owner1")
	member := NewClient(nil, "u2")
	for _, c := range []*Client{owner, member} {
		hub.Register(c)
		if r := h.HandleCommand(context.Background(), c, []byte(`{"action":"subscribe","conversation_id":"C1"}`)); r.Type != "ack" {
			t.Fatalf("subscribe %s: %+v", c.AccountID, r)
		}
	}
	waitFor(t, func() bool { return hub.ChannelSubscriberCount(events.ConversationChannel("C1")) == 2 })
	return hub, owner, member
}

func TestRemovedParticipantStopsReceiving(t *testing.T) {
	hub, owner, member := subscribedPair(t)
	pub := NewLocalPublisher(hub, nil)
	ctx := context.Background()
	channel := events.ConversationChannel("C1")

	if err := pub.Publish(ctx, conversationEvent(t, events.EventTypeParticipantRemoved, "C1", "u2", map[string]string{"user_id": "u2"})); err != nil {
		t.Fatal(err)
	}
	if member.IsSubscribed(channel) || !owner.IsSubscribed(channel) {
		t.Fatal("only the removed participant must lose the channel")
	}

	sent := conversationEvent(t, events.EventTypeMessageSent, "C1", "", map[string]string{"content": "after removal"})
	if err := pub.Publish(ctx, sent); err != nil {
		t.Fatal(err)
	}

	if got := eventTypes(drain(member)); len(got) != 1 || got[0] != events.EventTypeParticipantRemoved {
		t.Fatalf("removed participant must only see its removal, got %v", got)
	}
	if got := eventTypes(drain(owner)); len(got) != 2 || got[1] != events.EventTypeMessageSent {
		t.Fatalf("owner must keep receiving, got %v", got)
	}
}

func TestConversationRemovalDropsEverySubscriber(t *testing.T) {
	hub, owner, member := subscribedPair(t)
	pub := NewLocalPublisher(hub, nil)

	if err := pub.Publish(context.Background(), conversationEvent(t, events.EventTypeConversationRemoved, "C1", "", nil)); err != nil {
		t.Fatal(err)
	}
	if n := hub.ChannelSubscriberCount(events.ConversationChannel("C1")); n != 0 {
		t.Fatalf("expected no subscribers left, got %d", n)
	}
	for _, c := range []*Client{owner, member} {
		if got := eventTypes(drain(c)); len(got) != 1 || got[0] != events.EventTypeConversationRemoved {
			t.Fatalf("%s: expected the removal event, got %v", c.AccountID, got)
		}
	}
}

func TestUnrelatedEventsKeepAccess(t *testing.T) {
	hub, _, member := subscribedPair(t)
	pub := NewLocalPublisher(hub, nil)

	// a removal naming another conversation or a removed message must not revoke
	other := conversationEvent(t, events.EventTypeParticipantRemoved, "C2", "u2", nil)
	if err := pub.Publish(context.Background(), other); err != nil {
		t.Fatal(err)
	}
	removed := conversationEvent(t, events.EventTypeMessageRemoved, "C1", "u2", nil)
	if err := pub.Publish(context.Background(), removed); err != nil {
		t.Fatal(err)
	}
	if !member.IsSubscribed(events.ConversationChannel("C1")) {
		t.Fatal("member must keep the channel")
	}
}

func TestQueuedSubscribeIsUndoneByRemoval(t *testing.T) {
	hub := NewHub()
	c := NewClient(nil, "u2")
	channel := events.ConversationChannel("C1")
	hub.Register(c)
	hub.Subscribe(c, channel)

	payload, err := json.Marshal(conversationEvent(t, events.EventTypeParticipantRemoved, "C1", "u2", nil))
	if err != nil {
		t.Fatal(err)
	}
	hub.Broadcast(channel, payload)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	hub.Register(NewClient(nil, "marker"))
	waitFor(t, func() bool { return hub.ClientCount() == 2 })
	if c.IsSubscribed(channel) || hub.ChannelSubscriberCount(channel) != 0 {
		t.Fatal("subscription queued before the removal must be revoked")
	}
}

func TestHubOpsDoNotBlockAfterShutdown(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	finished := make(chan struct{})
	go func() {
		c := NewClient(nil, "late")
		for range 4096 {
			hub.Register(c)
			hub.Subscribe(c, events.UserChannel("late"))
			hub.Unregister(c)
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("hub operations blocked after Run returned")
	}
}
