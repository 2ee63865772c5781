package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
	"github.com/angelmondragon/shopnearby-backend/pkg/logger"
	"github.com/angelmondragon/shopnearby-backend/pkg/metrics"
	"github.com/angelmondragon/shopnearby-backend/pkg/pagination"
)

const (
	defaultHistoryLimit = 200
	defaultBuffer       = 16

	// ids are remembered for this many times the history limit
	seenFactor = 2
)

// Relay fans messages out to other instances.
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
}

// Envelope is a message on the relay, tagged with the instance that produced it.
type Envelope struct {
	Origin  string  `json:"origin"`
	Message Message `json:"message"`
}

type HubParams struct {
	AutoReply    string
	HistoryLimit int
	Relay        Relay
	Logger       *logger.Logger
	Metrics      *metrics.Storefront
	Clock        func() time.Time
}

// Hub is the explicit live-chat channel. Every message is appended to its
// conversation and delivered to that conversation's subscribers in order.
type Hub struct {
	mu            sync.Mutex
	conversations map[string]*conversation

	origin       string
	autoReply    string
	historyLimit int
	relay        Relay
	logg         *logger.Logger
	metrics      *metrics.Storefront
	now          func() time.Time
}

type conversation struct {
	id          string
	seq         int64
	count       int
	history     []Message
	seen        map[uuid.UUID]struct{}
	seenOrder   []uuid.UUID
	subscribers map[*Subscription]struct{}
	updatedAt   time.Time
}

// Subscription receives a conversation's messages until closed. A subscriber
// that falls a full buffer behind is dropped and its channel closed.
type Subscription struct {
	C <-chan Message

	ch     chan Message
	hub    *Hub
	convID string
	once   sync.Once
}

func NewHub(params HubParams) (*Hub, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	limit := params.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &Hub{
		conversations: make(map[string]*conversation),
		origin:        uuid.NewString(),
		autoReply:     strings.TrimSpace(params.AutoReply),
		historyLimit:  limit,
		relay:         params.Relay,
		logg:          params.Logger,
		metrics:       params.Metrics,
		now:           now,
	}, nil
}

// Origin identifies this hub on the relay.
func (h *Hub) Origin() string { return h.origin }

// Send appends a message from sender. Customer messages are answered with the
// support auto-reply when one is configured.
func (h *Hub) Send(ctx context.Context, conversationID string, sender enums.ChatSender, body string) (Message, error) {
	conversationID = strings.TrimSpace(conversationID)
	body = strings.TrimSpace(body)
	switch {
	case conversationID == "":
		return Message{}, pkgerrors.New(pkgerrors.CodeValidation, "conversation id is required")
	case !sender.IsValid():
		return Message{}, pkgerrors.New(pkgerrors.CodeValidation, "sender is invalid")
	case body == "":
		return Message{}, pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	case utf8.RuneCountInString(body) > maxBodyLength:
		return Message{}, pkgerrors.New(pkgerrors.CodeValidation, "message body is too long").
			WithDetails(map[string]any{"max_length": maxBodyLength})
	}

	h.mu.Lock()
	msg := h.appendLocked(Message{ID: uuid.New(), ConversationID: conversationID, Sender: sender, Body: body})
	h.mu.Unlock()
	h.publish(ctx, msg)

	if sender == enums.ChatSenderUser && h.autoReply != "" {
		h.mu.Lock()
		reply := h.appendLocked(Message{ID: uuid.New(), ConversationID: conversationID, Sender: enums.ChatSenderSupport, Body: h.autoReply})
		h.mu.Unlock()
		h.publish(ctx, reply)
	}
	return msg, nil
}

// Deliver applies a message received from another instance. Duplicates are
// ignored. The message is numbered by this hub, whatever its SentAt.
func (h *Hub) Deliver(env Envelope) bool {
	if env.Origin == h.origin || env.Message.ConversationID == "" || env.Message.ID == uuid.Nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	conv := h.conversationLocked(env.Message.ConversationID)
	if _, dup := conv.seen[env.Message.ID]; dup {
		return false
	}
	h.appendLocked(env.Message)
	return true
}

// History returns messages after the cursor in the order this hub stored them.
func (h *Hub) History(conversationID string, params pagination.Params) (Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	h.mu.Lock()
	defer h.mu.Unlock()
	conv, ok := h.conversations[strings.TrimSpace(conversationID)]
	if !ok {
		return Page{}, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}

	page := Page{Messages: make([]Message, 0, min(limit, len(conv.history)))}
	for _, m := range conv.history {
		if cursor != nil && !cursor.After(m.Seq) {
			continue
		}
		page.Messages = append(page.Messages, m)
		if len(page.Messages) == limit {
			break
		}
	}
	if n := len(page.Messages); n > 0 {
		page.Cursor = pagination.EncodeCursor(pagination.Cursor{Seq: page.Messages[n-1].Seq})
	} else if params.Cursor != "" {
		page.Cursor = params.Cursor
	}
	return page, nil
}

// Conversations lists threads with at least one message, most recent first.
func (h *Hub) Conversations() []Conversation {
	h.mu.Lock()
	out := make([]Conversation, 0, len(h.conversations))
	for _, conv := range h.conversations {
		if len(conv.history) == 0 {
			continue
		}
		last := conv.history[len(conv.history)-1]
		out = append(out, Conversation{
			ID:           conv.id,
			MessageCount: conv.count,
			LastMessage:  &last,
			AwaitsReply:  awaitsReply(conv.history, h.autoReply),
			UpdatedAt:    conv.updatedAt,
		})
	}
	h.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Subscribe registers for new messages in a conversation.
func (h *Hub) Subscribe(conversationID string, buffer int) (*Subscription, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversation id is required")
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan Message, buffer)
	sub := &Subscription{C: ch, ch: ch, hub: h, convID: conversationID}

	h.mu.Lock()
	h.conversationLocked(conversationID).subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub, nil
}

// Close stops delivery and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if conv, ok := s.hub.conversations[s.convID]; ok {
		delete(conv.subscribers, s)
		if conv.idle() {
			delete(s.hub.conversations, s.convID)
		}
	}
	s.closeChan()
}

func (s *Subscription) closeChan() {
	s.once.Do(func() { close(s.ch) })
}

// Sweep drops conversations nobody is watching that are empty or have been
// quiet for longer than idle. A zero idle only drops empty ones.
func (h *Hub) Sweep(idle time.Duration) int {
	cutoff := h.now().Add(-idle)

	h.mu.Lock()
	defer h.mu.Unlock()
	removed := 0
	for id, conv := range h.conversations {
		if len(conv.subscribers) > 0 {
			continue
		}
		if conv.idle() || (idle > 0 && conv.updatedAt.Before(cutoff)) {
			delete(h.conversations, id)
			removed++
		}
	}
	return removed
}

// idle is true for an entry that holds nothing worth keeping.
func (c *conversation) idle() bool {
	return len(c.history) == 0 && len(c.subscribers) == 0
}

func (h *Hub) appendLocked(msg Message) Message {
	conv := h.conversationLocked(msg.ConversationID)
	conv.seq++
	conv.count++
	msg.Seq = conv.seq
	if msg.SentAt.IsZero() {
		msg.SentAt = h.now()
	}
	conv.updatedAt = msg.SentAt
	conv.remember(msg.ID, seenFactor*h.historyLimit)
	conv.history = append(conv.history, msg)
	if over := len(conv.history) - h.historyLimit; over > 0 {
		conv.history = append([]Message(nil), conv.history[over:]...)
	}

	for sub := range conv.subscribers {
		select {
		case sub.ch <- msg:
		default:
			delete(conv.subscribers, sub)
			sub.closeChan()
		}
	}
	h.metrics.ChatMessage(msg.Sender.String())
	return msg
}

// remember records id as delivered, forgetting the oldest ids beyond limit.
func (c *conversation) remember(id uuid.UUID, limit int) {
	c.seen[id] = struct{}{}
	c.seenOrder = append(c.seenOrder, id)
	if over := len(c.seenOrder) - limit; over > 0 {
		for _, old := range c.seenOrder[:over] {
			delete(c.seen, old)
		}
		c.seenOrder = append([]uuid.UUID(nil), c.seenOrder[over:]...)
	}
}

func (h *Hub) publish(ctx context.Context, msg Message) {
	if h.relay == nil {
		return
	}
	if err := h.relay.Publish(ctx, Envelope{Origin: h.origin, Message: msg}); err != nil {
		h.logg.Warn(h.logg.WithFields(ctx, map[string]any{
			"conversation_id": msg.ConversationID,
			"error":           err.Error(),
		}), "chat relay publish failed")
	}
}

func (h *Hub) conversationLocked(id string) *conversation {
	conv, ok := h.conversations[id]
	if !ok {
		conv = &conversation{
			id:          id,
			seen:        make(map[uuid.UUID]struct{}),
			subscribers: make(map[*Subscription]struct{}),
		}
		h.conversations[id] = conv
	}
	return conv
}

// SweepJob drops idle conversations from the background job runner.
type SweepJob struct {
	Hub  *Hub
	Idle time.Duration
}

func (j SweepJob) Name() string { return "chat_conversation_sweep" }

func (j SweepJob) Run(context.Context) (int, error) {
	if j.Hub == nil {
		return 0, errors.New("chat hub required")
	}
	return j.Hub.Sweep(j.Idle), nil
}

// awaitsReply is true when the newest message a human wrote came from the customer.
func awaitsReply(history []Message, autoReply string) bool {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Sender == enums.ChatSenderSupport && m.Body == autoReply {
			continue
		}
		return m.Sender == enums.ChatSenderUser
	}
	return false
}
