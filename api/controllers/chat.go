package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shopnearby-backend/api/middleware"
	"github.com/angelmondragon/shopnearby-backend/api/responses"
	"github.com/angelmondragon/shopnearby-backend/api/validators"
	"github.com/angelmondragon/shopnearby-backend/internal/chat"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
	"github.com/angelmondragon/shopnearby-backend/pkg/logger"
	"github.com/angelmondragon/shopnearby-backend/pkg/pagination"
)

const (
	streamBuffer    = 32
	streamHeartbeat = 25 * time.Second
)

// ChatHub is the live-chat surface the controllers need.
type ChatHub interface {
	Send(ctx context.Context, conversationID string, sender enums.ChatSender, body string) (chat.Message, error)
	History(conversationID string, params pagination.Params) (chat.Page, error)
	Conversations() []chat.Conversation
	Subscribe(conversationID string, buffer int) (*chat.Subscription, error)
}

type chatMessageRequest struct {
	Body string `json:"body" validate:"notblank,max=2000"`
}

// SendChatMessage posts a customer message into the session's conversation.
func SendChatMessage(hub ChatHub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := chatSession(w, r, hub, logg)
		if !ok {
			return
		}
		postMessage(w, r, hub, sessionID, enums.ChatSenderUser, logg)
	}
}

// ChatHistory returns the session's own conversation. A session that never
// wrote gets an empty page.
func ChatHistory(hub ChatHub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := chatSession(w, r, hub, logg)
		if !ok {
			return
		}
		writeHistory(w, r, hub, sessionID, true, logg)
	}
}

func ChatStream(hub ChatHub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := chatSession(w, r, hub, logg)
		if !ok {
			return
		}
		streamConversation(w, r, hub, sessionID, logg)
	}
}

// ListConversations feeds the support dashboard.
func ListConversations(hub ChatHub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat unavailable"))
			return
		}
		list := hub.Conversations()
		responses.WriteSuccess(w, map[string]any{"conversations": list, "count": len(list)})
	}
}

func ConversationHistory(hub ChatHub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat unavailable"))
			return
		}
		writeHistory(w, r, hub, chi.URLParam(r, "conversationId"), false, logg)
	}
}

// SupportReply posts a support-agent message into a conversation.
func SupportReply(hub ChatHub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat unavailable"))
			return
		}
		conversationID := chi.URLParam(r, "conversationId")
		if _, err := hub.History(conversationID, pagination.Params{Limit: 1}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		postMessage(w, r, hub, conversationID, enums.ChatSenderSupport, logg)
	}
}

func ConversationStream(hub ChatHub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat unavailable"))
			return
		}
		streamConversation(w, r, hub, chi.URLParam(r, "conversationId"), logg)
	}
}

func chatSession(w http.ResponseWriter, r *http.Request, hub ChatHub, logg *logger.Logger) (string, bool) {
	if hub == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat unavailable"))
		return "", false
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session missing"))
		return "", false
	}
	return sessionID, true
}

func postMessage(w http.ResponseWriter, r *http.Request, hub ChatHub, conversationID string, sender enums.ChatSender, logg *logger.Logger) {
	var payload chatMessageRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	msg, err := hub.Send(r.Context(), conversationID, sender, payload.Body)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, msg)
}

func writeHistory(w http.ResponseWriter, r *http.Request, hub ChatHub, conversationID string, emptyIfMissing bool, logg *logger.Logger) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	page, err := hub.History(conversationID, params)
	if err != nil {
		if emptyIfMissing && pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			responses.WriteSuccess(w, chat.Page{Messages: []chat.Message{}})
			return
		}
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, page)
}

// streamConversation pushes new messages as server-sent events until the
// client disconnects or the hub drops a lagging subscriber.
func streamConversation(w http.ResponseWriter, r *http.Request, hub ChatHub, conversationID string, logg *logger.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
		return
	}
	sub, err := hub.Subscribe(conversationID, streamBuffer)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, open := <-sub.C:
			if !open {
				fmt.Fprint(w, "event: close\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "encode chat event", err)
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: message\ndata: %s\n\n", msg.Seq, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
