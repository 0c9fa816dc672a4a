package transport

import (
	"net/http"

	"classifieds/internal/domain"
	"classifieds/internal/middleware"
	"classifieds/internal/query"
	"classifieds/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MessageHandler handles HTTP requests for private messages
type MessageHandler struct {
	messageService service.MessageService
	logger         *zap.Logger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageService service.MessageService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		logger:         logger,
	}
}

// RegisterRoutes registers all message routes
func (h *MessageHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/api/messages", func(r chi.Router) {
		r.Use(g.Auth)
		r.Get("/conversations", h.Conversations)
		r.Get("/unread-count", h.UnreadCount)
		r.Get("/search", h.Search)
		r.Get("/{userId}", h.Thread)
		r.With(g.MessageLimit).Post("/", h.Send)
		r.Put("/{userId}/read", h.MarkRead)
		r.Delete("/{messageId}", h.Delete)
	})
}

func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	conversations, err := h.messageService.Conversations(r.Context(), p)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	views := make([]ConversationView, 0, len(conversations))
	for i := range conversations {
		views = append(views, newConversationView(&conversations[i]))
	}
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]interface{}{"conversations": views}, "")
}

// Thread returns one page of the conversation with another user and marks
// the fetched messages addressed to the caller as read.
func (h *MessageHandler) Thread(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	otherID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	page := query.ParsePage(r.URL.Query(), query.DefaultThreadLimit)
	result, err := h.messageService.Thread(r.Context(), p, otherID, page)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, pageView("messages", result, newMessageView), "")
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	message, err := h.messageService.Send(r.Context(), p, service.MessageInput{
		Content:    req.Content,
		ReceiverID: req.ReceiverID,
		AdID:       req.AdID,
	})
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusCreated, messageData(message), "Message sent successfully")
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	otherID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	count, err := h.messageService.MarkRead(r.Context(), p, otherID)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]int64{"updatedCount": count}, "Messages marked as read")
}

func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	count, err := h.messageService.UnreadCount(r.Context(), p)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]int{"unreadCount": count}, "")
}

func (h *MessageHandler) Search(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	messages, err := h.messageService.Search(r.Context(), p, query.ParseMessageSearch(r.URL.Query()))
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]interface{}{"messages": newMessageViews(messages)}, "")
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "messageId")
	if !ok {
		return
	}

	if err := h.messageService.Delete(r.Context(), p, id); err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, nil, "Message deleted successfully")
}

func messageData(m *domain.MessageDetails) map[string]interface{} {
	return map[string]interface{}{"message": newMessageView(m)}
}
