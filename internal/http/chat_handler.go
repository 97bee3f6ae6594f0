package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ai-chat/internal/llm"
	"ai-chat/internal/service"
)

// ChatHandler expone el chat, el historial y el estado de proveedores.
type ChatHandler struct {
	logger  *zap.Logger
	chat    *service.ChatService
	history *service.HistoryService
	router  *llm.Router
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(
	logger *zap.Logger,
	chat *service.ChatService,
	history *service.HistoryService,
	router *llm.Router,
) *ChatHandler {
	return &ChatHandler{
		logger:  logger,
		chat:    chat,
		history: history,
		router:  router,
	}
}

type sendMessageRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
}

func (r sendMessageRequest) input() service.SendInput {
	return service.SendInput{
		Message:        r.Message,
		ConversationID: r.ConversationID,
		Provider:       r.Provider,
		Model:          r.Model,
	}
}

// SendMessage maneja POST /chat/messages.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	resp, err := h.chat.SendMessage(c.Request.Context(), currentUserID(c), req.input())
	if err != nil {
		h.writeServiceError(c, "send message failed", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// StreamMessage maneja POST /chat/messages/stream como Server-Sent Events:
// un evento "chunk" por fragmento y un "done" final con la respuesta completa.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid stream message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	resp, err := h.chat.StreamMessage(ctx, currentUserID(c), req.input(), func(chunk string) error {
		if !c.Writer.Written() {
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
		}
		c.SSEvent("chunk", gin.H{"text": chunk})
		c.Writer.Flush()
		return ctx.Err()
	})
	if err != nil {
		if !c.Writer.Written() {
			h.writeServiceError(c, "stream message failed", err)
			return
		}
		h.logger.Info("stream ended early", zap.Error(err))
		return
	}

	c.SSEvent("done", resp)
	c.Writer.Flush()
}

// GetHistory maneja GET /chat/history?conversation_id=.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	messages := h.history.GetHistory(c.Request.Context(), currentUserID(c), c.Query("conversation_id"))
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ListConversations maneja GET /chat/conversations.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	conversations := h.history.GetConversationList(c.Request.Context(), currentUserID(c))
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// DeleteConversation maneja DELETE /chat/conversations/:id.
func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	deleted := h.history.DeleteConversation(c.Request.Context(), currentUserID(c), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ListProviders maneja GET /providers.
func (h *ChatHandler) ListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.router.Providers()})
}

func (h *ChatHandler) writeServiceError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.Is(err, service.ErrMessageInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process message"})
	}
}
