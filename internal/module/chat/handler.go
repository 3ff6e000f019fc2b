package chat

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/shared/response"
)

// pollLimit caps the number of messages returned per poll.
const pollLimit = 100

// Handler handles support chat HTTP requests. Clients poll for new
// messages with the `since` cursor (unix milliseconds).
type Handler struct {
	repo Repository
}

// NewHandler creates a new chat handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers user chat routes (authenticated).
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	chat := r.Group("/chat")
	{
		chat.GET("/messages", h.Poll)
		chat.POST("/messages", h.Send)
	}
}

// RegisterAdminRoutes registers admin chat routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	chat := r.Group("/chat")
	{
		chat.GET("/conversations", h.ListConversations)
		chat.GET("/conversations/:id/messages", h.PollConversation)
		chat.POST("/conversations/:id/messages", h.Reply)
		chat.PUT("/conversations/:id/close", h.Close)
	}
}

type sendRequest struct {
	Body string `json:"body" binding:"required"`
}

// Poll returns the caller's messages after the cursor and marks staff
// replies as read.
func (h *Handler) Poll(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	conv, err := h.repo.GetOrCreateConversation(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "")
		return
	}

	messages, err := h.repo.ListMessagesSince(c.Request.Context(), conv.ID, parseSince(c), pollLimit)
	if err != nil {
		response.InternalError(c, "")
		return
	}

	if err := h.repo.MarkRead(c.Request.Context(), conv.ID, true); err != nil {
		response.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conv.ID,
		"messages":        messages,
		"now":             time.Now().UnixMilli(),
	})
}

// Send posts a message from the caller.
func (h *Handler) Send(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	conv, err := h.repo.GetOrCreateConversation(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "")
		return
	}

	msg := &Message{
		ConversationID: conv.ID,
		SenderID:       userID,
		Body:           req.Body,
	}
	if err := h.repo.CreateMessage(c.Request.Context(), msg); err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// ListConversations lists open conversations with unread counts.
func (h *Handler) ListConversations(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	conversations, total, err := h.repo.ListOpenConversations(c.Request.Context(), offset, limit)
	if err != nil {
		response.InternalError(c, "")
		return
	}

	type conversationView struct {
		*Conversation
		Unread int64 `json:"unread"`
	}
	views := make([]conversationView, len(conversations))
	for i, conv := range conversations {
		unread, err := h.repo.CountUnread(c.Request.Context(), conv.ID, false)
		if err != nil {
			response.InternalError(c, "")
			return
		}
		views[i] = conversationView{Conversation: conv, Unread: unread}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": views, "total": total})
}

// PollConversation returns messages in a conversation after the cursor
// and marks user messages as read.
func (h *Handler) PollConversation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid conversation ID")
		return
	}

	if _, err := h.repo.GetConversation(c.Request.Context(), id); err != nil {
		handleChatError(c, err)
		return
	}

	messages, err := h.repo.ListMessagesSince(c.Request.Context(), id, parseSince(c), pollLimit)
	if err != nil {
		response.InternalError(c, "")
		return
	}

	if err := h.repo.MarkRead(c.Request.Context(), id, false); err != nil {
		response.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"now":      time.Now().UnixMilli(),
	})
}

// Reply posts a staff message in a conversation.
func (h *Handler) Reply(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid conversation ID")
		return
	}

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if _, err := h.repo.GetConversation(c.Request.Context(), id); err != nil {
		handleChatError(c, err)
		return
	}

	msg := &Message{
		ConversationID: id,
		SenderID:       getUserID(c),
		FromAdmin:      true,
		Body:           req.Body,
	}
	if err := h.repo.CreateMessage(c.Request.Context(), msg); err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Close marks a conversation resolved.
func (h *Handler) Close(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid conversation ID")
		return
	}

	if err := h.repo.CloseConversation(c.Request.Context(), id); err != nil {
		handleChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

func parseSince(c *gin.Context) time.Time {
	raw := c.Query("since")
	if raw == "" {
		return time.Time{}
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || millis <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}

func getUserID(c *gin.Context) uuid.UUID {
	if val, exists := c.Get("user_id"); exists {
		if userID, ok := val.(uuid.UUID); ok {
			return userID
		}
	}
	return uuid.Nil
}

func handleChatError(c *gin.Context, err error) {
	response.HandleErrorWithDefault(c, err, []response.ErrorMapping{
		{Err: ErrConversationNotFound, Status: http.StatusNotFound},
	})
}
