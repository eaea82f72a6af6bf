package handler

import (
	"net/http"
	"strconv"
	"time"

	"taskchat/internal/auth"
	"taskchat/internal/domain/conversation"
	"taskchat/internal/services"
	"taskchat/internal/transport/httpdto"
	taskerrors "taskchat/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChatHandler struct {
	chat        *services.ChatService
	attachments *services.AttachmentService
}

func NewChatHandler(chat *services.ChatService, attachments *services.AttachmentService) *ChatHandler {
	return &ChatHandler{chat: chat, attachments: attachments}
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	taskID, err := parseUUID(req.TaskID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid task_id", "INVALID_REQUEST"))
		return
	}
	target := conversation.Standard(taskID)
	if req.IsVital {
		target = conversation.Vital(taskID)
	}

	in := services.SendInput{
		Target:             target,
		SenderID:           userID,
		Content:            req.Content,
		Attachment:         req.Attachment,
		ClientSubmissionID: req.ClientSubmissionID,
	}
	if req.ReplyToID != "" {
		replyTo, err := parseUUID(req.ReplyToID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid reply_to_id", "INVALID_REQUEST"))
			return
		}
		in.ReplyToID = uuid.NullUUID{UUID: replyTo, Valid: true}
	}
	for _, m := range req.Mentions {
		id, err := parseUUID(m)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid mention", "INVALID_REQUEST"))
			return
		}
		in.Mentions = append(in.Mentions, id)
	}

	view, err := h.chat.Send(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(view))
}

func (h *ChatHandler) History(c *gin.Context) {
	userID, conversationID, ok := h.callerAndConversation(c)
	if !ok {
		return
	}
	beforeSeq, err := parseInt64(c.Query("before_seq"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid before_seq", "INVALID_REQUEST"))
		return
	}
	limit, err := parseInt(c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid limit", "INVALID_REQUEST"))
		return
	}

	items, err := h.chat.History(c.Request.Context(), userID, conversationID, beforeSeq, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"messages": items}))
}

func (h *ChatHandler) Search(c *gin.Context) {
	userID, conversationID, ok := h.callerAndConversation(c)
	if !ok {
		return
	}
	limit, err := parseInt(c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid limit", "INVALID_REQUEST"))
		return
	}

	items, err := h.chat.Search(c.Request.Context(), userID, conversationID, c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"messages": items}))
}

func (h *ChatHandler) Pinned(c *gin.Context) {
	userID, conversationID, ok := h.callerAndConversation(c)
	if !ok {
		return
	}
	items, err := h.chat.Pinned(c.Request.Context(), userID, conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"messages": items}))
}

func (h *ChatHandler) Members(c *gin.Context) {
	userID, conversationID, ok := h.callerAndConversation(c)
	if !ok {
		return
	}
	members, err := h.chat.Members(c.Request.Context(), userID, conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"members": members}))
}

func (h *ChatHandler) Sync(c *gin.Context) {
	userID, conversationID, ok := h.callerAndConversation(c)
	if !ok {
		return
	}
	since, err := time.Parse(time.RFC3339, c.Query("since"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid since timestamp", "INVALID_REQUEST"))
		return
	}

	items, err := h.chat.SyncSince(c.Request.Context(), userID, conversationID, since)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"messages": items}))
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID, conversationID, ok := h.callerAndConversation(c)
	if !ok {
		return
	}
	seq, err := h.chat.MarkRead(c.Request.Context(), userID, conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MarkReadResponse{LastReadSeq: seq}))
}

func (h *ChatHandler) Unread(c *gin.Context) {
	userID, conversationID, ok := h.callerAndConversation(c)
	if !ok {
		return
	}
	unread, err := h.chat.UnreadCount(c.Request.Context(), userID, conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadResponse{Unread: unread}))
}

func (h *ChatHandler) Edit(c *gin.Context) {
	userID, messageID, ok := h.callerAndMessage(c)
	if !ok {
		return
	}
	var req httpdto.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	view, err := h.chat.Edit(c.Request.Context(), userID, messageID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(view))
}

func (h *ChatHandler) Delete(c *gin.Context) {
	userID, messageID, ok := h.callerAndMessage(c)
	if !ok {
		return
	}
	if err := h.chat.Delete(c.Request.Context(), userID, messageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *ChatHandler) React(c *gin.Context) {
	userID, messageID, ok := h.callerAndMessage(c)
	if !ok {
		return
	}
	var req httpdto.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	reactions, err := h.chat.ToggleReaction(c.Request.Context(), userID, messageID, req.Emoji)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"reactions": reactions}))
}

func (h *ChatHandler) Pin(c *gin.Context) {
	userID, messageID, ok := h.callerAndMessage(c)
	if !ok {
		return
	}
	pinned, err := h.chat.TogglePin(c.Request.Context(), userID, messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PinResponse{Pinned: pinned}))
}

func (h *ChatHandler) Delivered(c *gin.Context) {
	userID, messageID, ok := h.callerAndMessage(c)
	if !ok {
		return
	}
	if err := h.chat.MarkDelivered(c.Request.Context(), userID, messageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"delivered": true}))
}

func (h *ChatHandler) PresignAttachment(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	var req httpdto.PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	result, err := h.attachments.Presign(c.Request.Context(), services.PresignInput{
		UploaderID: userID,
		FileName:   req.FileName,
		MediaType:  req.MediaType,
		SizeBytes:  req.SizeBytes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(result))
}

func (h *ChatHandler) callerAndConversation(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return uuid.Nil, uuid.Nil, false
	}
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, conversationID, true
}

func (h *ChatHandler) callerAndMessage(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return uuid.Nil, uuid.Nil, false
	}
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, messageID, true
}

func respondError(c *gin.Context, err error) {
	c.JSON(httpdto.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), taskerrors.Code(err)))
}

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(value)
}

func parseInt64(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseInt(value, 10, 64)
}

func parseInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
