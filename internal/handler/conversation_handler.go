package handler

import (
	"net/http"

	"rancho-chat/internal/domain/conversation"
	"rancho-chat/internal/services"
	"rancho-chat/internal/transport/httpdto"
	"rancho-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	service *services.ConversationService
	export  *services.ExportService
	log     *logger.Logger
}

func NewConversationHandler(service *services.ConversationService, export *services.ExportService, l *logger.Logger) *ConversationHandler {
	return &ConversationHandler{service: service, export: export, log: orNop(l)}
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := accountID(c)
	if !ok {
		return
	}
	previews, err := h.service.ListConversations(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromPreviews(previews)))
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req httpdto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
		return
	}
	userID, ok := accountID(c)
	if !ok {
		return
	}

	created, err := h.service.CreateNewConversation(c.Request.Context(), userID, conversation.Details{
		Name:        req.Name,
		Description: req.Description,
		Visibility:  req.Visibility,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if created == nil {
		forbidden(c)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromConversation(created)))
}

func (h *ConversationHandler) Remove(c *gin.Context) {
	userID, ok := accountID(c)
	if !ok {
		return
	}
	removed, err := h.service.RemoveConversation(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if !removed {
		forbidden(c)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewAckResponse())
}

func (h *ConversationHandler) ListMessages(c *gin.Context) {
	if _, ok := accountID(c); !ok {
		return
	}
	messages, err := h.service.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessages(messages)))
}

func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	userID, ok := accountID(c)
	if !ok {
		return
	}
	removed, err := h.service.RemoveParticipant(c.Request.Context(), userID, c.Param("userId"), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if !removed {
		forbidden(c)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewAckResponse())
}

func (h *ConversationHandler) Export(c *gin.Context) {
	userID, ok := accountID(c)
	if !ok {
		return
	}
	res, err := h.export.ExportConversation(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if res == nil {
		forbidden(c)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ExportResponse{
		Key:       res.Key,
		URL:       res.URL,
		ExpiresAt: res.ExpiresAt,
	}))
}
