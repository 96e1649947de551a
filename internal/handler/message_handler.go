package handler

import (
	"net/http"

	"rancho-chat/internal/services"
	"rancho-chat/internal/transport/httpdto"
	"rancho-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	service *services.MessageService
	log     *logger.Logger
}

func NewMessageHandler(service *services.MessageService, l *logger.Logger) *MessageHandler {
	return &MessageHandler{service: service, log: orNop(l)}
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
		return
	}
	senderID, ok := accountID(c)
	if !ok {
		return
	}

	sent, err := h.service.SendMessage(c.Request.Context(), senderID, c.Param("id"), req.Content)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if !sent {
		forbidden(c)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewAckResponse())
}

func (h *MessageHandler) Get(c *gin.Context) {
	requesterID, ok := accountID(c)
	if !ok {
		return
	}
	m, err := h.service.GetMessage(c.Request.Context(), requesterID, c.Param("id"), c.Param("messageId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if m == nil {
		forbidden(c)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessage(*m)))
}

func (h *MessageHandler) Remove(c *gin.Context) {
	requesterID, ok := accountID(c)
	if !ok {
		return
	}
	removed, err := h.service.RemoveMessage(c.Request.Context(), requesterID, c.Param("id"))
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
