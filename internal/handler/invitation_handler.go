package handler

import (
	"net/http"

	"rancho-chat/internal/services"
	"rancho-chat/internal/transport/httpdto"
	"rancho-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type InvitationHandler struct {
	service *services.InvitationService
	log     *logger.Logger
}

func NewInvitationHandler(service *services.InvitationService, l *logger.Logger) *InvitationHandler {
	return &InvitationHandler{service: service, log: orNop(l)}
}

func (h *InvitationHandler) AskToJoin(c *gin.Context) {
	userID, ok := accountID(c)
	if !ok {
		return
	}
	asked, err := h.service.AskToJoin(c.Request.Context(), userID, c.Param("id"))
	h.respondBool(c, asked, err, http.StatusCreated)
}

func (h *InvitationHandler) Accept(c *gin.Context) {
	userID, ok := accountID(c)
	if !ok {
		return
	}
	accepted, err := h.service.Accept(c.Request.Context(), userID, c.Param("id"))
	h.respondBool(c, accepted, err, http.StatusOK)
}

func (h *InvitationHandler) Decline(c *gin.Context) {
	userID, ok := accountID(c)
	if !ok {
		return
	}
	declined, err := h.service.Decline(c.Request.Context(), userID, c.Param("id"))
	h.respondBool(c, declined, err, http.StatusOK)
}

func (h *InvitationHandler) Remove(c *gin.Context) {
	userID, ok := accountID(c)
	if !ok {
		return
	}
	removed, err := h.service.RemoveInvitation(c.Request.Context(), userID, c.Param("id"))
	h.respondBool(c, removed, err, http.StatusOK)
}

// ListMine returns the invitations filed by the caller.
func (h *InvitationHandler) ListMine(c *gin.Context) {
	userID, ok := accountID(c)
	if !ok {
		return
	}
	invs, err := h.service.ListUserInvitations(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromInvitations(invs)))
}

func (h *InvitationHandler) ListForConversation(c *gin.Context) {
	if _, ok := accountID(c); !ok {
		return
	}
	invs, err := h.service.ListConversationInvitations(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromInvitations(invs)))
}

func (h *InvitationHandler) respondBool(c *gin.Context, ok bool, err error, status int) {
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if !ok {
		forbidden(c)
		return
	}
	c.JSON(status, httpdto.NewAckResponse())
}
