package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dimasfh/sociagram/internal/app/services"
	"github.com/dimasfh/sociagram/internal/platform/middleware"
)

type ConversationController struct {
	service *services.ConversationService
}

func NewConversationController(s *services.ConversationService) *ConversationController {
	return &ConversationController{service: s}
}

// List returns every conversation.
// @Summary List conversations
// @Tags Conversations
// @Produce json
// @Router /api/conversation [get]
func (c *ConversationController) List(w http.ResponseWriter, r *http.Request) {
	conversations, err := c.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

// Create finds or creates the conversation for a member set.
// @Summary Create a conversation
// @Tags Conversations
// @Accept json
// @Produce json
// @Router /api/conversation [post]
func (c *ConversationController) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateConversationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	conv, err := c.service.Create(r.Context(), middleware.RequesterID(r.Context()), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

// ListForUser returns the requester's conversations with the join horizon
// applied.
// @Summary Own conversations
// @Tags Conversations
// @Produce json
// @Router /api/conversation/user [get]
func (c *ConversationController) ListForUser(w http.ResponseWriter, r *http.Request) {
	conversations, err := c.service.ListForUser(r.Context(), middleware.RequesterID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

// GetByMembers resolves a conversation by exact member set, the requester
// implied.
// @Summary Find conversation by members
// @Tags Conversations
// @Produce json
// @Param members query string true "Comma separated user ids"
// @Router /api/conversation/members [get]
func (c *ConversationController) GetByMembers(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("members")
	var members []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			members = append(members, id)
		}
	}
	conv, err := c.service.GetByMembers(r.Context(), middleware.RequesterID(r.Context()), members)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Get returns the conversation behind a room id.
// @Summary Get a conversation
// @Tags Conversations
// @Produce json
// @Router /api/conversation/{roomId} [get]
func (c *ConversationController) Get(w http.ResponseWriter, r *http.Request, roomID string) {
	conv, err := c.service.GetByRoomID(r.Context(), middleware.RequesterID(r.Context()), roomID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// SendMessage appends a chat entry to the conversation.
// @Summary Send a message
// @Tags Conversations
// @Accept json
// @Produce json
// @Router /api/conversation/{roomId} [put]
func (c *ConversationController) SendMessage(w http.ResponseWriter, r *http.Request, roomID string) {
	var in services.SendMessageInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in.RoomID = roomID
	conv, err := c.service.SendMessage(r.Context(), middleware.RequesterID(r.Context()), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Leave soft-leaves the conversation, deleting it when the requester was the
// last active member.
// @Summary Leave a conversation
// @Tags Conversations
// @Produce json
// @Router /api/conversation/{roomId} [delete]
func (c *ConversationController) Leave(w http.ResponseWriter, r *http.Request, roomID string) {
	if err := c.service.Leave(r.Context(), middleware.RequesterID(r.Context()), roomID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Left the conversation"})
}
