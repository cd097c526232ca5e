package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dimasfh/sociagram/internal/app/repositories"
	"github.com/dimasfh/sociagram/internal/domain/conversation"
	"github.com/dimasfh/sociagram/pkg/logger"
)

// casRetries bounds how often a save is retried after a version conflict.
const casRetries = 3

type ConversationService struct {
	conversations repositories.ConversationRepository
	users         repositories.UserRepository
	log           logger.Log
}

func NewConversationService(conversations repositories.ConversationRepository, users repositories.UserRepository, log logger.Log) *ConversationService {
	return &ConversationService{conversations: conversations, users: users, log: log}
}

// ConversationView is a conversation with chats trimmed to the requesting
// member's join horizon.
type ConversationView struct {
	ID        string                `json:"_id"`
	RoomID    string                `json:"roomId"`
	Members   []conversation.Member `json:"members"`
	Chats     []conversation.Chat   `json:"chats"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type CreateConversationInput struct {
	RoomID  string   `json:"roomId"`
	Members []string `json:"members"`
	Message string   `json:"message"`
}

// Create finds or creates the conversation for the exact member set. The
// requester is always part of the set; duplicate ids are collapsed. When a
// conversation with the same member set already exists, the call is a rejoin:
// the requester's membership goes back to active with a fresh join horizon and
// the message is appended there instead.
func (s *ConversationService) Create(ctx context.Context, requesterID string, in CreateConversationInput) (*conversation.Conversation, error) {
	var missing []string
	if strings.TrimSpace(in.RoomID) == "" {
		missing = append(missing, "roomId")
	}
	if len(in.Members) == 0 {
		missing = append(missing, "members")
	}
	if strings.TrimSpace(in.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return nil, NewValidationError(missing...)
	}

	members := normalizeMembers(requesterID, in.Members)
	for _, id := range members {
		if _, err := s.users.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}

	existing, err := s.conversations.FindByExactMembers(ctx, members)
	if err == nil {
		return s.rejoin(ctx, existing.RoomID, requesterID, in.Message)
	}
	if !errors.Is(err, repositories.ErrConversationNotFound) {
		return nil, err
	}

	now := time.Now()
	c := &conversation.Conversation{
		ID:        uuid.NewString(),
		RoomID:    in.RoomID,
		CreatedAt: now,
		UpdatedAt: now,
		Chats: []conversation.Chat{{
			UserID:    requesterID,
			Text:      in.Message,
			CreatedAt: now,
		}},
	}
	for _, id := range members {
		c.Members = append(c.Members, conversation.Member{UserID: id, JoinedAt: now})
	}
	if err := s.conversations.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Infof("created conversation %s with %d members", c.RoomID, len(members))
	return c, nil
}

// rejoin clears the requester's leave mark and resets their join horizon, so
// older chats stay hidden from them, then appends the message.
func (s *ConversationService) rejoin(ctx context.Context, roomID, requesterID, message string) (*conversation.Conversation, error) {
	return s.mutate(ctx, roomID, func(c *conversation.Conversation) error {
		m := c.FindMember(requesterID)
		if m == nil {
			return ErrForbidden
		}
		m.IsLeave = false
		m.JoinedAt = time.Now()
		c.Chats = append(c.Chats, conversation.Chat{
			ConversationID: c.ID,
			UserID:         requesterID,
			Text:           message,
			CreatedAt:      time.Now(),
		})
		c.UpdatedAt = time.Now()
		return nil
	})
}

type SendMessageInput struct {
	RoomID string `json:"roomId"`
	Text   string `json:"message"`
}

// SendMessage appends a chat to the conversation. Members that left may still
// post; the leave mark only hides the room from their own listing.
func (s *ConversationService) SendMessage(ctx context.Context, requesterID string, in SendMessageInput) (*conversation.Conversation, error) {
	var missing []string
	if strings.TrimSpace(in.RoomID) == "" {
		missing = append(missing, "roomId")
	}
	if strings.TrimSpace(in.Text) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return nil, NewValidationError(missing...)
	}

	return s.mutate(ctx, in.RoomID, func(c *conversation.Conversation) error {
		c.Chats = append(c.Chats, conversation.Chat{
			ConversationID: c.ID,
			UserID:         requesterID,
			Text:           in.Text,
			CreatedAt:      time.Now(),
		})
		c.UpdatedAt = time.Now()
		return nil
	})
}

// Leave marks the requester as left. When nobody else remains active the
// conversation is deleted outright. Both outcomes go through the version
// check, so a message appended between the read and the delete forces a
// re-read instead of vanishing.
func (s *ConversationService) Leave(ctx context.Context, requesterID, roomID string) error {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		c, err := s.conversations.GetByRoomID(ctx, roomID)
		if err != nil {
			return err
		}
		m := c.FindMember(requesterID)
		if m == nil {
			return ErrForbidden
		}
		if c.ActiveOthers(requesterID) == 0 {
			err = s.conversations.DeleteWithVersion(ctx, c)
			if err == nil {
				s.log.Infof("last member left conversation %s, deleted", roomID)
				return nil
			}
		} else {
			m.IsLeave = true
			err = s.conversations.UpdateWithVersion(ctx, c)
			if err == nil {
				return nil
			}
		}
		if !errors.Is(err, repositories.ErrVersionConflict) {
			return err
		}
		lastErr = err
		s.log.Debugf("version conflict leaving conversation %s, retry %d", roomID, attempt+1)
	}
	return fmt.Errorf("conversation %s: too many concurrent updates: %w", roomID, lastErr)
}

// ListForUser returns every conversation the requester appears in, each with
// chats trimmed to the requester's join horizon.
func (s *ConversationService) ListForUser(ctx context.Context, requesterID string) ([]*ConversationView, error) {
	all, err := s.conversations.ListByMember(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	var out []*ConversationView
	for _, c := range all {
		m := c.FindMember(requesterID)
		if m == nil {
			continue
		}
		out = append(out, s.viewFor(c, m))
	}
	return out, nil
}

func (s *ConversationService) List(ctx context.Context) ([]*conversation.Conversation, error) {
	return s.conversations.List(ctx)
}

// GetByRoomID returns the conversation behind a room id. The lookup is public:
// members get their chats trimmed to the join horizon, anyone else sees the
// document as stored.
func (s *ConversationService) GetByRoomID(ctx context.Context, requesterID, roomID string) (*ConversationView, error) {
	c, err := s.conversations.GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if m := c.FindMember(requesterID); m != nil {
		return s.viewFor(c, m), nil
	}
	return &ConversationView{
		ID:        c.ID,
		RoomID:    c.RoomID,
		Members:   c.Members,
		Chats:     c.Chats,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}

// GetByMembers resolves the conversation for an exact member set without
// creating one.
func (s *ConversationService) GetByMembers(ctx context.Context, requesterID string, memberIDs []string) (*conversation.Conversation, error) {
	members := normalizeMembers(requesterID, memberIDs)
	if len(members) < 2 {
		return nil, NewValidationError("members")
	}
	return s.conversations.FindByExactMembers(ctx, members)
}

// viewFor hides chats sent before the member's join horizon.
func (s *ConversationService) viewFor(c *conversation.Conversation, m *conversation.Member) *ConversationView {
	chats := make([]conversation.Chat, 0, len(c.Chats))
	for _, chat := range c.Chats {
		if chat.CreatedAt.Before(m.JoinedAt) {
			continue
		}
		chats = append(chats, chat)
	}
	return &ConversationView{
		ID:        c.ID,
		RoomID:    c.RoomID,
		Members:   c.Members,
		Chats:     chats,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// mutate loads the conversation, applies fn and saves with the version check,
// retrying on a conflict with a fresh read.
func (s *ConversationService) mutate(ctx context.Context, roomID string, fn func(*conversation.Conversation) error) (*conversation.Conversation, error) {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		c, err := s.conversations.GetByRoomID(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if err := fn(c); err != nil {
			return nil, err
		}
		err = s.conversations.UpdateWithVersion(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, repositories.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
		s.log.Debugf("version conflict on conversation %s, retry %d", roomID, attempt+1)
	}
	return nil, fmt.Errorf("conversation %s: too many concurrent updates: %w", roomID, lastErr)
}

// normalizeMembers dedups the ids and guarantees the requester is included.
func normalizeMembers(requesterID string, memberIDs []string) []string {
	set := map[string]struct{}{requesterID: {}}
	for _, id := range memberIDs {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
