package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/dimasfh/sociagram/internal/domain/conversation"
)

type ConversationRepository interface {
	Create(ctx context.Context, c *conversation.Conversation) error
	List(ctx context.Context) ([]*conversation.Conversation, error)
	GetByRoomID(ctx context.Context, roomID string) (*conversation.Conversation, error)
	// FindByExactMembers returns the conversation whose member set equals
	// memberIDs order-independent, or ErrConversationNotFound.
	FindByExactMembers(ctx context.Context, memberIDs []string) (*conversation.Conversation, error)
	ListByMember(ctx context.Context, userID string) ([]*conversation.Conversation, error)
	// UpdateWithVersion saves the whole document if the stored version still
	// matches c.Version, then increments it. Returns ErrVersionConflict on a
	// stale read.
	UpdateWithVersion(ctx context.Context, c *conversation.Conversation) error
	// DeleteWithVersion removes the document under the same version check as
	// UpdateWithVersion.
	DeleteWithVersion(ctx context.Context, c *conversation.Conversation) error
}

type inMemoryConversationRepo struct {
	mu            sync.RWMutex
	conversations map[string]*conversation.Conversation // keyed by ID
}

func NewInMemoryConversationRepo() ConversationRepository {
	return &inMemoryConversationRepo{conversations: make(map[string]*conversation.Conversation)}
}

func cloneConversation(c *conversation.Conversation) *conversation.Conversation {
	cp := *c
	cp.Members = append([]conversation.Member(nil), c.Members...)
	cp.Chats = append([]conversation.Chat(nil), c.Chats...)
	return &cp
}

func (r *inMemoryConversationRepo) Create(ctx context.Context, c *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations[c.ID] = cloneConversation(c)
	return nil
}

func (r *inMemoryConversationRepo) List(ctx context.Context) ([]*conversation.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*conversation.Conversation, 0, len(r.conversations))
	for _, c := range r.conversations {
		out = append(out, cloneConversation(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryConversationRepo) GetByRoomID(ctx context.Context, roomID string) (*conversation.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.conversations {
		if c.RoomID == roomID {
			return cloneConversation(c), nil
		}
	}
	return nil, ErrConversationNotFound
}

func (r *inMemoryConversationRepo) FindByExactMembers(ctx context.Context, memberIDs []string) (*conversation.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.conversations {
		if conversation.SameMemberSet(c, memberIDs) {
			return cloneConversation(c), nil
		}
	}
	return nil, ErrConversationNotFound
}

func (r *inMemoryConversationRepo) ListByMember(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*conversation.Conversation
	for _, c := range r.conversations {
		if c.FindMember(userID) != nil {
			out = append(out, cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryConversationRepo) UpdateWithVersion(ctx context.Context, c *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.conversations[c.ID]
	if !ok {
		return ErrConversationNotFound
	}
	if stored.Version != c.Version {
		return ErrVersionConflict
	}
	cp := cloneConversation(c)
	cp.Version++
	r.conversations[c.ID] = cp
	c.Version = cp.Version
	return nil
}

func (r *inMemoryConversationRepo) DeleteWithVersion(ctx context.Context, c *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.conversations[c.ID]
	if !ok {
		return ErrConversationNotFound
	}
	if stored.Version != c.Version {
		return ErrVersionConflict
	}
	delete(r.conversations, c.ID)
	return nil
}
