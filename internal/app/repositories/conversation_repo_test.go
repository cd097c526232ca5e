package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimasfh/sociagram/internal/domain/conversation"
)

func seedConversation(t *testing.T, repo ConversationRepository, id, roomID string, members ...string) *conversation.Conversation {
	t.Helper()
	c := &conversation.Conversation{ID: id, RoomID: roomID, CreatedAt: time.Now()}
	for _, m := range members {
		c.Members = append(c.Members, conversation.Member{UserID: m, JoinedAt: time.Now()})
	}
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("create %s: %v", roomID, err)
	}
	return c
}

func TestUpdateWithVersionConflict(t *testing.T) {
	repo := NewInMemoryConversationRepo()
	ctx := context.Background()
	seedConversation(t, repo, "c1", "room-1", "u1", "u2")

	// Two readers take the same snapshot.
	first, err := repo.GetByRoomID(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := repo.GetByRoomID(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	first.Chats = append(first.Chats, conversation.Chat{UserID: "u1", Text: "one", CreatedAt: time.Now()})
	if err := repo.UpdateWithVersion(ctx, first); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// The second writer holds a stale version and must be rejected.
	second.Chats = append(second.Chats, conversation.Chat{UserID: "u2", Text: "two", CreatedAt: time.Now()})
	if err := repo.UpdateWithVersion(ctx, second); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	// A fresh read carries the new version and succeeds.
	fresh, err := repo.GetByRoomID(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	fresh.Chats = append(fresh.Chats, conversation.Chat{UserID: "u2", Text: "two", CreatedAt: time.Now()})
	if err := repo.UpdateWithVersion(ctx, fresh); err != nil {
		t.Fatalf("retry update: %v", err)
	}

	final, err := repo.GetByRoomID(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(final.Chats) != 2 {
		t.Fatalf("chats = %d, want 2 (no lost update)", len(final.Chats))
	}
}

func TestUpdateWithVersionIncrements(t *testing.T) {
	repo := NewInMemoryConversationRepo()
	ctx := context.Background()
	c := seedConversation(t, repo, "c1", "room-1", "u1")

	if c.Version != 0 {
		t.Fatalf("fresh version = %d, want 0", c.Version)
	}
	if err := repo.UpdateWithVersion(ctx, c); err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.Version != 1 {
		t.Fatalf("version after save = %d, want 1", c.Version)
	}
}

func TestFindByExactMembers(t *testing.T) {
	repo := NewInMemoryConversationRepo()
	ctx := context.Background()
	seedConversation(t, repo, "c1", "room-1", "u1", "u2")
	seedConversation(t, repo, "c2", "room-2", "u1", "u2", "u3")

	found, err := repo.FindByExactMembers(ctx, []string{"u2", "u1"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.RoomID != "room-1" {
		t.Fatalf("found %s, want room-1", found.RoomID)
	}

	// A subset of a bigger conversation is not a match.
	if _, err := repo.FindByExactMembers(ctx, []string{"u1", "u3"}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteWithVersion(t *testing.T) {
	repo := NewInMemoryConversationRepo()
	ctx := context.Background()
	c := seedConversation(t, repo, "c1", "room-1", "u1")

	if err := repo.DeleteWithVersion(ctx, c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByRoomID(ctx, "room-1"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.DeleteWithVersion(ctx, c); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("double delete should report not found, got %v", err)
	}
}

func TestDeleteWithVersionConflict(t *testing.T) {
	repo := NewInMemoryConversationRepo()
	ctx := context.Background()
	seedConversation(t, repo, "c1", "room-1", "u1")

	stale, err := repo.GetByRoomID(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// A write between the read and the delete bumps the version; the delete
	// with the stale snapshot must not go through.
	fresh, err := repo.GetByRoomID(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	fresh.Chats = append(fresh.Chats, conversation.Chat{UserID: "u1", Text: "still here", CreatedAt: time.Now()})
	if err := repo.UpdateWithVersion(ctx, fresh); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := repo.DeleteWithVersion(ctx, stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	if _, err := repo.GetByRoomID(ctx, "room-1"); err != nil {
		t.Fatalf("conversation must survive the stale delete: %v", err)
	}

	if err := repo.DeleteWithVersion(ctx, fresh); err != nil {
		t.Fatalf("delete with fresh version: %v", err)
	}
}
