package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimasfh/sociagram/internal/app/repositories"
	"github.com/dimasfh/sociagram/internal/domain/conversation"
	"github.com/dimasfh/sociagram/internal/domain/user"
	"github.com/dimasfh/sociagram/pkg/logger"
)

func newConversationFixture(t *testing.T, userIDs ...string) (*ConversationService, repositories.ConversationRepository) {
	t.Helper()
	users := repositories.NewInMemoryUserRepo()
	for _, id := range userIDs {
		u := &user.User{ID: id, FullName: id, Username: id, Slug: id, Email: id + "@example.com", Password: "x"}
		if err := users.Create(context.Background(), u); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
	}
	conversations := repositories.NewInMemoryConversationRepo()
	return NewConversationService(conversations, users, logger.Noop), conversations
}

func TestConversationCreateValidation(t *testing.T) {
	svc, _ := newConversationFixture(t, "u1")

	_, err := svc.Create(context.Background(), "u1", CreateConversationInput{})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := "please add all required fields; *roomId *members *message"
	if vErr.Error() != want {
		t.Fatalf("error = %q, want %q", vErr.Error(), want)
	}
}

func TestConversationCreateThenRejoin(t *testing.T) {
	svc, repo := newConversationFixture(t, "u1", "u2")
	ctx := context.Background()

	first, err := svc.Create(ctx, "u1", CreateConversationInput{
		RoomID:  "room-1",
		Members: []string{"u2"},
		Message: "hi",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(first.Members) != 2 || len(first.Chats) != 1 {
		t.Fatalf("members=%d chats=%d, want 2 and 1", len(first.Members), len(first.Chats))
	}

	joinedBefore := first.FindMember("u1").JoinedAt
	time.Sleep(5 * time.Millisecond)

	// Same member set, different order, different roomId: must rejoin, not
	// create a second document.
	second, err := svc.Create(ctx, "u1", CreateConversationInput{
		RoomID:  "room-other",
		Members: []string{"u1", "u2"},
		Message: "hi again",
	})
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("rejoin created a new conversation")
	}
	if len(second.Chats) != 2 {
		t.Fatalf("chats = %d, want 2", len(second.Chats))
	}
	if !second.FindMember("u1").JoinedAt.After(joinedBefore) {
		t.Fatalf("joinedAt was not reset on rejoin")
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("conversations = %d, want 1", len(all))
	}
}

func TestConversationSendMessage(t *testing.T) {
	svc, _ := newConversationFixture(t, "u1", "u2")
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", CreateConversationInput{RoomID: "room-1", Members: []string{"u2"}, Message: "hi"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	conv, err := svc.SendMessage(ctx, "u2", SendMessageInput{RoomID: "room-1", Text: "hello"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(conv.Chats) != 2 {
		t.Fatalf("chats = %d, want 2", len(conv.Chats))
	}
	last := conv.Chats[len(conv.Chats)-1]
	if last.UserID != "u2" || last.Text != "hello" {
		t.Fatalf("unexpected chat: %+v", last)
	}

	if _, err := svc.SendMessage(ctx, "u1", SendMessageInput{RoomID: "no-such-room", Text: "x"}); !errors.Is(err, repositories.ErrConversationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	var vErr *ValidationError
	if _, err := svc.SendMessage(ctx, "u1", SendMessageInput{}); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConversationLeaveSoftThenHardDelete(t *testing.T) {
	svc, repo := newConversationFixture(t, "u1", "u2")
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", CreateConversationInput{RoomID: "room-1", Members: []string{"u2"}, Message: "hi"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// u1 leaves: u2 is still active, so the document survives with u1 marked.
	if err := svc.Leave(ctx, "u1", "room-1"); err != nil {
		t.Fatalf("first leave: %v", err)
	}
	conv, err := repo.GetByRoomID(ctx, "room-1")
	if err != nil {
		t.Fatalf("get after soft leave: %v", err)
	}
	if !conv.FindMember("u1").IsLeave {
		t.Fatalf("u1 should be marked left")
	}
	if conv.FindMember("u2").IsLeave {
		t.Fatalf("u2 should still be active")
	}

	// u2 was the last active member: the document goes away entirely.
	if err := svc.Leave(ctx, "u2", "room-1"); err != nil {
		t.Fatalf("second leave: %v", err)
	}
	if _, err := repo.GetByRoomID(ctx, "room-1"); !errors.Is(err, repositories.ErrConversationNotFound) {
		t.Fatalf("conversation should be deleted, got %v", err)
	}
}

func TestConversationLeaveUnknownRoom(t *testing.T) {
	svc, _ := newConversationFixture(t, "u1")
	if err := svc.Leave(context.Background(), "u1", "nope"); !errors.Is(err, repositories.ErrConversationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConversationJoinHorizon(t *testing.T) {
	svc, _ := newConversationFixture(t, "u1", "u2")
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", CreateConversationInput{RoomID: "room-1", Members: []string{"u2"}, Message: "early"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SendMessage(ctx, "u2", SendMessageInput{RoomID: "room-1", Text: "before rejoin"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := svc.Leave(ctx, "u1", "room-1"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	// Rejoin resets u1's horizon; only chats from here on are visible to u1.
	if _, err := svc.Create(ctx, "u1", CreateConversationInput{RoomID: "room-1", Members: []string{"u2"}, Message: "back"}); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if _, err := svc.SendMessage(ctx, "u2", SendMessageInput{RoomID: "room-1", Text: "after rejoin"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	viewsU1, err := svc.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list u1: %v", err)
	}
	if len(viewsU1) != 1 {
		t.Fatalf("u1 conversations = %d, want 1", len(viewsU1))
	}
	for _, chat := range viewsU1[0].Chats {
		if chat.Text == "early" || chat.Text == "before rejoin" {
			t.Fatalf("u1 sees chat from before rejoin: %q", chat.Text)
		}
	}
	if len(viewsU1[0].Chats) != 2 {
		t.Fatalf("u1 chats = %d, want 2", len(viewsU1[0].Chats))
	}

	// u2 joined at creation and sees the whole history.
	viewsU2, err := svc.ListForUser(ctx, "u2")
	if err != nil {
		t.Fatalf("list u2: %v", err)
	}
	if len(viewsU2[0].Chats) != 4 {
		t.Fatalf("u2 chats = %d, want 4", len(viewsU2[0].Chats))
	}
}

func TestConversationGetByRoomIDPublicRead(t *testing.T) {
	svc, _ := newConversationFixture(t, "u1", "u2", "outsider")
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", CreateConversationInput{RoomID: "room-1", Members: []string{"u2"}, Message: "hi"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A non-member fetch returns the document, not a permission error.
	view, err := svc.GetByRoomID(ctx, "outsider", "room-1")
	if err != nil {
		t.Fatalf("non-member get: %v", err)
	}
	if view.RoomID != "room-1" || len(view.Chats) != 1 {
		t.Fatalf("unexpected view for non-member: %+v", view)
	}

	// Anonymous callers get the same document.
	anon, err := svc.GetByRoomID(ctx, "", "room-1")
	if err != nil {
		t.Fatalf("anonymous get: %v", err)
	}
	if anon.ID != view.ID {
		t.Fatalf("anonymous view differs: %s vs %s", anon.ID, view.ID)
	}

	if _, err := svc.GetByRoomID(ctx, "outsider", "no-such-room"); !errors.Is(err, repositories.ErrConversationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConversationMemberGetTrimsHorizon(t *testing.T) {
	svc, _ := newConversationFixture(t, "u1", "u2")
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", CreateConversationInput{RoomID: "room-1", Members: []string{"u2"}, Message: "early"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Leave(ctx, "u1", "room-1"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := svc.Create(ctx, "u1", CreateConversationInput{RoomID: "room-1", Members: []string{"u2"}, Message: "back"}); err != nil {
		t.Fatalf("rejoin: %v", err)
	}

	// The rejoined member only sees chats from the new horizon on; a
	// non-member still sees the full log.
	member, err := svc.GetByRoomID(ctx, "u1", "room-1")
	if err != nil {
		t.Fatalf("member get: %v", err)
	}
	if len(member.Chats) != 1 || member.Chats[0].Text != "back" {
		t.Fatalf("member chats = %+v, want only the rejoin message", member.Chats)
	}
	outsider, err := svc.GetByRoomID(ctx, "someone-else", "room-1")
	if err != nil {
		t.Fatalf("outsider get: %v", err)
	}
	if len(outsider.Chats) != 2 {
		t.Fatalf("outsider chats = %d, want 2", len(outsider.Chats))
	}
}

// interruptedDeleteRepo appends a chat between the service's read and its
// delete, the classic lost-update interleaving.
type interruptedDeleteRepo struct {
	repositories.ConversationRepository
	interrupted bool
}

func (r *interruptedDeleteRepo) DeleteWithVersion(ctx context.Context, c *conversation.Conversation) error {
	if !r.interrupted {
		r.interrupted = true
		fresh, err := r.ConversationRepository.GetByRoomID(ctx, c.RoomID)
		if err != nil {
			return err
		}
		fresh.Chats = append(fresh.Chats, conversation.Chat{UserID: "u2", Text: "wait", CreatedAt: time.Now()})
		if err := r.ConversationRepository.UpdateWithVersion(ctx, fresh); err != nil {
			return err
		}
	}
	return r.ConversationRepository.DeleteWithVersion(ctx, c)
}

func TestConversationLeaveDeleteRetriesOnConcurrentWrite(t *testing.T) {
	users := repositories.NewInMemoryUserRepo()
	for _, id := range []string{"u1", "u2"} {
		u := &user.User{ID: id, FullName: id, Username: id, Slug: id, Email: id + "@example.com", Password: "x"}
		if err := users.Create(context.Background(), u); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
	}
	repo := &interruptedDeleteRepo{ConversationRepository: repositories.NewInMemoryConversationRepo()}
	svc := NewConversationService(repo, users, logger.Noop)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", CreateConversationInput{RoomID: "room-1", Members: []string{"u2"}, Message: "hi"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Leave(ctx, "u2", "room-1"); err != nil {
		t.Fatalf("soft leave: %v", err)
	}

	// u1 is the last active member; its delete races the interleaved send and
	// must retry with a fresh read instead of wiping the newer version blind.
	if err := svc.Leave(ctx, "u1", "room-1"); err != nil {
		t.Fatalf("hard leave: %v", err)
	}
	if !repo.interrupted {
		t.Fatalf("interleaved write never ran")
	}
	if _, err := repo.GetByRoomID(ctx, "room-1"); !errors.Is(err, repositories.ErrConversationNotFound) {
		t.Fatalf("conversation should be deleted after the retry, got %v", err)
	}
}

func TestConversationGetByMembers(t *testing.T) {
	svc, _ := newConversationFixture(t, "u1", "u2", "u3")
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", CreateConversationInput{RoomID: "room-1", Members: []string{"u2"}, Message: "hi"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Requester is implied in the lookup set.
	found, err := svc.GetByMembers(ctx, "u1", []string{"u2"})
	if err != nil {
		t.Fatalf("get by members: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("found %s, want %s", found.ID, created.ID)
	}

	if _, err := svc.GetByMembers(ctx, "u1", []string{"u3"}); !errors.Is(err, repositories.ErrConversationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
