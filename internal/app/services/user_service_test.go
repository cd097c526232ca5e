package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dimasfh/sociagram/internal/app/repositories"
	"github.com/dimasfh/sociagram/internal/domain/user"
	"github.com/dimasfh/sociagram/pkg/logger"
)

func newUserFixture(t *testing.T, userIDs ...string) (*UserService, repositories.UserRepository, *fakeStorage) {
	t.Helper()
	users := repositories.NewInMemoryUserRepo()
	for _, id := range userIDs {
		u := &user.User{
			ID:             id,
			FullName:       id,
			Username:       id,
			Slug:           id,
			Email:          id + "@example.com",
			Password:       "x",
			ProfilePicture: user.DefaultProfilePicture,
		}
		if err := users.Create(context.Background(), u); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
	}
	store := newFakeStorage()
	svc := NewUserService(users, repositories.NewInMemoryPostRepo(), store, logger.Noop)
	return svc, users, store
}

func TestFollowUnfollow(t *testing.T) {
	svc, users, _ := newUserFixture(t, "alice", "bob")
	ctx := context.Background()

	if err := svc.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	following, err := users.IsFollowing(ctx, "alice", "bob")
	if err != nil || !following {
		t.Fatalf("alice should follow bob: following=%v err=%v", following, err)
	}

	if err := svc.Follow(ctx, "alice", "bob"); !errors.Is(err, ErrAlreadyFollowing) {
		t.Fatalf("expected already following, got %v", err)
	}
	if err := svc.Follow(ctx, "alice", "alice"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("self-follow must be forbidden, got %v", err)
	}
	if err := svc.Follow(ctx, "alice", "nobody"); !errors.Is(err, repositories.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}

	if err := svc.Unfollow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	if err := svc.Unfollow(ctx, "alice", "bob"); !errors.Is(err, ErrNotFollowing) {
		t.Fatalf("expected not following, got %v", err)
	}
}

func TestProfileAssembly(t *testing.T) {
	svc, _, _ := newUserFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	if err := svc.Follow(ctx, "bob", "alice"); err != nil {
		t.Fatalf("bob follows alice: %v", err)
	}
	if err := svc.Follow(ctx, "alice", "carol"); err != nil {
		t.Fatalf("alice follows carol: %v", err)
	}

	profile, err := svc.Profile(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.TotalFollowers != 1 || profile.Followers[0].ID != "bob" {
		t.Fatalf("followers = %+v, want [bob]", profile.Followers)
	}
	if profile.TotalFollowings != 1 || profile.Followings[0].ID != "carol" {
		t.Fatalf("followings = %+v, want [carol]", profile.Followings)
	}
	if !profile.IsFollowed {
		t.Fatalf("bob follows alice, IsFollowed must be true")
	}

	anonymous, err := svc.Profile(ctx, "alice", "")
	if err != nil {
		t.Fatalf("anonymous profile: %v", err)
	}
	if anonymous.IsFollowed {
		t.Fatalf("anonymous viewer cannot be following")
	}

	if _, err := svc.Profile(ctx, "ghost", ""); !errors.Is(err, repositories.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEditUpdatesSlug(t *testing.T) {
	svc, users, _ := newUserFixture(t, "alice", "bob")
	ctx := context.Background()

	u, err := svc.Edit(ctx, "alice", EditUserInput{Username: "Alice Wonder", ProfileBio: "explorer"})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if u.Username != "Alice Wonder" || u.Slug != "alice_wonder" {
		t.Fatalf("username=%q slug=%q", u.Username, u.Slug)
	}
	if u.ProfileBio != "explorer" {
		t.Fatalf("bio = %q", u.ProfileBio)
	}

	// Taking another user's username is rejected.
	if _, err := svc.Edit(ctx, "alice", EditUserInput{Username: "bob"}); !errors.Is(err, repositories.ErrUserAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	stored, err := users.GetByID(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Slug != "alice_wonder" {
		t.Fatalf("stored slug = %q", stored.Slug)
	}
}

func TestRemoveProfilePictureResetsDefault(t *testing.T) {
	svc, users, _ := newUserFixture(t, "alice")
	ctx := context.Background()

	seeded, err := users.GetByID(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	seeded.ProfilePicture = "http://cdn.local/custom.png"
	if err := users.Update(ctx, seeded); err != nil {
		t.Fatalf("update: %v", err)
	}

	u, err := svc.RemoveProfilePicture(ctx, "alice")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if u.ProfilePicture != user.DefaultProfilePicture {
		t.Fatalf("picture = %q, want default", u.ProfilePicture)
	}
}

func TestSearchUsers(t *testing.T) {
	svc, _, _ := newUserFixture(t, "alice", "alicia", "bob")
	ctx := context.Background()

	results, err := svc.Search(ctx, "ali", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	// Case does not matter.
	upper, err := svc.Search(ctx, "ALI", 10)
	if err != nil {
		t.Fatalf("uppercase search: %v", err)
	}
	if len(upper) != 2 {
		t.Fatalf("uppercase results = %d, want 2", len(upper))
	}

	empty, err := svc.Search(ctx, "   ", 10)
	if err != nil {
		t.Fatalf("blank search: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("blank search must return nothing, got %d", len(empty))
	}
}
