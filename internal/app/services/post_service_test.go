package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/dimasfh/sociagram/internal/app/repositories"
	"github.com/dimasfh/sociagram/internal/domain/user"
	"github.com/dimasfh/sociagram/pkg/logger"
	"github.com/dimasfh/sociagram/pkg/storage"
)

type fakeStorage struct {
	objects map[string][]byte
	failPut bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) PutObject(ctx context.Context, in storage.UploadInput) (string, error) {
	if f.failPut {
		return "", errors.New("storage down")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return "", err
	}
	f.objects[in.Key] = data
	return "http://cdn.local/" + in.Key, nil
}

func (f *fakeStorage) DeleteObject(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func newPostFixture(t *testing.T, userIDs ...string) (*PostService, *fakeStorage, repositories.UserRepository) {
	t.Helper()
	users := repositories.NewInMemoryUserRepo()
	for _, id := range userIDs {
		u := &user.User{ID: id, FullName: id, Username: id, Slug: id, Email: id + "@example.com", Password: "x"}
		if err := users.Create(context.Background(), u); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
	}
	store := newFakeStorage()
	svc := NewPostService(repositories.NewInMemoryPostRepo(), users, store, nil, logger.Noop)
	return svc, store, users
}

// multipartFiles builds real multipart file headers the way an HTTP handler
// would receive them.
func multipartFiles(t *testing.T, names ...string) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := w.CreateFormFile("contents", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("file-content-" + name)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	reader := multipart.NewReader(&buf, w.Boundary())
	form, err := reader.ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	return form.File["contents"]
}

func TestUploadCreatesPost(t *testing.T) {
	svc, store, _ := newPostFixture(t, "author")
	ctx := context.Background()

	view, err := svc.Upload(ctx, "author", UploadInput{
		Caption: "sunset",
		Files:   multipartFiles(t, "a.jpg", "b.png"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if view.Caption != "sunset" || view.ContentType != "image" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if len(view.Content) != 2 {
		t.Fatalf("content urls = %d, want 2", len(view.Content))
	}
	if view.PostedBy.ID != "author" {
		t.Fatalf("postedBy = %s, want author", view.PostedBy.ID)
	}
	if len(store.objects) != 2 {
		t.Fatalf("stored objects = %d, want 2", len(store.objects))
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	svc, store, _ := newPostFixture(t, "author")

	_, err := svc.Upload(context.Background(), "author", UploadInput{
		Files: multipartFiles(t, "malware.exe"),
	})
	if !errors.Is(err, ErrUnsupportedMediaType) {
		t.Fatalf("expected unsupported media type, got %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatalf("no objects should be stored, got %d", len(store.objects))
	}
}

func TestUploadRollsBackOnMixedFailure(t *testing.T) {
	svc, store, _ := newPostFixture(t, "author")

	// Second file is rejected after the first was already stored; the stored
	// object must be removed again.
	_, err := svc.Upload(context.Background(), "author", UploadInput{
		Files: multipartFiles(t, "ok.jpg", "bad.gif"),
	})
	if !errors.Is(err, ErrUnsupportedMediaType) {
		t.Fatalf("expected unsupported media type, got %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatalf("rollback left %d objects behind", len(store.objects))
	}
}

func TestUploadRequiresFiles(t *testing.T) {
	svc, _, _ := newPostFixture(t, "author")
	var vErr *ValidationError
	if _, err := svc.Upload(context.Background(), "author", UploadInput{}); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFeedPagination(t *testing.T) {
	svc, _, _ := newPostFixture(t, "author")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Upload(ctx, "author", UploadInput{Files: multipartFiles(t, "p.jpg")}); err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}

	page, err := svc.Feed(ctx, 2, 1)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(page.Posts) != 2 {
		t.Fatalf("page posts = %d, want 2", len(page.Posts))
	}
	if page.TotalPosts != 5 || page.MaxPages != 3 {
		t.Fatalf("total=%d maxPages=%d, want 5 and 3", page.TotalPosts, page.MaxPages)
	}

	last, err := svc.Feed(ctx, 2, 3)
	if err != nil {
		t.Fatalf("feed last page: %v", err)
	}
	if len(last.Posts) != 1 {
		t.Fatalf("last page posts = %d, want 1", len(last.Posts))
	}
}

func TestFollowingFeedIncludesOwnAndFollowed(t *testing.T) {
	svc, _, users := newPostFixture(t, "me", "friend", "stranger")
	ctx := context.Background()

	for _, author := range []string{"me", "friend", "stranger"} {
		if _, err := svc.Upload(ctx, author, UploadInput{Files: multipartFiles(t, "p.jpg")}); err != nil {
			t.Fatalf("upload by %s: %v", author, err)
		}
	}
	if err := users.Follow(ctx, "me", "friend"); err != nil {
		t.Fatalf("follow: %v", err)
	}

	page, err := svc.FollowingFeed(ctx, "me", 10, 1)
	if err != nil {
		t.Fatalf("following feed: %v", err)
	}
	if len(page.Posts) != 2 {
		t.Fatalf("posts = %d, want 2 (own + friend)", len(page.Posts))
	}
	for _, p := range page.Posts {
		if p.PostedBy.ID == "stranger" {
			t.Fatalf("stranger's post leaked into the following feed")
		}
	}
}

func TestLikeAndSaveToggles(t *testing.T) {
	svc, _, _ := newPostFixture(t, "author", "fan")
	ctx := context.Background()

	view, err := svc.Upload(ctx, "author", UploadInput{Files: multipartFiles(t, "p.jpg")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	msg, err := svc.LikeToggle(ctx, "fan", view.ID)
	if err != nil || msg != "The post has been liked" {
		t.Fatalf("like: msg=%q err=%v", msg, err)
	}
	msg, err = svc.LikeToggle(ctx, "fan", view.ID)
	if err != nil || msg != "The post has been unliked" {
		t.Fatalf("unlike: msg=%q err=%v", msg, err)
	}

	msg, err = svc.SaveToggle(ctx, "fan", view.ID)
	if err != nil || msg != "The post has been saved" {
		t.Fatalf("save: msg=%q err=%v", msg, err)
	}
	saved, err := svc.Saved(ctx, "fan")
	if err != nil {
		t.Fatalf("saved: %v", err)
	}
	if len(saved) != 1 || saved[0].ID != view.ID {
		t.Fatalf("saved = %+v, want the liked post", saved)
	}
	msg, err = svc.SaveToggle(ctx, "fan", view.ID)
	if err != nil || msg != "The post has been Unsaved" {
		t.Fatalf("unsave: msg=%q err=%v", msg, err)
	}
}

func TestDeleteOwnerOnly(t *testing.T) {
	svc, store, _ := newPostFixture(t, "author", "intruder")
	ctx := context.Background()

	view, err := svc.Upload(ctx, "author", UploadInput{Files: multipartFiles(t, "p.jpg")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.Delete(ctx, "intruder", view.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.Delete(ctx, "author", view.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatalf("stored objects = %d, want 0 after delete", len(store.objects))
	}
	if _, err := svc.Detail(ctx, view.ID); !errors.Is(err, repositories.ErrPostNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddComment(t *testing.T) {
	svc, _, _ := newPostFixture(t, "author", "fan")
	ctx := context.Background()

	view, err := svc.Upload(ctx, "author", UploadInput{Files: multipartFiles(t, "p.jpg")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	updated, err := svc.AddComment(ctx, "fan", view.ID, "nice shot")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if updated.TotalComments != 1 {
		t.Fatalf("totalComments = %d, want 1", updated.TotalComments)
	}
	if updated.Comments[0].User.ID != "fan" || updated.Comments[0].Comment != "nice shot" {
		t.Fatalf("unexpected comment: %+v", updated.Comments[0])
	}

	var vErr *ValidationError
	if _, err := svc.AddComment(ctx, "fan", view.ID, "   "); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"John Doe":       "john_doe",
		"  Mixed-Case.x ": "mixed_case_x",
		"under__scores":  "under_scores",
		"trailing--":     "trailing",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Slugify(strings.Repeat("-", 3)); got != "" {
		t.Fatalf("Slugify(dashes) = %q, want empty", got)
	}
}
