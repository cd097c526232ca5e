package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dimasfh/sociagram/internal/domain/post"
)

type PostRepository interface {
	Create(ctx context.Context, p *post.Post) error
	// GetByID returns the post with contents, likes, saves and comments loaded.
	GetByID(ctx context.Context, id string) (*post.Post, error)
	List(ctx context.Context, limit, offset int) ([]*post.Post, error)
	Count(ctx context.Context) (int64, error)
	ListByAuthors(ctx context.Context, authorIDs []string, limit, offset int) ([]*post.Post, error)
	CountByAuthors(ctx context.Context, authorIDs []string) (int64, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*post.Post, error)
	ListSavedBy(ctx context.Context, userID string) ([]*post.Post, error)
	Delete(ctx context.Context, id string) error

	Like(ctx context.Context, postID, userID string) error
	Unlike(ctx context.Context, postID, userID string) error
	SavePost(ctx context.Context, postID, userID string) error
	UnsavePost(ctx context.Context, postID, userID string) error
	AddComment(ctx context.Context, c *post.Comment) error
}

type inMemoryPostRepo struct {
	mu    sync.RWMutex
	posts map[string]*post.Post
}

func NewInMemoryPostRepo() PostRepository {
	return &inMemoryPostRepo{posts: make(map[string]*post.Post)}
}

func clonePost(p *post.Post) *post.Post {
	cp := *p
	cp.Contents = append([]post.Content(nil), p.Contents...)
	cp.Likes = append([]post.Like(nil), p.Likes...)
	cp.Saves = append([]post.Save(nil), p.Saves...)
	cp.Comments = append([]post.Comment(nil), p.Comments...)
	return &cp
}

func (r *inMemoryPostRepo) Create(ctx context.Context, p *post.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[p.ID] = clonePost(p)
	return nil
}

func (r *inMemoryPostRepo) GetByID(ctx context.Context, id string) (*post.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return clonePost(p), nil
}

func (r *inMemoryPostRepo) sortedLocked(match func(*post.Post) bool) []*post.Post {
	var out []*post.Post
	for _, p := range r.posts {
		if match(p) {
			out = append(out, clonePost(p))
		}
	}
	// Newest first, the feed order.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func page(posts []*post.Post, limit, offset int) []*post.Post {
	if offset >= len(posts) {
		return nil
	}
	posts = posts[offset:]
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts
}

func (r *inMemoryPostRepo) List(ctx context.Context, limit, offset int) ([]*post.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return page(r.sortedLocked(func(*post.Post) bool { return true }), limit, offset), nil
}

func (r *inMemoryPostRepo) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.posts)), nil
}

func (r *inMemoryPostRepo) ListByAuthors(ctx context.Context, authorIDs []string, limit, offset int) ([]*post.Post, error) {
	set := make(map[string]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		set[id] = struct{}{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	posts := r.sortedLocked(func(p *post.Post) bool {
		_, ok := set[p.PostedByID]
		return ok
	})
	return page(posts, limit, offset), nil
}

func (r *inMemoryPostRepo) CountByAuthors(ctx context.Context, authorIDs []string) (int64, error) {
	set := make(map[string]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		set[id] = struct{}{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, p := range r.posts {
		if _, ok := set[p.PostedByID]; ok {
			n++
		}
	}
	return n, nil
}

func (r *inMemoryPostRepo) ListByAuthor(ctx context.Context, authorID string) ([]*post.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(p *post.Post) bool { return p.PostedByID == authorID }), nil
}

func (r *inMemoryPostRepo) ListSavedBy(ctx context.Context, userID string) ([]*post.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(p *post.Post) bool {
		for _, s := range p.Saves {
			if s.UserID == userID {
				return true
			}
		}
		return false
	}), nil
}

func (r *inMemoryPostRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return ErrPostNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *inMemoryPostRepo) Like(ctx context.Context, postID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return ErrPostNotFound
	}
	for _, l := range p.Likes {
		if l.UserID == userID {
			return nil
		}
	}
	p.Likes = append(p.Likes, post.Like{PostID: postID, UserID: userID, CreatedAt: time.Now()})
	return nil
}

func (r *inMemoryPostRepo) Unlike(ctx context.Context, postID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return ErrPostNotFound
	}
	for i, l := range p.Likes {
		if l.UserID == userID {
			p.Likes = append(p.Likes[:i], p.Likes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *inMemoryPostRepo) SavePost(ctx context.Context, postID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return ErrPostNotFound
	}
	for _, s := range p.Saves {
		if s.UserID == userID {
			return nil
		}
	}
	p.Saves = append(p.Saves, post.Save{PostID: postID, UserID: userID, CreatedAt: time.Now()})
	return nil
}

func (r *inMemoryPostRepo) UnsavePost(ctx context.Context, postID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return ErrPostNotFound
	}
	for i, s := range p.Saves {
		if s.UserID == userID {
			p.Saves = append(p.Saves[:i], p.Saves[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *inMemoryPostRepo) AddComment(ctx context.Context, c *post.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[c.PostID]
	if !ok {
		return ErrPostNotFound
	}
	c.ID = uint(len(p.Comments) + 1)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	p.Comments = append(p.Comments, *c)
	return nil
}
