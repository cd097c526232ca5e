package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dimasfh/sociagram/internal/domain/user"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetBySlug(ctx context.Context, slug string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	List(ctx context.Context) ([]*user.User, error)
	Search(ctx context.Context, query string, limit int) ([]*user.User, error)
	Update(ctx context.Context, u *user.User) error
	SummariesByIDs(ctx context.Context, ids []string) (map[string]user.Summary, error)

	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	FollowerIDs(ctx context.Context, userID string) ([]string, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
}

type inMemoryUserRepo struct {
	mu      sync.RWMutex
	users   map[string]*user.User
	follows map[string]map[string]struct{} // followerID -> set of followeeIDs
}

func NewInMemoryUserRepo() UserRepository {
	return &inMemoryUserRepo{
		users:   make(map[string]*user.User),
		follows: make(map[string]map[string]struct{}),
	}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return ErrUserAlreadyExists
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.findBy(func(u *user.User) bool { return u.Username == username })
}

func (r *inMemoryUserRepo) GetBySlug(ctx context.Context, slug string) (*user.User, error) {
	return r.findBy(func(u *user.User) bool { return u.Slug == slug })
}

func (r *inMemoryUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findBy(func(u *user.User) bool { return u.Email == email })
}

func (r *inMemoryUserRepo) findBy(match func(*user.User) bool) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *inMemoryUserRepo) List(ctx context.Context) ([]*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*user.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *inMemoryUserRepo) Search(ctx context.Context, query string, limit int) ([]*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(query)
	var out []*user.User
	for _, u := range r.users {
		if strings.Contains(strings.ToLower(u.Username), needle) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *inMemoryUserRepo) Update(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) SummariesByIDs(ctx context.Context, ids []string) (map[string]user.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]user.Summary, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

func (r *inMemoryUserRepo) Follow(ctx context.Context, followerID, followeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[followerID]; !ok {
		return ErrUserNotFound
	}
	if _, ok := r.users[followeeID]; !ok {
		return ErrUserNotFound
	}
	set, ok := r.follows[followerID]
	if !ok {
		set = make(map[string]struct{})
		r.follows[followerID] = set
	}
	set[followeeID] = struct{}{}
	return nil
}

func (r *inMemoryUserRepo) Unfollow(ctx context.Context, followerID, followeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.follows[followerID]; ok {
		delete(set, followeeID)
	}
	return nil
}

func (r *inMemoryUserRepo) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.follows[followerID]
	if !ok {
		return false, nil
	}
	_, following := set[followeeID]
	return following, nil
}

func (r *inMemoryUserRepo) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for follower, set := range r.follows {
		if _, ok := set[userID]; ok {
			out = append(out, follower)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *inMemoryUserRepo) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.follows[userID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
