package post

import (
	"time"

	"github.com/dimasfh/sociagram/internal/domain/user"
)

type Post struct {
	ID          string    `gorm:"primaryKey" json:"_id"`
	ContentType string    `json:"contentType,omitempty"`
	Caption     string    `json:"caption,omitempty"`
	PostedByID  string    `gorm:"index;not null" json:"-"`
	Contents    []Content `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Likes       []Like    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Saves       []Save    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Comments    []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Content is one stored media object belonging to a post. Key is the object
// key in storage; URL is the public location handed to clients.
type Content struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	PostID string `gorm:"index;not null" json:"-"`
	Key    string `gorm:"not null" json:"-"`
	URL    string `gorm:"not null" json:"url"`
}

func (Content) TableName() string { return "post_contents" }

type Like struct {
	PostID    string    `gorm:"primaryKey" json:"postId"`
	UserID    string    `gorm:"primaryKey" json:"userId"`
	CreatedAt time.Time `json:"-"`
}

func (Like) TableName() string { return "post_likes" }

// Save records a user bookmarking a post.
type Save struct {
	PostID    string    `gorm:"primaryKey" json:"postId"`
	UserID    string    `gorm:"primaryKey" json:"userId"`
	CreatedAt time.Time `json:"-"`
}

func (Save) TableName() string { return "user_saved_posts" }

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	PostID    string    `gorm:"index;not null" json:"postId"`
	UserID    string    `gorm:"not null" json:"-"`
	Comment   string    `gorm:"not null" json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Comment) TableName() string { return "post_comments" }

// View is the serialized post with its references populated, the shape the
// original API returns from every post endpoint.
type View struct {
	ID            string        `json:"_id"`
	ContentType   string        `json:"contentType,omitempty"`
	Caption       string        `json:"caption,omitempty"`
	Content       []string      `json:"content"`
	PostedBy      user.Summary  `json:"postedBy"`
	Likes         []user.Summary `json:"likes"`
	SavedBy       []user.Summary `json:"savedBy"`
	Comments      []CommentView `json:"comments"`
	TotalLikes    int           `json:"totalLikes"`
	TotalComments int           `json:"totalComments"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type CommentView struct {
	User      user.Summary `json:"user"`
	Comment   string       `json:"comment"`
	CreatedAt time.Time    `json:"createdAt"`
}
