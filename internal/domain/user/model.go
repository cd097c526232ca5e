package user

import "time"

type User struct {
	ID             string     `gorm:"primaryKey" json:"_id"`
	FullName       string     `gorm:"not null" json:"fullname"`
	Username       string     `gorm:"uniqueIndex;not null" json:"username"`
	Slug           string     `gorm:"index" json:"slug"`
	Email          string     `gorm:"uniqueIndex;not null" json:"email"`
	Password       string     `gorm:"not null" json:"-"`
	ProfilePicture string     `gorm:"default:default_profile_picture.png" json:"profilePicture"`
	ProfileBio     string     `json:"profileBio,omitempty"`
	Birthday       *time.Time `json:"birthday,omitempty"`
	Address        string     `json:"address,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// DefaultProfilePicture is what a profile falls back to when its picture is
// removed.
const DefaultProfilePicture = "default_profile_picture.png"

// Follow is one edge of the follow graph: follower follows followee.
type Follow struct {
	FollowerID string    `gorm:"primaryKey" json:"followerId"`
	FolloweeID string    `gorm:"primaryKey" json:"followeeId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Follow) TableName() string { return "user_follows" }

// Summary is the trimmed user shape embedded in posts, comments and
// conversation payloads.
type Summary struct {
	ID             string `json:"_id"`
	Username       string `json:"username"`
	FullName       string `json:"fullname,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Slug           string `json:"slug,omitempty"`
}

func (u *User) Summary() Summary {
	return Summary{
		ID:             u.ID,
		Username:       u.Username,
		FullName:       u.FullName,
		ProfilePicture: u.ProfilePicture,
		Slug:           u.Slug,
	}
}
