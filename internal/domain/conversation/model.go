package conversation

import (
	"sort"
	"time"
)

// Conversation is a chat room document. Version is the optimistic-concurrency
// token: every save compares and increments it, so two handlers racing on the
// same document cannot silently overwrite each other.
type Conversation struct {
	ID        string    `gorm:"primaryKey" json:"_id"`
	RoomID    string    `gorm:"uniqueIndex;not null" json:"roomId"`
	Version   int64     `gorm:"not null;default:0" json:"-"`
	Members   []Member  `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"members"`
	Chats     []Chat    `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"chats"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Member is one participant. IsLeave marks a soft-leave: the row stays so the
// member can rejoin with a fresh join horizon.
type Member struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	ConversationID string    `gorm:"index;not null" json:"-"`
	UserID         string    `gorm:"index;not null" json:"userId"`
	JoinedAt       time.Time `json:"join"`
	IsLeave        bool      `json:"isLeave"`
}

func (Member) TableName() string { return "conversation_members" }

type Chat struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	ConversationID string    `gorm:"index;not null" json:"-"`
	UserID         string    `gorm:"not null" json:"userId"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (Chat) TableName() string { return "conversation_chats" }

func (c *Conversation) MemberIDs() []string {
	ids := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func (c *Conversation) FindMember(userID string) *Member {
	for i := range c.Members {
		if c.Members[i].UserID == userID {
			return &c.Members[i]
		}
	}
	return nil
}

// ActiveOthers counts members that have not left, excluding userID.
func (c *Conversation) ActiveOthers(userID string) int {
	n := 0
	for _, m := range c.Members {
		if !m.IsLeave && m.UserID != userID {
			n++
		}
	}
	return n
}

// SameMemberSet reports whether the conversation's member set equals ids,
// order-independent.
func SameMemberSet(c *Conversation, ids []string) bool {
	a := append([]string(nil), c.MemberIDs()...)
	b := append([]string(nil), ids...)
	if len(a) != len(b) {
		return false
	}
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
