package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dimasfh/sociagram/internal/domain/conversation"
)

type gormConversationRepo struct {
	db *gorm.DB
}

func NewGormConversationRepo(db *gorm.DB) (ConversationRepository, error) {
	if err := db.AutoMigrate(&conversation.Conversation{}, &conversation.Member{}, &conversation.Chat{}); err != nil {
		return nil, err
	}
	return &gormConversationRepo{db: db}, nil
}

func (r *gormConversationRepo) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Members").
		Preload("Chats", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}

func (r *gormConversationRepo) Create(ctx context.Context, c *conversation.Conversation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *gormConversationRepo) List(ctx context.Context) ([]*conversation.Conversation, error) {
	var out []*conversation.Conversation
	err := r.withRelations(ctx).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (r *gormConversationRepo) GetByRoomID(ctx context.Context, roomID string) (*conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.withRelations(ctx).Where("room_id = ?", roomID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByExactMembers narrows candidates to conversations containing the first
// member, then compares full member sets in memory. Member lists are small, so
// the in-memory compare beats a grouped SQL membership count for clarity.
func (r *gormConversationRepo) FindByExactMembers(ctx context.Context, memberIDs []string) (*conversation.Conversation, error) {
	if len(memberIDs) == 0 {
		return nil, ErrConversationNotFound
	}
	candidates, err := r.ListByMember(ctx, memberIDs[0])
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if conversation.SameMemberSet(c, memberIDs) {
			return c, nil
		}
	}
	return nil, ErrConversationNotFound
}

func (r *gormConversationRepo) ListByMember(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&conversation.Member{}).
		Where("user_id = ?", userID).
		Pluck("conversation_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*conversation.Conversation
	err = r.withRelations(ctx).Where("id IN ?", ids).Order("created_at ASC").Find(&out).Error
	return out, err
}

// UpdateWithVersion replaces the whole document inside one transaction,
// guarded by a compare-and-swap on the version column.
func (r *gormConversationRepo) UpdateWithVersion(ctx context.Context, c *conversation.Conversation) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&conversation.Conversation{}).
			Where("id = ? AND version = ?", c.ID, c.Version).
			Updates(map[string]any{"version": c.Version + 1, "room_id": c.RoomID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&conversation.Conversation{}).Where("id = ?", c.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrConversationNotFound
			}
			return ErrVersionConflict
		}

		if err := tx.Where("conversation_id = ?", c.ID).Delete(&conversation.Member{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", c.ID).Delete(&conversation.Chat{}).Error; err != nil {
			return err
		}
		for i := range c.Members {
			c.Members[i].ID = 0
			c.Members[i].ConversationID = c.ID
		}
		for i := range c.Chats {
			c.Chats[i].ID = 0
			c.Chats[i].ConversationID = c.ID
		}
		if len(c.Members) > 0 {
			if err := tx.Create(&c.Members).Error; err != nil {
				return err
			}
		}
		if len(c.Chats) > 0 {
			if err := tx.Create(&c.Chats).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.Version++
	return nil
}

// DeleteWithVersion removes the document only when the version column still
// matches, mirroring UpdateWithVersion's compare-and-swap.
func (r *gormConversationRepo) DeleteWithVersion(ctx context.Context, c *conversation.Conversation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND version = ?", c.ID, c.Version).Delete(&conversation.Conversation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&conversation.Conversation{}).Where("id = ?", c.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrConversationNotFound
			}
			return ErrVersionConflict
		}
		if err := tx.Where("conversation_id = ?", c.ID).Delete(&conversation.Member{}).Error; err != nil {
			return err
		}
		return tx.Where("conversation_id = ?", c.ID).Delete(&conversation.Chat{}).Error
	})
}
