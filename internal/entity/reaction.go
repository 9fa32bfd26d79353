package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReactionKind is the closed set of values accepted at the transport
// boundary. KindNone is a request to clear; it is never stored.
type ReactionKind string

const (
	KindLike    ReactionKind = "LIKE"
	KindDislike ReactionKind = "DISLIKE"
	KindNone    ReactionKind = "NONE"
)

// Valid rejects anything outside the enumeration; unknown values are never
// coerced.
func (k ReactionKind) Valid() bool {
	switch k {
	case KindLike, KindDislike, KindNone:
		return true
	}
	return false
}

// Stored reports whether the kind corresponds to a persisted record.
func (k ReactionKind) Stored() bool {
	return k == KindLike || k == KindDislike
}

// Reaction maps (user, post) to a kind. At most one row per pair: the
// relation is a mapping, not a log.
type Reaction struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_reactions_unique,priority:1" json:"user_id"`
	User      User         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PostID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_reactions_unique,priority:2;index:idx_reactions_post" json:"post_id"`
	Post      Post         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Kind      ReactionKind `gorm:"size:10;not null" json:"kind"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Reaction) TableName() string {
	return "reactions"
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}
