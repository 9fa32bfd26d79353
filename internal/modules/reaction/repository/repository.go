package repository

import (
	"context"

	"github.com/communelab/commune/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReactionRepository interface {
	// SetReaction applies the requested transition for one (user, post) pair
	// as a single atomic unit and returns the recounted score. KindNone
	// deletes the pair's record; LIKE/DISLIKE upserts it. Repeating the same
	// kind is a no-op in effect.
	SetReaction(ctx context.Context, userID, postID uuid.UUID, kind entity.ReactionKind) (int, error)
	// SetFavorite creates or deletes the favorite record to match the flag.
	// Idempotent; returns the resulting state.
	SetFavorite(ctx context.Context, userID, postID uuid.UUID, favorite bool) (bool, error)
	// GetUserReaction returns the stored kind for the pair, or KindNone.
	GetUserReaction(ctx context.Context, userID, postID uuid.UUID) (entity.ReactionKind, error)
	IsFavorited(ctx context.Context, userID, postID uuid.UUID) (bool, error)
	// CountScore recounts the post's score from the reaction records.
	CountScore(ctx context.Context, postID uuid.UUID) (int, error)
}

type reactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) SetReaction(ctx context.Context, userID, postID uuid.UUID, kind entity.ReactionKind) (int, error) {
	var score int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Locking the post row serializes concurrent writes for the same
		// item; the recount below then observes every committed record.
		if err := lockPost(tx, postID); err != nil {
			return err
		}

		if kind == entity.KindNone {
			if err := tx.Where("user_id = ? AND post_id = ?", userID, postID).
				Delete(&entity.Reaction{}).Error; err != nil {
				return err
			}
		} else {
			// Find with a slice to avoid "record not found" log noise
			var existing []entity.Reaction
			if err := tx.Where("user_id = ? AND post_id = ?", userID, postID).
				Limit(1).
				Find(&existing).Error; err != nil {
				return err
			}

			if len(existing) > 0 {
				if existing[0].Kind != kind {
					existing[0].Kind = kind
					if err := tx.Save(&existing[0]).Error; err != nil {
						return err
					}
				}
			} else {
				record := entity.Reaction{UserID: userID, PostID: postID, Kind: kind}
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}
		}

		// Recount from the records rather than adjusting the stored value:
		// coalesced clients skip intermediate states, so deltas derived from
		// what a client believed are not trustworthy.
		recounted, err := countScore(tx, postID)
		if err != nil {
			return err
		}
		score = recounted

		return tx.Model(&entity.Post{}).Where("id = ?", postID).
			UpdateColumn("score", score).Error
	})

	return score, err
}

func (r *reactionRepository) SetFavorite(ctx context.Context, userID, postID uuid.UUID, favorite bool) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []entity.Favorite
		if err := tx.Where("user_id = ? AND post_id = ?", userID, postID).
			Limit(1).
			Find(&existing).Error; err != nil {
			return err
		}

		switch {
		case favorite && len(existing) == 0:
			record := entity.Favorite{UserID: userID, PostID: postID}
			return tx.Create(&record).Error
		case !favorite && len(existing) > 0:
			return tx.Delete(&existing[0]).Error
		}
		// Already in the requested state
		return nil
	})

	return favorite, err
}

func (r *reactionRepository) GetUserReaction(ctx context.Context, userID, postID uuid.UUID) (entity.ReactionKind, error) {
	var records []entity.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Limit(1).
		Find(&records).Error
	if err != nil {
		return entity.KindNone, err
	}
	if len(records) == 0 {
		return entity.KindNone, nil
	}
	return records[0].Kind, nil
}

func (r *reactionRepository) IsFavorited(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Favorite{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	return count > 0, err
}

func (r *reactionRepository) CountScore(ctx context.Context, postID uuid.UUID) (int, error) {
	return countScore(r.db.WithContext(ctx), postID)
}

func countScore(tx *gorm.DB, postID uuid.UUID) (int, error) {
	var likes, dislikes int64

	if err := tx.Model(&entity.Reaction{}).
		Where("post_id = ? AND kind = ?", postID, entity.KindLike).
		Count(&likes).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&entity.Reaction{}).
		Where("post_id = ? AND kind = ?", postID, entity.KindDislike).
		Count(&dislikes).Error; err != nil {
		return 0, err
	}

	return int(likes - dislikes), nil
}

// lockPost takes a SELECT ... FOR UPDATE lock on the post row. SQLite has a
// single writer and rejects the clause, so it is only emitted on Postgres.
func lockPost(tx *gorm.DB, postID uuid.UUID) error {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var post entity.Post
	return q.Select("id").First(&post, "id = ?", postID).Error
}
