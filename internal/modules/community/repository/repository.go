package repository

import (
	"context"

	"github.com/communelab/commune/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommunityRepository interface {
	Create(ctx context.Context, community *entity.Community) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Community, error)
	IsMember(ctx context.Context, userID, communityID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, userID, communityID uuid.UUID) error
	RemoveMember(ctx context.Context, userID, communityID uuid.UUID) error
}

type communityRepository struct {
	db *gorm.DB
}

func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

func (r *communityRepository) Create(ctx context.Context, community *entity.Community) error {
	return r.db.WithContext(ctx).Create(community).Error
}

func (r *communityRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Community, error) {
	var community entity.Community
	if err := r.db.WithContext(ctx).First(&community, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *communityRepository) IsMember(ctx context.Context, userID, communityID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.CommunityMember{}).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Count(&count).Error
	return count > 0, err
}

func (r *communityRepository) AddMember(ctx context.Context, userID, communityID uuid.UUID) error {
	// Idempotent: joining twice leaves a single membership row
	var existing []entity.CommunityMember
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Limit(1).
		Find(&existing).Error; err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	member := entity.CommunityMember{UserID: userID, CommunityID: communityID}
	return r.db.WithContext(ctx).Create(&member).Error
}

func (r *communityRepository) RemoveMember(ctx context.Context, userID, communityID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Delete(&entity.CommunityMember{}).Error
}
