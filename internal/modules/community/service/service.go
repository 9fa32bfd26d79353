package community

import (
	"context"
	"errors"
	"fmt"

	"github.com/communelab/commune/internal/entity"
	"github.com/communelab/commune/internal/modules/community/repository"
	"github.com/communelab/commune/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommunityService interface {
	CreateCommunity(ctx context.Context, creatorID uuid.UUID, name, description string) (*entity.Community, error)
	GetCommunity(ctx context.Context, id uuid.UUID) (*entity.Community, error)
	Follow(ctx context.Context, userID, communityID uuid.UUID) error
	Unfollow(ctx context.Context, userID, communityID uuid.UUID) error
}

type communityService struct {
	repo repository.CommunityRepository
}

func NewCommunityService(repo repository.CommunityRepository) CommunityService {
	return &communityService{repo: repo}
}

func (s *communityService) CreateCommunity(ctx context.Context, creatorID uuid.UUID, name, description string) (*entity.Community, error) {
	community := &entity.Community{Name: name, Description: description}
	if err := s.repo.Create(ctx, community); err != nil {
		return nil, mapStoreError(err)
	}

	// The creator follows their own community
	if err := s.repo.AddMember(ctx, creatorID, community.ID); err != nil {
		return nil, mapStoreError(err)
	}

	return community, nil
}

func (s *communityService) GetCommunity(ctx context.Context, id uuid.UUID) (*entity.Community, error) {
	community, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return community, nil
}

func (s *communityService) Follow(ctx context.Context, userID, communityID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, communityID); err != nil {
		return mapStoreError(err)
	}
	if err := s.repo.AddMember(ctx, userID, communityID); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (s *communityService) Unfollow(ctx context.Context, userID, communityID uuid.UUID) error {
	if err := s.repo.RemoveMember(ctx, userID, communityID); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func mapStoreError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", apperror.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", apperror.ErrTransient, err)
}
