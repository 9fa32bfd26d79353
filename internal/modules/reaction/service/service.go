package reaction

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/communelab/commune/internal/entity"
	communityRepo "github.com/communelab/commune/internal/modules/community/repository"
	postRepo "github.com/communelab/commune/internal/modules/post/repository"
	reactionDto "github.com/communelab/commune/internal/modules/reaction/dto"
	reactionRepo "github.com/communelab/commune/internal/modules/reaction/repository"
	"github.com/communelab/commune/pkg/apperror"
	"github.com/communelab/commune/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const scoreCacheTTL = 7 * 24 * time.Hour

// ReactionService is the authoritative aggregator: it validates the request
// against the post and the viewer's membership, applies the transition
// atomically through the repository and returns the recounted state.
type ReactionService interface {
	SetReaction(ctx context.Context, viewerID, communityID, postID uuid.UUID, kind entity.ReactionKind) (*reactionDto.ReactionResponse, error)
	SetFavorite(ctx context.Context, viewerID, communityID, postID uuid.UUID, favorite bool) (*reactionDto.FavoriteResponse, error)
	// PersonalState returns the viewer's reaction and favorite flag for a
	// post, used to build the per-viewer item view.
	PersonalState(ctx context.Context, viewerID, postID uuid.UUID) (entity.ReactionKind, bool, error)
	// Score returns the post's aggregate, preferring the Redis mirror and
	// rebuilding it from the durable records on a miss.
	Score(ctx context.Context, postID uuid.UUID) (int, error)
}

type reactionService struct {
	repo          reactionRepo.ReactionRepository
	postRepo      postRepo.PostRepository
	communityRepo communityRepo.CommunityRepository
	redisClient   *redis.Client
}

func NewReactionService(repo reactionRepo.ReactionRepository, posts postRepo.PostRepository, communities communityRepo.CommunityRepository, redisClient *redis.Client) ReactionService {
	return &reactionService{
		repo:          repo,
		postRepo:      posts,
		communityRepo: communities,
		redisClient:   redisClient,
	}
}

func (s *reactionService) SetReaction(ctx context.Context, viewerID, communityID, postID uuid.UUID, kind entity.ReactionKind) (*reactionDto.ReactionResponse, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown reaction kind %q", apperror.ErrInvalidInput, kind)
	}

	if err := s.authorize(ctx, viewerID, communityID, postID); err != nil {
		return nil, err
	}

	score, err := s.repo.SetReaction(ctx, viewerID, postID, kind)
	if err != nil {
		return nil, mapStoreError(err)
	}

	s.cacheScore(ctx, postID, score)

	inEffect := entity.KindNone
	if kind.Stored() {
		inEffect = kind
	}

	return &reactionDto.ReactionResponse{
		Score:            score,
		PersonalReaction: reactionDto.PersonalView(inEffect),
	}, nil
}

func (s *reactionService) SetFavorite(ctx context.Context, viewerID, communityID, postID uuid.UUID, favorite bool) (*reactionDto.FavoriteResponse, error) {
	if err := s.authorize(ctx, viewerID, communityID, postID); err != nil {
		return nil, err
	}

	favorited, err := s.repo.SetFavorite(ctx, viewerID, postID, favorite)
	if err != nil {
		return nil, mapStoreError(err)
	}

	return &reactionDto.FavoriteResponse{Favorited: favorited}, nil
}

func (s *reactionService) PersonalState(ctx context.Context, viewerID, postID uuid.UUID) (entity.ReactionKind, bool, error) {
	kind, err := s.repo.GetUserReaction(ctx, viewerID, postID)
	if err != nil {
		return entity.KindNone, false, mapStoreError(err)
	}

	favorited, err := s.repo.IsFavorited(ctx, viewerID, postID)
	if err != nil {
		return entity.KindNone, false, mapStoreError(err)
	}

	return kind, favorited, nil
}

func (s *reactionService) Score(ctx context.Context, postID uuid.UUID) (int, error) {
	key := scoreKey(postID)

	if s.redisClient != nil {
		val, err := s.redisClient.Get(ctx, key).Result()
		if err == nil {
			if score, convErr := strconv.Atoi(val); convErr == nil {
				return score, nil
			}
		}
	}

	// Cache miss: rebuild from the durable records
	score, err := s.repo.CountScore(ctx, postID)
	if err != nil {
		return 0, mapStoreError(err)
	}
	s.cacheScore(ctx, postID, score)

	return score, nil
}

// authorize enforces the aggregator preconditions: the post exists in the
// named community and the viewer is a member of it.
func (s *reactionService) authorize(ctx context.Context, viewerID, communityID, postID uuid.UUID) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return mapStoreError(err)
	}
	if post.CommunityID != communityID {
		return fmt.Errorf("%w: post does not belong to community", apperror.ErrNotFound)
	}

	member, err := s.communityRepo.IsMember(ctx, viewerID, communityID)
	if err != nil {
		return mapStoreError(err)
	}
	if !member {
		return fmt.Errorf("%w: viewer is not a member of the community", apperror.ErrForbidden)
	}

	return nil
}

// cacheScore mirrors the committed score into Redis. Failures only cost the
// hot read path, so they are logged and ignored.
func (s *reactionService) cacheScore(ctx context.Context, postID uuid.UUID, score int) {
	if s.redisClient == nil {
		return
	}

	pipe := s.redisClient.Pipeline()
	pipe.Set(ctx, scoreKey(postID), score, scoreCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Logger.Warn().Err(err).Str("post_id", postID.String()).Msg("score cache update failed")
	}
}

func scoreKey(postID uuid.UUID) string {
	return fmt.Sprintf("score:post:%s", postID.String())
}

// mapStoreError folds storage errors into the shared taxonomy: a missing row
// is NotFound, anything else is a retryable transient failure since the
// transaction was aborted without partial writes.
func mapStoreError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", apperror.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", apperror.ErrTransient, err)
}
