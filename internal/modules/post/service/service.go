package post

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/communelab/commune/internal/entity"
	communityRepo "github.com/communelab/commune/internal/modules/community/repository"
	postDto "github.com/communelab/commune/internal/modules/post/dto"
	postRepo "github.com/communelab/commune/internal/modules/post/repository"
	reactionDto "github.com/communelab/commune/internal/modules/reaction/dto"
	reaction "github.com/communelab/commune/internal/modules/reaction/service"
	search "github.com/communelab/commune/internal/modules/search/service"
	"github.com/communelab/commune/pkg/apperror"
	"github.com/communelab/commune/pkg/logger"
	"github.com/communelab/commune/pkg/storage"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// MediaFile is one uploaded attachment for a post.
type MediaFile struct {
	Name   string
	Reader io.Reader
}

type PostService interface {
	CreatePost(ctx context.Context, authorID, communityID uuid.UUID, req postDto.CreatePostRequest, media []MediaFile) (*postDto.PostResponse, error)
	GetPost(ctx context.Context, viewerID, communityID, postID uuid.UUID) (*postDto.PostResponse, error)
	ListCommunityPosts(ctx context.Context, viewerID, communityID uuid.UUID, offset, limit int) (*postDto.PostListResponse, error)
	ListFavorites(ctx context.Context, viewerID uuid.UUID) ([]*postDto.PostResponse, error)
	DeletePost(ctx context.Context, viewerID, communityID, postID uuid.UUID) error
	SearchPosts(ctx context.Context, query, communityID string) ([]search.PostHit, error)
}

type postService struct {
	repo          postRepo.PostRepository
	communityRepo communityRepo.CommunityRepository
	reactionSvc   reaction.ReactionService
	mediaStorage  storage.MediaStorage
	searchSvc     search.SearchService
	redisClient   *redis.Client
	rateWindow    time.Duration
	sanitizer     *bluemonday.Policy
}

func NewPostService(repo postRepo.PostRepository, communities communityRepo.CommunityRepository, reactionSvc reaction.ReactionService, mediaStorage storage.MediaStorage, searchSvc search.SearchService, redisClient *redis.Client, rateWindow time.Duration) PostService {
	return &postService{
		repo:          repo,
		communityRepo: communities,
		reactionSvc:   reactionSvc,
		mediaStorage:  mediaStorage,
		searchSvc:     searchSvc,
		redisClient:   redisClient,
		rateWindow:    rateWindow,
		sanitizer:     bluemonday.UGCPolicy(),
	}
}

func (s *postService) CreatePost(ctx context.Context, authorID, communityID uuid.UUID, req postDto.CreatePostRequest, media []MediaFile) (*postDto.PostResponse, error) {
	if _, err := s.communityRepo.FindByID(ctx, communityID); err != nil {
		return nil, mapStoreError(err)
	}

	member, err := s.communityRepo.IsMember(ctx, authorID, communityID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if !member {
		return nil, fmt.Errorf("%w: join the community before posting", apperror.ErrForbidden)
	}

	allowed, err := CheckAndSetRateLimit(ctx, s.redisClient, authorID, "create_post", s.rateWindow)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("rate limit check failed, allowing request")
	} else if !allowed {
		return nil, apperror.ErrRateLimitExceeded
	}

	var mediaURLs []string
	for _, file := range media {
		if s.mediaStorage == nil {
			break
		}
		url, err := s.mediaStorage.UploadMedia(ctx, file.Reader, "posts", file.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: media upload failed: %v", apperror.ErrTransient, err)
		}
		mediaURLs = append(mediaURLs, url)
	}

	post := &entity.Post{
		CommunityID: communityID,
		AuthorID:    authorID,
		Title:       req.Title,
		Content:     s.sanitizer.Sanitize(req.Content),
		MediaURLs:   mediaURLs,
	}

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, mapStoreError(err)
	}

	created, err := s.repo.FindByID(ctx, post.ID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if s.searchSvc != nil {
		if err := s.searchSvc.IndexPost(created); err != nil {
			logger.Logger.Warn().Err(err).Str("post_id", created.ID.String()).Msg("post indexing failed")
		}
	}

	return s.toResponse(ctx, authorID, created)
}

func (s *postService) GetPost(ctx context.Context, viewerID, communityID, postID uuid.UUID) (*postDto.PostResponse, error) {
	post, err := s.findInCommunity(ctx, communityID, postID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, viewerID, post)
}

func (s *postService) ListCommunityPosts(ctx context.Context, viewerID, communityID uuid.UUID, offset, limit int) (*postDto.PostListResponse, error) {
	if _, err := s.communityRepo.FindByID(ctx, communityID); err != nil {
		return nil, mapStoreError(err)
	}

	posts, total, err := s.repo.FindByCommunityID(ctx, communityID, offset, limit)
	if err != nil {
		return nil, mapStoreError(err)
	}

	resp := &postDto.PostListResponse{Total: total}
	for _, post := range posts {
		item, err := s.toResponse(ctx, viewerID, post)
		if err != nil {
			return nil, err
		}
		resp.Posts = append(resp.Posts, item)
	}

	return resp, nil
}

func (s *postService) ListFavorites(ctx context.Context, viewerID uuid.UUID) ([]*postDto.PostResponse, error) {
	posts, err := s.repo.FindFavoritedByUser(ctx, viewerID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	items := make([]*postDto.PostResponse, 0, len(posts))
	for _, post := range posts {
		item, err := s.toResponse(ctx, viewerID, post)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, nil
}

func (s *postService) DeletePost(ctx context.Context, viewerID, communityID, postID uuid.UUID) error {
	post, err := s.findInCommunity(ctx, communityID, postID)
	if err != nil {
		return err
	}

	if post.AuthorID != viewerID {
		return fmt.Errorf("%w: only the author may delete a post", apperror.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, postID); err != nil {
		return mapStoreError(err)
	}

	// Media and index cleanup are best effort once the durable state is gone
	for _, url := range post.MediaURLs {
		if s.mediaStorage == nil {
			break
		}
		if err := s.mediaStorage.DeleteMedia(ctx, url); err != nil {
			logger.Logger.Warn().Err(err).Str("url", url).Msg("media cleanup failed")
		}
	}
	if s.searchSvc != nil {
		if err := s.searchSvc.DeletePost(postID.String()); err != nil {
			logger.Logger.Warn().Err(err).Str("post_id", postID.String()).Msg("search de-indexing failed")
		}
	}

	return nil
}

func (s *postService) SearchPosts(ctx context.Context, query, communityID string) ([]search.PostHit, error) {
	if s.searchSvc == nil {
		return nil, apperror.ErrTransient
	}
	return s.searchSvc.SearchPosts(query, communityID, 20)
}

func (s *postService) findInCommunity(ctx context.Context, communityID, postID uuid.UUID) (*entity.Post, error) {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if post.CommunityID != communityID {
		return nil, fmt.Errorf("%w: post does not belong to community", apperror.ErrNotFound)
	}
	return post, nil
}

// toResponse joins the viewer's reaction and favorite rows onto the shared
// post record.
func (s *postService) toResponse(ctx context.Context, viewerID uuid.UUID, post *entity.Post) (*postDto.PostResponse, error) {
	kind, favorited, err := s.reactionSvc.PersonalState(ctx, viewerID, post.ID)
	if err != nil {
		return nil, err
	}

	return &postDto.PostResponse{
		ID:               post.ID,
		CommunityID:      post.CommunityID,
		Author:           post.Author.Username,
		Title:            post.Title,
		Content:          post.Content,
		MediaURLs:        post.MediaURLs,
		Score:            post.Score,
		PersonalReaction: reactionDto.PersonalView(kind),
		Favorited:        favorited,
		CreatedAt:        post.CreatedAt,
	}, nil
}

func mapStoreError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", apperror.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", apperror.ErrTransient, err)
}
