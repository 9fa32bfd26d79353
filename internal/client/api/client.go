// Package api implements the dispatcher's Syncer contract over the server's
// HTTP routes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/communelab/commune/internal/client/dispatch"
	"github.com/communelab/commune/internal/client/session"
	"github.com/communelab/commune/internal/entity"
	postDto "github.com/communelab/commune/internal/modules/post/dto"
	reactionDto "github.com/communelab/commune/internal/modules/reaction/dto"
	"github.com/communelab/commune/pkg/apperror"
	"github.com/google/uuid"
)

// Client talks to one Commune server on behalf of one authenticated viewer.
type Client struct {
	baseURL string
	token   string
	http    *http.Client

	mu          sync.Mutex
	communities map[uuid.UUID]uuid.UUID // postID -> communityID, learned on fetch
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:     baseURL,
		token:       token,
		http:        http.DefaultClient,
		communities: make(map[uuid.UUID]uuid.UUID),
	}
}

// FetchPost retrieves a post and returns the session entry to prime the
// cache with. The post's community is remembered for later sync calls.
func (c *Client) FetchPost(ctx context.Context, communityID, postID uuid.UUID) (*postDto.PostResponse, session.Entry, error) {
	path := fmt.Sprintf("/api/communities/%s/posts/%s", communityID, postID)

	var resp postDto.PostResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, session.Entry{}, err
	}

	c.mu.Lock()
	c.communities[postID] = communityID
	c.mu.Unlock()

	return &resp, session.Entry{
		Score:     resp.Score,
		Reaction:  viewReaction(resp.PersonalReaction),
		Favorited: resp.Favorited,
	}, nil
}

// SetReaction implements dispatch.Syncer.
func (c *Client) SetReaction(ctx context.Context, postID uuid.UUID, kind entity.ReactionKind) (dispatch.ReactionResult, error) {
	communityID, err := c.communityFor(postID)
	if err != nil {
		return dispatch.ReactionResult{}, err
	}

	path := fmt.Sprintf("/api/communities/%s/posts/%s/reaction", communityID, postID)
	body := reactionDto.SetReactionRequest{Kind: kind}

	var resp reactionDto.ReactionResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return dispatch.ReactionResult{}, err
	}

	return dispatch.ReactionResult{
		Score:    resp.Score,
		Reaction: viewReaction(resp.PersonalReaction),
	}, nil
}

// SetFavorite implements dispatch.Syncer.
func (c *Client) SetFavorite(ctx context.Context, postID uuid.UUID, favorite bool) (bool, error) {
	communityID, err := c.communityFor(postID)
	if err != nil {
		return false, err
	}

	path := fmt.Sprintf("/api/communities/%s/posts/%s/favorite", communityID, postID)
	body := reactionDto.SetFavoriteRequest{Favorite: &favorite}

	var resp reactionDto.FavoriteResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return false, err
	}

	return resp.Favorited, nil
}

func (c *Client) communityFor(postID uuid.UUID) (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	communityID, ok := c.communities[postID]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: post %s was never fetched", apperror.ErrNotFound, postID)
	}
	return communityID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %v", apperror.ErrInternal, err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		// Network failures are retryable by repeating the user action
		return fmt.Errorf("%w: %v", apperror.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return fmt.Errorf("%w: %s", apperror.MapStatusToError(resp.StatusCode), payload.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrTransient, err)
	}

	return nil
}

func viewReaction(view *string) session.Reaction {
	if view == nil {
		return session.ReactionNone
	}
	switch *view {
	case "liked":
		return session.ReactionLiked
	case "disliked":
		return session.ReactionDisliked
	}
	return session.ReactionNone
}
