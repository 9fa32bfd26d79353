package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communelab/commune/internal/entity"
	reactionDto "github.com/communelab/commune/internal/modules/reaction/dto"
	"github.com/communelab/commune/pkg/apperror"
)

type stubService struct {
	reactionResp *reactionDto.ReactionResponse
	favoriteResp *reactionDto.FavoriteResponse
	err          error

	gotKind     entity.ReactionKind
	gotFavorite bool
}

func (s *stubService) SetReaction(_ context.Context, _, _, _ uuid.UUID, kind entity.ReactionKind) (*reactionDto.ReactionResponse, error) {
	s.gotKind = kind
	return s.reactionResp, s.err
}

func (s *stubService) SetFavorite(_ context.Context, _, _, _ uuid.UUID, favorite bool) (*reactionDto.FavoriteResponse, error) {
	s.gotFavorite = favorite
	return s.favoriteResp, s.err
}

func (s *stubService) PersonalState(context.Context, uuid.UUID, uuid.UUID) (entity.ReactionKind, bool, error) {
	return entity.KindNone, false, nil
}

func (s *stubService) Score(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}

func newTestRouter(svc *stubService, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID.String())
	})

	h := NewReactionHandler(svc)
	r.POST("/api/communities/:community_id/posts/:post_id/reaction", h.SetReaction)
	r.POST("/api/communities/:community_id/posts/:post_id/favorite", h.SetFavorite)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func reactionPath(communityID, postID uuid.UUID, op string) string {
	return "/api/communities/" + communityID.String() + "/posts/" + postID.String() + "/" + op
}

func TestSetReactionHandler(t *testing.T) {
	svc := &stubService{
		reactionResp: &reactionDto.ReactionResponse{Score: 3, PersonalReaction: reactionDto.PersonalView(entity.KindLike)},
	}
	r := newTestRouter(svc, uuid.New())

	w := postJSON(r, reactionPath(uuid.New(), uuid.New(), "reaction"), `{"kind":"LIKE"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.KindLike, svc.gotKind)

	var resp reactionDto.ReactionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Score)
	require.NotNil(t, resp.PersonalReaction)
	assert.Equal(t, "liked", *resp.PersonalReaction)
}

func TestSetReactionHandlerRejectsUnknownKind(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(svc, uuid.New())

	// Unknown values fail binding, they are never coerced
	w := postJSON(r, reactionPath(uuid.New(), uuid.New(), "reaction"), `{"kind":"UPVOTE"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(r, reactionPath(uuid.New(), uuid.New(), "reaction"), `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetReactionHandlerBadIDs(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(svc, uuid.New())

	w := postJSON(r, "/api/communities/nope/posts/"+uuid.NewString()+"/reaction", `{"kind":"LIKE"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetReactionHandlerServiceError(t *testing.T) {
	svc := &stubService{err: apperror.ErrForbidden}
	r := newTestRouter(svc, uuid.New())

	w := postJSON(r, reactionPath(uuid.New(), uuid.New(), "reaction"), `{"kind":"DISLIKE"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSetFavoriteHandler(t *testing.T) {
	svc := &stubService{favoriteResp: &reactionDto.FavoriteResponse{Favorited: true}}
	r := newTestRouter(svc, uuid.New())

	w := postJSON(r, reactionPath(uuid.New(), uuid.New(), "favorite"), `{"favorite":true}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.gotFavorite)

	// favorite is a required pointer so explicit false still binds
	svc.favoriteResp = &reactionDto.FavoriteResponse{Favorited: false}
	w = postJSON(r, reactionPath(uuid.New(), uuid.New(), "favorite"), `{"favorite":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, svc.gotFavorite)

	w = postJSON(r, reactionPath(uuid.New(), uuid.New(), "favorite"), `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerWithoutAuthContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewReactionHandler(&stubService{})
	r.POST("/api/communities/:community_id/posts/:post_id/reaction", h.SetReaction)

	w := postJSON(r, reactionPath(uuid.New(), uuid.New(), "reaction"), `{"kind":"LIKE"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
