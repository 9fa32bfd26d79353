package handler

import (
	"net/http"

	reactionDto "github.com/communelab/commune/internal/modules/reaction/dto"
	reaction "github.com/communelab/commune/internal/modules/reaction/service"
	"github.com/communelab/commune/pkg/response"
	"github.com/communelab/commune/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReactionHandler struct {
	service reaction.ReactionService
}

func NewReactionHandler(service reaction.ReactionService) *ReactionHandler {
	return &ReactionHandler{service: service}
}

func (h *ReactionHandler) SetReaction(c *gin.Context) {
	viewerID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	communityID, postID, ok := parseIDs(c)
	if !ok {
		return
	}

	var req reactionDto.SetReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	resp, err := h.service.SetReaction(c.Request.Context(), viewerID, communityID, postID, req.Kind)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ReactionHandler) SetFavorite(c *gin.Context) {
	viewerID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	communityID, postID, ok := parseIDs(c)
	if !ok {
		return
	}

	var req reactionDto.SetFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	resp, err := h.service.SetFavorite(c.Request.Context(), viewerID, communityID, postID, *req.Favorite)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func parseIDs(c *gin.Context) (communityID, postID uuid.UUID, ok bool) {
	communityID, err := uuid.Parse(c.Param("community_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid community id"})
		return uuid.Nil, uuid.Nil, false
	}

	postID, err = uuid.Parse(c.Param("post_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return uuid.Nil, uuid.Nil, false
	}

	return communityID, postID, true
}
