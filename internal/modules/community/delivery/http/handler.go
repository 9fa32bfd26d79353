package handler

import (
	"net/http"

	community "github.com/communelab/commune/internal/modules/community/service"
	"github.com/communelab/commune/pkg/response"
	"github.com/communelab/commune/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CommunityHandler struct {
	service community.CommunityService
}

func NewCommunityHandler(service community.CommunityService) *CommunityHandler {
	return &CommunityHandler{service: service}
}

type createCommunityRequest struct {
	Name        string `json:"name" binding:"required,min=3,max=100"`
	Description string `json:"description" binding:"max=2000"`
}

func (h *CommunityHandler) CreateCommunity(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req createCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	created, err := h.service.CreateCommunity(c.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *CommunityHandler) GetCommunity(c *gin.Context) {
	communityID, ok := parseCommunityID(c)
	if !ok {
		return
	}

	found, err := h.service.GetCommunity(c.Request.Context(), communityID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, found)
}

func (h *CommunityHandler) Follow(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	communityID, ok := parseCommunityID(c)
	if !ok {
		return
	}

	if err := h.service.Follow(c.Request.Context(), userID, communityID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "following"})
}

func (h *CommunityHandler) Unfollow(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	communityID, ok := parseCommunityID(c)
	if !ok {
		return
	}

	if err := h.service.Unfollow(c.Request.Context(), userID, communityID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "unfollowed"})
}

func parseCommunityID(c *gin.Context) (uuid.UUID, bool) {
	communityID, err := uuid.Parse(c.Param("community_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid community id"})
		return uuid.Nil, false
	}
	return communityID, true
}
