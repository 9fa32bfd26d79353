package handler

import (
	"net/http"
	"strconv"

	postDto "github.com/communelab/commune/internal/modules/post/dto"
	post "github.com/communelab/commune/internal/modules/post/service"
	"github.com/communelab/commune/pkg/response"
	"github.com/communelab/commune/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PostHandler struct {
	service post.PostService
}

func NewPostHandler(service post.PostService) *PostHandler {
	return &PostHandler{service: service}
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	communityID, err := uuid.Parse(c.Param("community_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid community id"})
		return
	}

	var req postDto.CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	var media []post.MediaFile
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fileHeader := range form.File["media"] {
			file, err := fileHeader.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
				return
			}
			defer file.Close()
			media = append(media, post.MediaFile{Name: fileHeader.Filename, Reader: file})
		}
	}

	resp, err := h.service.CreatePost(c.Request.Context(), userID, communityID, req, media)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	communityID, postID, ok := parseIDs(c)
	if !ok {
		return
	}

	resp, err := h.service.GetPost(c.Request.Context(), userID, communityID, postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *PostHandler) ListCommunityPosts(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	communityID, err := uuid.Parse(c.Param("community_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid community id"})
		return
	}

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	resp, err := h.service.ListCommunityPosts(c.Request.Context(), userID, communityID, offset, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *PostHandler) ListFavorites(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	resp, err := h.service.ListFavorites(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": resp})
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	communityID, postID, ok := parseIDs(c)
	if !ok {
		return
	}

	if err := h.service.DeletePost(c.Request.Context(), userID, communityID, postID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *PostHandler) SearchPosts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	hits, err := h.service.SearchPosts(c.Request.Context(), query, c.Query("community_id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hits": hits})
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
