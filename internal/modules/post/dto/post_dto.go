package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreatePostRequest struct {
	Title   string `form:"title" json:"title" binding:"required,min=1,max=255"`
	Content string `form:"content" json:"content" binding:"required,min=1"`
}

// PostResponse carries the shared post state plus the per-viewer view
// fields computed by joining the viewer's reaction and favorite rows.
type PostResponse struct {
	ID               uuid.UUID `json:"id"`
	CommunityID      uuid.UUID `json:"community_id"`
	Author           string    `json:"author"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	MediaURLs        []string  `json:"media_urls"`
	Score            int       `json:"score"`
	PersonalReaction *string   `json:"personal_reaction"`
	Favorited        bool      `json:"favorited"`
	CreatedAt        time.Time `json:"created_at"`
}

type PostListResponse struct {
	Posts []*PostResponse `json:"posts"`
	Total int64           `json:"total"`
}
