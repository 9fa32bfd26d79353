package search

import (
	"fmt"
	"html"
	"strings"

	"github.com/communelab/commune/internal/entity"
	"github.com/communelab/commune/pkg/logger"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const postsIndex = "posts"

type SearchService interface {
	IndexPost(post *entity.Post) error
	DeletePost(id string) error
	SearchPosts(query string, communityID string, limit int64) ([]PostHit, error)
}

// PostHit is the subset of a post stored in the search index.
type PostHit struct {
	ID          string `json:"id"`
	CommunityID string `json:"community_id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Author      string `json:"author"`
	CreatedAt   int64  `json:"created_at"`
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *searchService) initIndexes() {
	filterable := []string{"community_id"}
	filterableInterface := make([]any, len(filterable))
	for i, v := range filterable {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index(postsIndex).UpdateFilterableAttributes(&filterableInterface); err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to update posts filterable attributes")
	}

	sortable := []string{"created_at"}
	if _, err := s.client.Index(postsIndex).UpdateSortableAttributes(&sortable); err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to update posts sortable attributes")
	}
}

// cleanContentForIndex strips markup so the index holds plain searchable text.
func (s *searchService) cleanContentForIndex(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	cleanText := html.UnescapeString(s.sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *searchService) IndexPost(post *entity.Post) error {
	doc := PostHit{
		ID:          post.ID.String(),
		CommunityID: post.CommunityID.String(),
		Title:       post.Title,
		Content:     s.cleanContentForIndex(post.Content),
		Author:      post.Author.Username,
		CreatedAt:   post.CreatedAt.Unix(),
	}

	task, err := s.client.Index(postsIndex).AddDocuments([]PostHit{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	logger.Logger.Debug().Str("post_id", doc.ID).Int64("task", task.TaskUID).Msg("indexed post")
	return nil
}

func (s *searchService) DeletePost(id string) error {
	_, err := s.client.Index(postsIndex).DeleteDocument(id)
	return err
}

func (s *searchService) SearchPosts(query string, communityID string, limit int64) ([]PostHit, error) {
	if limit <= 0 {
		limit = 20
	}

	req := &meilisearch.SearchRequest{Limit: limit}
	if communityID != "" {
		req.Filter = fmt.Sprintf("community_id = %q", communityID)
	}

	resp, err := s.client.Index(postsIndex).Search(query, req)
	if err != nil {
		return nil, err
	}

	hits := make([]PostHit, 0, len(resp.Hits))
	for _, raw := range resp.Hits {
		var hit PostHit
		if err := raw.DecodeInto(&hit); err != nil {
			logger.Logger.Warn().Err(err).Msg("skipping undecodable search hit")
			continue
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

func strPtr(s string) *string {
	return &s
}
