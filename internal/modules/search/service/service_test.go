package search

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communelab/commune/internal/entity"
)

// fakeIndex overrides only the IndexManager methods the service calls;
// anything else would hit the nil embedded interface and fail loudly.
type fakeIndex struct {
	meilisearch.IndexManager

	filterable *[]interface{}
	sortable   *[]string

	addedDocs  []PostHit
	primaryKey *string
	deletedIDs []string

	lastQuery   string
	lastRequest *meilisearch.SearchRequest
	searchResp  *meilisearch.SearchResponse
}

func (f *fakeIndex) UpdateFilterableAttributes(request *[]interface{}) (*meilisearch.TaskInfo, error) {
	f.filterable = request
	return &meilisearch.TaskInfo{}, nil
}

func (f *fakeIndex) UpdateSortableAttributes(request *[]string) (*meilisearch.TaskInfo, error) {
	f.sortable = request
	return &meilisearch.TaskInfo{}, nil
}

func (f *fakeIndex) AddDocuments(documentsPtr interface{}, primaryKey *string) (*meilisearch.TaskInfo, error) {
	f.addedDocs = append(f.addedDocs, documentsPtr.([]PostHit)...)
	f.primaryKey = primaryKey
	return &meilisearch.TaskInfo{TaskUID: 1}, nil
}

func (f *fakeIndex) DeleteDocument(identifier string) (*meilisearch.TaskInfo, error) {
	f.deletedIDs = append(f.deletedIDs, identifier)
	return &meilisearch.TaskInfo{}, nil
}

func (f *fakeIndex) Search(query string, request *meilisearch.SearchRequest) (*meilisearch.SearchResponse, error) {
	f.lastQuery = query
	f.lastRequest = request
	if f.searchResp != nil {
		return f.searchResp, nil
	}
	return &meilisearch.SearchResponse{}, nil
}

type fakeManager struct {
	meilisearch.ServiceManager
	index *fakeIndex
}

func (f *fakeManager) Index(string) meilisearch.IndexManager {
	return f.index
}

func newFakeService() (SearchService, *fakeIndex) {
	index := &fakeIndex{}
	svc := NewSearchService(&fakeManager{index: index})
	return svc, index
}

func rawHit(hit PostHit) meilisearch.Hit {
	encoded, _ := json.Marshal(hit)
	var raw meilisearch.Hit
	_ = json.Unmarshal(encoded, &raw)
	return raw
}

func TestNewSearchServiceConfiguresIndex(t *testing.T) {
	_, index := newFakeService()

	require.NotNil(t, index.filterable)
	assert.Equal(t, []interface{}{"community_id"}, *index.filterable)
	require.NotNil(t, index.sortable)
	assert.Equal(t, []string{"created_at"}, *index.sortable)
}

func TestIndexPostStripsMarkup(t *testing.T) {
	svc, index := newFakeService()

	post := &entity.Post{
		ID:          uuid.New(),
		CommunityID: uuid.New(),
		Title:       "hello",
		Content:     "<p>first</p><script>alert(1)</script><br>second",
		Author:      entity.User{Username: "ana"},
		CreatedAt:   time.Unix(1700000000, 0),
	}

	require.NoError(t, svc.IndexPost(post))

	require.Len(t, index.addedDocs, 1)
	doc := index.addedDocs[0]
	assert.Equal(t, post.ID.String(), doc.ID)
	assert.Equal(t, post.CommunityID.String(), doc.CommunityID)
	assert.Equal(t, "ana", doc.Author)
	assert.Equal(t, "first second", doc.Content)
	assert.EqualValues(t, 1700000000, doc.CreatedAt)

	require.NotNil(t, index.primaryKey)
	assert.Equal(t, "id", *index.primaryKey)
}

func TestDeletePost(t *testing.T) {
	svc, index := newFakeService()

	require.NoError(t, svc.DeletePost("some-id"))
	assert.Equal(t, []string{"some-id"}, index.deletedIDs)
}

func TestSearchPostsDecodesHits(t *testing.T) {
	svc, index := newFakeService()

	good := PostHit{
		ID:          uuid.NewString(),
		CommunityID: uuid.NewString(),
		Title:       "hello",
		Content:     "body",
		Author:      "ana",
		CreatedAt:   1700000000,
	}
	// A document whose created_at cannot decode is skipped, not fatal
	broken := meilisearch.Hit{
		"id":         json.RawMessage(`"x"`),
		"created_at": json.RawMessage(`"not-a-number"`),
	}
	index.searchResp = &meilisearch.SearchResponse{
		Hits: meilisearch.Hits{rawHit(good), broken},
	}

	hits, err := svc.SearchPosts("hello", "", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, good, hits[0])

	assert.Equal(t, "hello", index.lastQuery)
	require.NotNil(t, index.lastRequest)
	assert.EqualValues(t, 5, index.lastRequest.Limit)
	assert.Nil(t, index.lastRequest.Filter)
}

func TestSearchPostsCommunityFilterAndDefaultLimit(t *testing.T) {
	svc, index := newFakeService()

	communityID := uuid.NewString()
	_, err := svc.SearchPosts("q", communityID, 0)
	require.NoError(t, err)

	require.NotNil(t, index.lastRequest)
	assert.EqualValues(t, 20, index.lastRequest.Limit)
	assert.Equal(t, `community_id = "`+communityID+`"`, index.lastRequest.Filter)
}
