package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextReaction(t *testing.T) {
	cases := []struct {
		name    string
		current Reaction
		pressed Button
		want    Reaction
	}{
		{"like from none", ReactionNone, ButtonLike, ReactionLiked},
		{"dislike from none", ReactionNone, ButtonDislike, ReactionDisliked},
		{"like clears liked", ReactionLiked, ButtonLike, ReactionNone},
		{"dislike clears disliked", ReactionDisliked, ButtonDislike, ReactionNone},
		{"like switches from disliked", ReactionDisliked, ButtonLike, ReactionLiked},
		{"dislike switches from liked", ReactionLiked, ButtonDislike, ReactionDisliked},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextReaction(tc.current, tc.pressed))
		})
	}
}

func TestScoreDelta(t *testing.T) {
	cases := []struct {
		from, to Reaction
		want     int
	}{
		{ReactionNone, ReactionLiked, 1},
		{ReactionNone, ReactionDisliked, -1},
		{ReactionLiked, ReactionNone, -1},
		{ReactionDisliked, ReactionNone, 1},
		{ReactionLiked, ReactionDisliked, -2},
		{ReactionDisliked, ReactionLiked, 2},
		{ReactionNone, ReactionNone, 0},
		{ReactionLiked, ReactionLiked, 0},
		{ReactionDisliked, ReactionDisliked, 0},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.want, ScoreDelta(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestPredictReactionAppliesImmediately(t *testing.T) {
	cache := NewCache()
	postID := uuid.New()
	cache.Prime(postID, Entry{Score: 10})

	entry, ok := cache.PredictReaction(postID, ButtonLike)
	require.True(t, ok)
	assert.Equal(t, 11, entry.Score)
	assert.Equal(t, ReactionLiked, entry.Reaction)
	assert.False(t, entry.PendingSince.IsZero())

	// Visible to readers before any network round trip
	read, ok := cache.Get(postID)
	require.True(t, ok)
	assert.Equal(t, entry.Score, read.Score)
	assert.Equal(t, entry.Reaction, read.Reaction)
}

// Replays like, dislike, like, dislike from a neutral state and checks the
// arithmetic transition by transition rather than assuming a round trip
// nets out to zero.
func TestToggleSequenceArithmetic(t *testing.T) {
	cache := NewCache()
	postID := uuid.New()
	cache.Prime(postID, Entry{Score: 0, Reaction: ReactionNone})

	presses := []struct {
		button    Button
		wantState Reaction
		wantScore int
	}{
		{ButtonLike, ReactionLiked, 1},       // none -> liked: +1
		{ButtonDislike, ReactionDisliked, -1}, // liked -> disliked: -2
		{ButtonLike, ReactionLiked, 1},       // disliked -> liked: +2
		{ButtonDislike, ReactionDisliked, -1}, // liked -> disliked: -2
	}

	for i, press := range presses {
		entry, ok := cache.PredictReaction(postID, press.button)
		require.True(t, ok)
		assert.Equalf(t, press.wantState, entry.Reaction, "press %d", i+1)
		assert.Equalf(t, press.wantScore, entry.Score, "press %d", i+1)
	}

	// Net of all four transitions is -1, not 0
	final, _ := cache.Get(postID)
	assert.Equal(t, -1, final.Score)
	assert.Equal(t, ReactionDisliked, final.Reaction)
}

func TestPredictFavoriteNoScoreSideEffect(t *testing.T) {
	cache := NewCache()
	postID := uuid.New()
	cache.Prime(postID, Entry{Score: 7})

	entry, ok := cache.PredictFavorite(postID, true)
	require.True(t, ok)
	assert.True(t, entry.Favorited)
	assert.Equal(t, 7, entry.Score)
}

func TestRollbackRestoresConfirmedSnapshot(t *testing.T) {
	cache := NewCache()
	postID := uuid.New()
	cache.Prime(postID, Entry{Score: 5, Reaction: ReactionLiked})

	entry, ok := cache.PredictReaction(postID, ButtonDislike)
	require.True(t, ok)
	require.Equal(t, 3, entry.Score)
	require.Equal(t, ReactionDisliked, entry.Reaction)

	cache.RollbackReaction(postID)

	restored, ok := cache.Get(postID)
	require.True(t, ok)
	assert.Equal(t, 5, restored.Score)
	assert.Equal(t, ReactionLiked, restored.Reaction)
	assert.True(t, restored.PendingSince.IsZero())
}

func TestConfirmReactionOverwrite(t *testing.T) {
	cache := NewCache()
	postID := uuid.New()
	cache.Prime(postID, Entry{Score: 10})

	_, ok := cache.PredictReaction(postID, ButtonLike)
	require.True(t, ok)

	// Authoritative recount wins over the delta prediction
	cache.ConfirmReaction(postID, 1, ReactionLiked, true)

	entry, _ := cache.Get(postID)
	assert.Equal(t, 1, entry.Score)
	assert.Equal(t, ReactionLiked, entry.Reaction)
	assert.True(t, entry.PendingSince.IsZero())

	confirmed, _ := cache.Confirmed(postID)
	assert.Equal(t, 1, confirmed.Score)
}

func TestConfirmReactionWithoutOverwriteKeepsNewerPrediction(t *testing.T) {
	cache := NewCache()
	postID := uuid.New()
	cache.Prime(postID, Entry{Score: 0})

	_, ok := cache.PredictReaction(postID, ButtonDislike)
	require.True(t, ok)

	// A stale in-flight response must not clobber the newer prediction
	cache.ConfirmReaction(postID, 1, ReactionLiked, false)

	entry, _ := cache.Get(postID)
	assert.Equal(t, ReactionDisliked, entry.Reaction)
	assert.Equal(t, -1, entry.Score)

	confirmed, _ := cache.Confirmed(postID)
	assert.Equal(t, 1, confirmed.Score)
	assert.Equal(t, ReactionLiked, confirmed.Reaction)
}

func TestFavoriteRollbackIndependentOfReaction(t *testing.T) {
	cache := NewCache()
	postID := uuid.New()
	cache.Prime(postID, Entry{Score: 2, Reaction: ReactionLiked, Favorited: false})

	_, ok := cache.PredictFavorite(postID, true)
	require.True(t, ok)
	_, ok = cache.PredictReaction(postID, ButtonDislike)
	require.True(t, ok)

	cache.RollbackFavorite(postID)

	entry, _ := cache.Get(postID)
	assert.False(t, entry.Favorited)
	// Reaction channel untouched by the favorite rollback
	assert.Equal(t, ReactionDisliked, entry.Reaction)
	assert.Equal(t, 0, entry.Score)
}

func TestGetUnknownItem(t *testing.T) {
	cache := NewCache()

	_, ok := cache.Get(uuid.New())
	assert.False(t, ok)

	_, ok = cache.PredictReaction(uuid.New(), ButtonLike)
	assert.False(t, ok)
}

func TestForget(t *testing.T) {
	cache := NewCache()
	postID := uuid.New()
	cache.Prime(postID, Entry{Score: 1})
	cache.Forget(postID)

	_, ok := cache.Get(postID)
	assert.False(t, ok)
}
