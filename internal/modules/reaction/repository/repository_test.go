package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/communelab/commune/internal/entity"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&entity.User{},
		&entity.Community{},
		&entity.CommunityMember{},
		&entity.Post{},
		&entity.Reaction{},
		&entity.Favorite{},
	))
	return db
}

func seedPost(t *testing.T, db *gorm.DB) (author entity.User, post entity.Post) {
	t.Helper()

	author = entity.User{
		Username:     fmt.Sprintf("author-%s", uuid.NewString()[:8]),
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&author).Error)

	community := entity.Community{Name: fmt.Sprintf("c-%s", uuid.NewString()[:8])}
	require.NoError(t, db.Create(&community).Error)

	post = entity.Post{
		CommunityID: community.ID,
		AuthorID:    author.ID,
		Title:       "hello",
		Content:     "world",
	}
	require.NoError(t, db.Create(&post).Error)
	return author, post
}

func seedUser(t *testing.T, db *gorm.DB) entity.User {
	t.Helper()

	u := entity.User{
		Username:     fmt.Sprintf("user-%s", uuid.NewString()[:8]),
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// requireConsistent checks the invariant on every write path: the stored
// post score equals the recount of its reaction records.
func requireConsistent(t *testing.T, db *gorm.DB, postID uuid.UUID) {
	t.Helper()

	var likes, dislikes int64
	require.NoError(t, db.Model(&entity.Reaction{}).
		Where("post_id = ? AND kind = ?", postID, entity.KindLike).Count(&likes).Error)
	require.NoError(t, db.Model(&entity.Reaction{}).
		Where("post_id = ? AND kind = ?", postID, entity.KindDislike).Count(&dislikes).Error)

	var post entity.Post
	require.NoError(t, db.First(&post, "id = ?", postID).Error)
	require.Equal(t, int(likes-dislikes), post.Score)
}

func TestSetReactionTransitions(t *testing.T) {
	db := openTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	_, post := seedPost(t, db)
	viewer := seedUser(t, db)

	score, err := repo.SetReaction(ctx, viewer.ID, post.ID, entity.KindLike)
	require.NoError(t, err)
	require.Equal(t, 1, score)
	requireConsistent(t, db, post.ID)

	// Switching kind updates the single record in place
	score, err = repo.SetReaction(ctx, viewer.ID, post.ID, entity.KindDislike)
	require.NoError(t, err)
	require.Equal(t, -1, score)
	requireConsistent(t, db, post.ID)

	var count int64
	require.NoError(t, db.Model(&entity.Reaction{}).
		Where("user_id = ? AND post_id = ?", viewer.ID, post.ID).Count(&count).Error)
	require.EqualValues(t, 1, count, "one record per (user, post) pair")

	// NONE clears the record entirely
	score, err = repo.SetReaction(ctx, viewer.ID, post.ID, entity.KindNone)
	require.NoError(t, err)
	require.Equal(t, 0, score)
	requireConsistent(t, db, post.ID)

	require.NoError(t, db.Model(&entity.Reaction{}).
		Where("post_id = ?", post.ID).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestSetReactionIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	_, post := seedPost(t, db)
	viewer := seedUser(t, db)

	for i := 0; i < 3; i++ {
		score, err := repo.SetReaction(ctx, viewer.ID, post.ID, entity.KindLike)
		require.NoError(t, err)
		require.Equal(t, 1, score, "repeat %d", i)
	}
	requireConsistent(t, db, post.ID)

	// Clearing an absent record is also a no-op
	score, err := repo.SetReaction(ctx, seedUser(t, db).ID, post.ID, entity.KindNone)
	require.NoError(t, err)
	require.Equal(t, 1, score)
}

func TestSetReactionRecountsOverStaleScore(t *testing.T) {
	db := openTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	_, post := seedPost(t, db)
	viewer := seedUser(t, db)

	// Simulate drift: the stored score disagrees with the records
	require.NoError(t, db.Model(&entity.Post{}).
		Where("id = ?", post.ID).UpdateColumn("score", 10).Error)

	score, err := repo.SetReaction(ctx, viewer.ID, post.ID, entity.KindLike)
	require.NoError(t, err)
	require.Equal(t, 1, score, "recounted from records, not adjusted by delta")
	requireConsistent(t, db, post.ID)
}

func TestSetReactionUnknownPost(t *testing.T) {
	db := openTestDB(t)
	repo := NewReactionRepository(db)

	viewer := seedUser(t, db)

	_, err := repo.SetReaction(context.Background(), viewer.ID, uuid.New(), entity.KindLike)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestScoreAggregatesAcrossUsers(t *testing.T) {
	db := openTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	_, post := seedPost(t, db)

	for i := 0; i < 3; i++ {
		_, err := repo.SetReaction(ctx, seedUser(t, db).ID, post.ID, entity.KindLike)
		require.NoError(t, err)
	}
	score, err := repo.SetReaction(ctx, seedUser(t, db).ID, post.ID, entity.KindDislike)
	require.NoError(t, err)
	require.Equal(t, 2, score)
	requireConsistent(t, db, post.ID)

	counted, err := repo.CountScore(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, 2, counted)
}

func TestSetFavoriteIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	_, post := seedPost(t, db)
	viewer := seedUser(t, db)

	for i := 0; i < 2; i++ {
		favorited, err := repo.SetFavorite(ctx, viewer.ID, post.ID, true)
		require.NoError(t, err)
		require.True(t, favorited)
	}

	var count int64
	require.NoError(t, db.Model(&entity.Favorite{}).
		Where("user_id = ? AND post_id = ?", viewer.ID, post.ID).Count(&count).Error)
	require.EqualValues(t, 1, count, "setting true twice leaves exactly one record")

	favorited, err := repo.SetFavorite(ctx, viewer.ID, post.ID, false)
	require.NoError(t, err)
	require.False(t, favorited)

	// Unfavoriting when absent stays clean
	favorited, err = repo.SetFavorite(ctx, viewer.ID, post.ID, false)
	require.NoError(t, err)
	require.False(t, favorited)

	require.NoError(t, db.Model(&entity.Favorite{}).
		Where("post_id = ?", post.ID).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestFavoriteDoesNotTouchScore(t *testing.T) {
	db := openTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	_, post := seedPost(t, db)
	viewer := seedUser(t, db)

	_, err := repo.SetReaction(ctx, viewer.ID, post.ID, entity.KindLike)
	require.NoError(t, err)

	_, err = repo.SetFavorite(ctx, viewer.ID, post.ID, true)
	require.NoError(t, err)

	var p entity.Post
	require.NoError(t, db.First(&p, "id = ?", post.ID).Error)
	require.Equal(t, 1, p.Score)

	kind, err := repo.GetUserReaction(ctx, viewer.ID, post.ID)
	require.NoError(t, err)
	require.Equal(t, entity.KindLike, kind)

	favorited, err := repo.IsFavorited(ctx, viewer.ID, post.ID)
	require.NoError(t, err)
	require.True(t, favorited)
}
