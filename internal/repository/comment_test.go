package repository

import (
	"context"
	"regexp"
	"testing"

	"photoshare/internal/models"
	"photoshare/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_CreateOnPhoto(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	cat := testutil.CreateCategory(t, db, "Nature")
	alice := testutil.CreateUser(t, db, "Alice", "alice@example.com", "")
	bob := testutil.CreateUser(t, db, "Bob", "bob@example.com", "")
	photo := testutil.CreatePhoto(t, db, alice.ID, cat.ID, "P", "p.png")

	comment := &models.Comment{Text: "Nice!", AuthorID: bob.ID, PhotoID: photo.ID}
	require.NoError(t, repo.CreateOnPhoto(ctx, comment))
	assert.NotZero(t, comment.ID)
	assert.Equal(t, "Bob", comment.Author.Name)

	second := &models.Comment{Text: "Thanks", AuthorID: alice.ID, PhotoID: photo.ID}
	require.NoError(t, repo.CreateOnPhoto(ctx, second))

	list, err := repo.ListByPhoto(ctx, photo.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Nice!", list[0].Text)
	assert.Equal(t, "Thanks", list[1].Text)
}

func TestCommentRepository_CreateOnMissingPhotoRollsBack(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCommentRepository(db)
	bob := testutil.CreateUser(t, db, "Bob", "bob@example.com", "")

	err := repo.CreateOnPhoto(context.Background(), &models.Comment{Text: "hello?", AuthorID: bob.ID, PhotoID: 12})
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	var count int64
	db.Model(&models.Comment{}).Count(&count)
	assert.Zero(t, count)
}

func TestCommentRepository_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "comments" WHERE "comments"."id" = $1`)).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	assert.NoError(t, repo.Delete(ctx, 5))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "comments" WHERE "comments"."id" = $1`)).
		WithArgs(6).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	err := repo.Delete(ctx, 6)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_ListRecent(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	cat := testutil.CreateCategory(t, db, "Nature")
	alice := testutil.CreateUser(t, db, "Alice", "alice@example.com", "")
	photo := testutil.CreatePhoto(t, db, alice.ID, cat.ID, "P", "p.png")
	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, repo.CreateOnPhoto(ctx, &models.Comment{Text: text, AuthorID: alice.ID, PhotoID: photo.ID}))
	}

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].Text)
	assert.Equal(t, "Alice", recent[0].Author.Name)

	got, err := repo.GetByID(ctx, recent[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "two", got.Text)
}
