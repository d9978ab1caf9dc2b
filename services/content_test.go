package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/akulikov/bloghub/cache"
	"github.com/akulikov/bloghub/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Group{}, &models.Post{}, &models.Comment{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (*ContentService, *cache.Memory) {
	t.Helper()
	store := cache.NewMemory()
	return NewContentService(db, store, 10, time.Minute), store
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	u := models.User{Username: username}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func createGroup(t *testing.T, db *gorm.DB, title, slug string) models.Group {
	t.Helper()
	g := models.Group{Title: title, Slug: slug, Description: title + " community"}
	require.NoError(t, db.Create(&g).Error)
	return g
}

func identity(u models.User) Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}

func TestCreateAndGetPost(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	alice := createUser(t, db, "alice")
	createGroup(t, db, "Cooking", "cooking")

	post, err := svc.CreatePost(context.Background(), identity(alice), PostInput{
		Text:      "  first recipe  ",
		GroupSlug: "cooking",
	})
	require.NoError(t, err)
	assert.Equal(t, "first recipe", post.Text)
	assert.Equal(t, alice.ID, post.AuthorID)
	require.NotNil(t, post.Group)
	assert.Equal(t, "cooking", post.Group.Slug)
	assert.False(t, post.PubDate.IsZero())

	got, err := svc.GetPost(context.Background(), "alice", post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, "first recipe", got.Text)
	assert.Equal(t, "alice", got.Author.Username)

	// Reads are idempotent.
	again, err := svc.GetPost(context.Background(), "alice", post.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
	assert.Equal(t, got.Text, again.Text)
}

func TestCreatePostValidation(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	alice := createUser(t, db, "alice")

	_, err := svc.CreatePost(context.Background(), identity(alice), PostInput{Text: "   "})
	var fieldErrs ValidationErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "text")

	_, err = svc.CreatePost(context.Background(), identity(alice), PostInput{
		Text:      "hello",
		GroupSlug: "no-such-group",
	})
	fieldErrs = nil
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "group")

	// Nothing was persisted.
	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCreatePostSanitizesMarkup(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	alice := createUser(t, db, "alice")

	post, err := svc.CreatePost(context.Background(), identity(alice), PostInput{
		Text: `hello <script>alert("x")</script>world`,
	})
	require.NoError(t, err)
	assert.NotContains(t, post.Text, "<script>")
	assert.Contains(t, post.Text, "hello")
}

func TestGetPostWrongUsernameLooksMissing(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	alice := createUser(t, db, "alice")
	createUser(t, db, "bob")

	post, err := svc.CreatePost(context.Background(), identity(alice), PostInput{Text: "mine"})
	require.NoError(t, err)

	_, err = svc.GetPost(context.Background(), "bob", post.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetPost(context.Background(), "alice", post.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePostByAuthor(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	alice := createUser(t, db, "alice")
	createGroup(t, db, "Cooking", "cooking")

	post, err := svc.CreatePost(context.Background(), identity(alice), PostInput{
		Text:      "original",
		GroupSlug: "cooking",
	})
	require.NoError(t, err)

	newText := "edited"
	detach := ""
	updated, err := svc.UpdatePost(context.Background(), identity(alice), post.ID, PostUpdate{
		Text:      &newText,
		GroupSlug: &detach,
	})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Text)
	assert.Nil(t, updated.GroupID)
	assert.Equal(t, post.AuthorID, updated.AuthorID)
	assert.True(t, updated.PubDate.Equal(post.PubDate), "publication date never changes on edit")

	// Re-attaching to a group by slug resolves inside the same update.
	baking := createGroup(t, db, "Baking", "baking")
	slug := "baking"
	updated, err = svc.UpdatePost(context.Background(), identity(alice), post.ID, PostUpdate{GroupSlug: &slug})
	require.NoError(t, err)
	require.NotNil(t, updated.GroupID)
	assert.Equal(t, baking.ID, *updated.GroupID)
}

func TestUpdatePostByNonAuthorIsSilentNoOp(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	alice := createUser(t, db, "alice")
	mallory := createUser(t, db, "mallory")

	post, err := svc.CreatePost(context.Background(), identity(alice), PostInput{Text: "original"})
	require.NoError(t, err)

	hijack := "hijacked"
	got, err := svc.UpdatePost(context.Background(), identity(mallory), post.ID, PostUpdate{Text: &hijack})
	require.ErrorIs(t, err, ErrNotAuthor)
	assert.Equal(t, "original", got.Text, "caller gets the untouched post back")

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, "original", stored.Text)
	assert.Equal(t, alice.ID, stored.AuthorID)
}

func TestUpdatePostValidation(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	alice := createUser(t, db, "alice")

	post, err := svc.CreatePost(context.Background(), identity(alice), PostInput{Text: "original"})
	require.NoError(t, err)

	empty := "   "
	_, err = svc.UpdatePost(context.Background(), identity(alice), post.ID, PostUpdate{Text: &empty})
	var fieldErrs ValidationErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "text")

	bad := "no-such-group"
	_, err = svc.UpdatePost(context.Background(), identity(alice), post.ID, PostUpdate{GroupSlug: &bad})
	fieldErrs = nil
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "group")

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, "original", stored.Text)
}

func TestUpdateMissingPost(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	alice := createUser(t, db, "alice")

	text := "anything"
	_, err := svc.UpdatePost(context.Background(), identity(alice), 12345, PostUpdate{Text: &text})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPostsOrderingAndPagination(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	alice := createUser(t, db, "alice")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 11; i++ {
		p := models.Post{
			Text:     "post",
			AuthorID: alice.ID,
			PubDate:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&p).Error)
	}

	first, err := svc.ListPosts(context.Background(), PostsByAuthor("alice"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), first.Total)
	assert.Equal(t, 2, first.TotalPages)
	assert.Equal(t, 1, first.Number)
	require.Len(t, first.Items, 10)

	second, err := svc.ListPosts(context.Background(), PostsByAuthor("alice"), 2)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)

	// Newest first across the concatenation, no gaps and no repeats.
	all := append(first.Items, second.Items...)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		ordered := prev.PubDate.After(cur.PubDate) ||
			(prev.PubDate.Equal(cur.PubDate) && prev.ID > cur.ID)
		assert.True(t, ordered, "item %d out of order", i)
	}

	// Out-of-range requests clamp instead of erroring.
	clamped, err := svc.ListPosts(context.Background(), PostsByAuthor("alice"), 99)
	require.NoError(t, err)
	assert.Equal(t, 2, clamped.Number)
	assert.Len(t, clamped.Items, 1)

	clamped, err = svc.ListPosts(context.Background(), PostsByAuthor("alice"), -1)
	require.NoError(t, err)
	assert.Equal(t, 1, clamped.Number)
}

func TestListPostsEmptyCollectionClampsToPageOne(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	createUser(t, db, "alice")

	page, err := svc.ListPosts(context.Background(), AllPosts(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 0, page.TotalPages)
	assert.Empty(t, page.Items)

	page, err = svc.ListPosts(context.Background(), PostsByAuthor("alice"), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Empty(t, page.Items)
}

func TestListPostsByGroupIsolation(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	alice := createUser(t, db, "alice")
	createGroup(t, db, "First", "g1")
	createGroup(t, db, "Second", "g2")

	p1, err := svc.CreatePost(context.Background(), identity(alice), PostInput{Text: "in g1", GroupSlug: "g1"})
	require.NoError(t, err)
	_, err = svc.CreatePost(context.Background(), identity(alice), PostInput{Text: "in g2", GroupSlug: "g2"})
	require.NoError(t, err)
	_, err = svc.CreatePost(context.Background(), identity(alice), PostInput{Text: "ungrouped"})
	require.NoError(t, err)

	page, err := svc.ListPosts(context.Background(), PostsByGroup("g1"), 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, p1.ID, page.Items[0].ID)

	_, err = svc.ListPosts(context.Background(), PostsByGroup("nope"), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ListPosts(context.Background(), PostsByAuthor("nobody"), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIndexListingServedStale(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	alice := createUser(t, db, "alice")

	for i := 0; i < 3; i++ {
		_, err := svc.CreatePost(context.Background(), identity(alice), PostInput{Text: "post"})
		require.NoError(t, err)
	}

	page, err := svc.ListPosts(context.Background(), AllPosts(), 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	require.NoError(t, db.Where("1 = 1").Delete(&models.Post{}).Error)

	// Inside the staleness window the index still shows the old listing.
	stale, err := svc.ListPosts(context.Background(), AllPosts(), 1)
	require.NoError(t, err)
	assert.Len(t, stale.Items, 3)

	// Author listings bypass the cache and see the truth immediately.
	fresh, err := svc.ListPosts(context.Background(), PostsByAuthor("alice"), 1)
	require.NoError(t, err)
	assert.Empty(t, fresh.Items)

	svc.ClearIndexCache()
	current, err := svc.ListPosts(context.Background(), AllPosts(), 1)
	require.NoError(t, err)
	assert.Empty(t, current.Items)
}

func TestAddComment(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	post, err := svc.CreatePost(context.Background(), identity(alice), PostInput{Text: "discuss"})
	require.NoError(t, err)

	comment, err := svc.AddComment(context.Background(), identity(bob), post.ID, "  nice one  ")
	require.NoError(t, err)
	assert.Equal(t, "nice one", comment.Text)
	assert.Equal(t, bob.ID, comment.AuthorID)
	assert.Equal(t, "bob", comment.Author.Username)

	got, err := svc.GetPost(context.Background(), "alice", post.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, comment.ID, got.Comments[0].ID)

	_, err = svc.AddComment(context.Background(), identity(bob), post.ID+100, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddComment(context.Background(), identity(bob), post.ID, "   ")
	var fieldErrs ValidationErrors
	assert.ErrorAs(t, err, &fieldErrs)

	// A missing post wins over an empty text: the existence check comes first.
	_, err = svc.AddComment(context.Background(), identity(bob), post.ID+100, "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGroupOperations(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)

	created, err := svc.CreateGroup(context.Background(), " Cooking ", " cooking ", "All about food")
	require.NoError(t, err)
	assert.Equal(t, "Cooking", created.Title)
	assert.Equal(t, "cooking", created.Slug)

	_, err = svc.CreateGroup(context.Background(), "Another", "cooking", "dup slug")
	var fieldErrs ValidationErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "slug")

	_, err = svc.CreateGroup(context.Background(), "", "", "")
	fieldErrs = nil
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "title")
	assert.Contains(t, fieldErrs, "slug")
	assert.Contains(t, fieldErrs, "description")

	_, err = svc.CreateGroup(context.Background(), "ok", string(make([]byte, 51)), "desc")
	fieldErrs = nil
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "slug")

	got, err := svc.GetGroup(context.Background(), "cooking")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.GetGroup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreateGroup(context.Background(), "Baking", "baking", "bread and such")
	require.NoError(t, err)
	groups, err := svc.ListGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Baking", groups[0].Title, "groups listed by title")
}

func TestValidationErrorsMessage(t *testing.T) {
	err := ValidationErrors{"text": "text is required", "group": "group does not exist"}
	assert.Equal(t, "validation failed: group: group does not exist; text: text is required", err.Error())
	assert.False(t, errors.Is(err, ErrNotFound))
}
