// Package services holds the content core: listing, fetching, creating and
// updating posts and comments, with validation and authorship enforcement.
// It knows nothing about HTTP; controllers translate its results and errors.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/akulikov/bloghub/cache"
	"github.com/akulikov/bloghub/models"
	"github.com/akulikov/bloghub/pagination"
	"github.com/akulikov/bloghub/utils"
)

const indexCachePrefix = "posts:index:"

// Identity is the authenticated caller as established by the auth middleware.
// Write operations take the author from here, never from the request body.
type Identity struct {
	UserID   uint
	Username string
}

// PostFilter selects which listing to produce.
type PostFilter struct {
	kind     filterKind
	slug     string
	username string
}

type filterKind int

const (
	filterAll filterKind = iota
	filterByGroup
	filterByAuthor
)

// AllPosts lists every post.
func AllPosts() PostFilter { return PostFilter{kind: filterAll} }

// PostsByGroup lists posts published into the group with the given slug.
func PostsByGroup(slug string) PostFilter {
	return PostFilter{kind: filterByGroup, slug: slug}
}

// PostsByAuthor lists posts written by the user with the given username.
func PostsByAuthor(username string) PostFilter {
	return PostFilter{kind: filterByAuthor, username: username}
}

// PostInput carries the client-supplied fields of a new post.
type PostInput struct {
	Text      string
	GroupSlug string
	Image     string
}

// PostUpdate carries the fields of an edit; nil means "leave unchanged".
// An empty GroupSlug detaches the post from its group.
type PostUpdate struct {
	Text      *string
	GroupSlug *string
	Image     *string
}

// ContentService implements the read and write operations over posts and
// comments. The listing cache is a collaborator handed in at construction.
type ContentService struct {
	db       *gorm.DB
	cache    cache.Store
	pageSize int
	indexTTL time.Duration
}

// NewContentService wires the service to its store, cache and configuration.
func NewContentService(db *gorm.DB, store cache.Store, pageSize int, indexTTL time.Duration) *ContentService {
	return &ContentService{
		db:       db,
		cache:    store,
		pageSize: pageSize,
		indexTTL: indexTTL,
	}
}

// ListPosts resolves the filter to a page of posts ordered newest first
// (pub_date, then id, descending — stable for same-instant posts).
//
// The unfiltered index is served through the listing cache: stale results are
// acceptable for up to the configured TTL and writes do not invalidate. Group
// and author listings always hit the database.
func (s *ContentService) ListPosts(ctx context.Context, filter PostFilter, page int) (pagination.Page[models.Post], error) {
	var empty pagination.Page[models.Post]

	var cacheKey string
	if filter.kind == filterAll {
		cacheKey = fmt.Sprintf("%spage=%d", indexCachePrefix, page)
		if b, ok := s.cache.GetBytes(cacheKey); ok {
			var cached pagination.Page[models.Post]
			if err := json.Unmarshal(b, &cached); err == nil {
				return cached, nil
			}
		}
	}

	query := s.db.WithContext(ctx).Model(&models.Post{})
	switch filter.kind {
	case filterByGroup:
		var group models.Group
		if err := s.db.WithContext(ctx).Where("slug = ?", filter.slug).First(&group).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return empty, ErrNotFound
			}
			return empty, err
		}
		query = query.Where("group_id = ?", group.ID)
	case filterByAuthor:
		var author models.User
		if err := s.db.WithContext(ctx).Where("username = ?", filter.username).First(&author).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return empty, ErrNotFound
			}
			return empty, err
		}
		query = query.Where("author_id = ?", author.ID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return empty, err
	}

	totalPages := pagination.TotalPages(total, s.pageSize)
	number := pagination.Clamp(page, totalPages)

	var posts []models.Post
	if err := query.
		Preload("Author").
		Preload("Group").
		Order("pub_date DESC, id DESC").
		Offset(pagination.Offset(number, s.pageSize)).
		Limit(s.pageSize).
		Find(&posts).Error; err != nil {
		return empty, err
	}

	result := pagination.Page[models.Post]{
		Items:      posts,
		Total:      total,
		TotalPages: totalPages,
		Number:     number,
		Size:       s.pageSize,
	}

	if cacheKey != "" {
		if b, err := json.Marshal(result); err == nil {
			s.cache.SetBytes(cacheKey, b, s.indexTTL)
		}
	}

	return result, nil
}

// ClearIndexCache drops every cached index page. Writes never call this; it
// exists for tests and operational tooling.
func (s *ContentService) ClearIndexCache() {
	s.cache.Clear(indexCachePrefix)
}

// GetPost fetches a post through its canonical author/id address. A post
// requested under the wrong username is reported exactly like a missing one.
func (s *ContentService) GetPost(ctx context.Context, username string, postID uint) (models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created DESC, id DESC")
		}).
		Preload("Comments.Author").
		First(&post, postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Post{}, ErrNotFound
		}
		return models.Post{}, err
	}
	if post.Author.Username != username {
		return models.Post{}, ErrNotFound
	}
	return post, nil
}

// CreatePost validates the input and persists a new post authored by the
// caller. The author and publication time are set here and never change.
func (s *ContentService) CreatePost(ctx context.Context, caller Identity, input PostInput) (models.Post, error) {
	text := strings.TrimSpace(utils.Sanitize(input.Text))
	fieldErrs := ValidationErrors{}
	if text == "" {
		fieldErrs["text"] = "text is required"
	}

	var groupID *uint
	if input.GroupSlug != "" {
		id, err := resolveGroup(ctx, s.db, input.GroupSlug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// A dangling group reference on a write is a bad request,
				// not a missing resource.
				fieldErrs["group"] = "group does not exist"
			} else {
				return models.Post{}, err
			}
		} else {
			groupID = &id
		}
	}
	if len(fieldErrs) > 0 {
		return models.Post{}, fieldErrs
	}

	post := models.Post{
		Text:     text,
		AuthorID: caller.UserID,
		GroupID:  groupID,
		Image:    input.Image,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return models.Post{}, err
	}

	if err := s.db.WithContext(ctx).Preload("Author").Preload("Group").First(&post, post.ID).Error; err != nil {
		return models.Post{}, err
	}
	return post, nil
}

// UpdatePost applies an edit to the caller's own post. For any other caller
// it mutates nothing and returns the unchanged post alongside ErrNotAuthor.
// The check and the write run in one transaction so a concurrent delete
// surfaces as ErrNotFound rather than a write against a vanished row.
func (s *ContentService) UpdatePost(ctx context.Context, caller Identity, postID uint, update PostUpdate) (models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Author").Preload("Group").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !IsAuthor(caller.UserID, post.AuthorID) {
			return ErrNotAuthor
		}

		changes := map[string]interface{}{}
		fieldErrs := ValidationErrors{}

		if update.Text != nil {
			text := strings.TrimSpace(utils.Sanitize(*update.Text))
			if text == "" {
				fieldErrs["text"] = "text is required"
			} else {
				changes["text"] = text
			}
		}
		if update.GroupSlug != nil {
			if *update.GroupSlug == "" {
				changes["group_id"] = nil
			} else {
				id, err := resolveGroup(ctx, tx, *update.GroupSlug)
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						fieldErrs["group"] = "group does not exist"
					} else {
						return err
					}
				} else {
					changes["group_id"] = id
				}
			}
		}
		if update.Image != nil {
			changes["image"] = *update.Image
		}

		if len(fieldErrs) > 0 {
			return fieldErrs
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&post).Updates(changes).Error; err != nil {
			return err
		}
		return tx.Preload("Author").Preload("Group").First(&post, post.ID).Error
	})
	return post, err
}

// AddComment attaches a comment to an existing post on behalf of the caller.
// Existence check and insert share one transaction snapshot; a missing post is
// reported before any field validation.
func (s *ContentService) AddComment(ctx context.Context, caller Identity, postID uint, text string) (models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		text = strings.TrimSpace(utils.Sanitize(text))
		if text == "" {
			return ValidationErrors{"text": "text is required"}
		}

		comment = models.Comment{
			PostID:   post.ID,
			AuthorID: caller.UserID,
			Text:     text,
		}
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Preload("Author").First(&comment, comment.ID).Error
	})
	if err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

func resolveGroup(ctx context.Context, db *gorm.DB, slug string) (uint, error) {
	var group models.Group
	if err := db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		return 0, err
	}
	return group.ID, nil
}
