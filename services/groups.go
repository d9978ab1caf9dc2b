package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/akulikov/bloghub/models"
)

const (
	maxGroupTitleLen = 200
	maxGroupSlugLen  = 50
)

// ListGroups returns every group ordered by title. Groups are few; the
// listing is not paginated.
func (s *ContentService) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := s.db.WithContext(ctx).Order("title").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// GetGroup looks a group up by its slug.
func (s *ContentService) GetGroup(ctx context.Context, slug string) (models.Group, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Group{}, ErrNotFound
		}
		return models.Group{}, err
	}
	return group, nil
}

// CreateGroup persists a new community. This is admin tooling; the admin
// check lives in the controller, content code never deletes or edits groups.
func (s *ContentService) CreateGroup(ctx context.Context, title, slug, description string) (models.Group, error) {
	title = strings.TrimSpace(title)
	slug = strings.TrimSpace(slug)
	description = strings.TrimSpace(description)

	fieldErrs := ValidationErrors{}
	if title == "" {
		fieldErrs["title"] = "title is required"
	} else if len(title) > maxGroupTitleLen {
		fieldErrs["title"] = "title must be 200 characters or less"
	}
	if slug == "" {
		fieldErrs["slug"] = "slug is required"
	} else if len(slug) > maxGroupSlugLen {
		fieldErrs["slug"] = "slug must be 50 characters or less"
	}
	if description == "" {
		fieldErrs["description"] = "description is required"
	}

	if slug != "" {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return models.Group{}, err
		}
		if count > 0 {
			fieldErrs["slug"] = "slug is already in use"
		}
	}
	if len(fieldErrs) > 0 {
		return models.Group{}, fieldErrs
	}

	group := models.Group{Title: title, Slug: slug, Description: description}
	if err := s.db.WithContext(ctx).Create(&group).Error; err != nil {
		return models.Group{}, err
	}
	return group, nil
}
