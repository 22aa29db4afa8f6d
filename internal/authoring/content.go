package authoring

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/docstore"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
)

// CreateContentItem validates the form and stores a content item.
func (s *Service) CreateContentItem(ctx context.Context, actor auth.Actor, courseID string, form education.NewContentItem) (education.ContentItem, error) {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return education.ContentItem{}, err
	}
	form = normalizeContent(form)
	if err := s.validator.Struct(form); err != nil {
		return education.ContentItem{}, err
	}

	now := s.timestamp()
	item := contentFromForm(form)
	item.ID = s.newID()
	item.CourseID = courseID
	item.CreatedBy = actor.ID
	item.CreatedAt = now
	item.UpdatedAt = now

	coll := contentColl(courseID)
	if err := s.store.Create(ctx, coll, item.ID, item); err != nil {
		return education.ContentItem{}, fmt.Errorf("create content item: %w", err)
	}

	s.emit(ctx, actor, EventContentCreated, coll, item.ID, map[string]any{"type": string(item.Type)})
	return item, nil
}

// ListContent returns the content of a course ordered by module position.
// Students only see published items.
func (s *Service) ListContent(ctx context.Context, actor auth.Actor, courseID string) ([]education.ContentItem, error) {
	if err := s.courseExists(ctx, courseID); err != nil {
		return nil, err
	}

	all, err := docstore.ListAs[education.ContentItem](ctx, s.store, contentColl(courseID))
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}

	out := []education.ContentItem{}
	for _, item := range all {
		if actor.CanAuthor() || item.IsPublished {
			out = append(out, item)
		}
	}
	sortBy(out, func(a, b education.ContentItem) bool {
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})
	return out, nil
}

// UpdateContentItem replaces an item's authored fields with the submitted
// form. Identity and creation metadata are kept.
func (s *Service) UpdateContentItem(ctx context.Context, actor auth.Actor, courseID, itemID string, form education.NewContentItem) (education.ContentItem, error) {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return education.ContentItem{}, err
	}
	coll := contentColl(courseID)
	existing, err := docstore.GetAs[education.ContentItem](ctx, s.store, coll, itemID)
	if err != nil {
		return education.ContentItem{}, fmt.Errorf("load content item: %w", err)
	}

	form = normalizeContent(form)
	if err := s.validator.Struct(form); err != nil {
		return education.ContentItem{}, err
	}

	item := contentFromForm(form)
	item.ID = existing.ID
	item.CourseID = existing.CourseID
	item.CreatedBy = existing.CreatedBy
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = s.timestamp()

	if err := s.store.Set(ctx, coll, item.ID, item); err != nil {
		return education.ContentItem{}, fmt.Errorf("update content item: %w", err)
	}

	s.emit(ctx, actor, EventContentUpdated, coll, item.ID, nil)
	return item, nil
}

// DeleteContentItem removes a content item.
func (s *Service) DeleteContentItem(ctx context.Context, actor auth.Actor, courseID, itemID string) error {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return err
	}
	coll := contentColl(courseID)
	if err := s.store.Delete(ctx, coll, itemID); err != nil {
		return fmt.Errorf("delete content item: %w", err)
	}
	s.emit(ctx, actor, EventContentDeleted, coll, itemID, nil)
	return nil
}

func normalizeContent(form education.NewContentItem) education.NewContentItem {
	form.Module = strings.TrimSpace(form.Module)
	form.Title = strings.TrimSpace(form.Title)
	form.MediaURL = strings.TrimSpace(form.MediaURL)

	tags := make([]string, 0, len(form.Tags))
	seen := make(map[string]bool, len(form.Tags))
	for _, t := range form.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	form.Tags = tags
	return form
}

func contentFromForm(form education.NewContentItem) education.ContentItem {
	return education.ContentItem{
		Module:          form.Module,
		Title:           form.Title,
		Type:            form.Type,
		Body:            form.Body,
		MediaURL:        form.MediaURL,
		DurationMinutes: form.DurationMinutes,
		Order:           form.Order,
		Tags:            form.Tags,
		IsPublished:     form.IsPublished,
	}
}

func sortBy[T any](items []T, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}
