package authoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/blob"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/docstore"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/progress"
)

// UploadMaterial validates the upload, streams body to blob storage while
// publishing progress under uploadID, and writes the material document. If
// the document write fails the stored blob is removed. An empty uploadID
// gets a fresh one; progress is always published. A uploadID that already
// tracks someone else's upload is rejected with ErrUploadIDInUse.
func (s *Service) UploadMaterial(ctx context.Context, actor auth.Actor, courseID string, form education.NewMaterial, body io.Reader, uploadID string) (education.Material, error) {
	if uploadID == "" {
		uploadID = s.newID()
	} else if err := s.claimUpload(ctx, actor, uploadID); err != nil {
		return education.Material{}, err
	}
	s.reportProgress(ctx, progress.Update{
		UploadID:   uploadID,
		OwnerID:    actor.ID,
		State:      progress.StatePending,
		BytesTotal: form.SizeBytes,
	})

	m, err := s.uploadMaterial(ctx, actor, courseID, form, body, uploadID)
	if err != nil {
		s.reportProgress(ctx, progress.Update{
			UploadID:   uploadID,
			OwnerID:    actor.ID,
			State:      progress.StateFailed,
			BytesTotal: form.SizeBytes,
			Message:    Failure(err).Message,
		})
		return education.Material{}, err
	}

	s.reportProgress(ctx, progress.Update{
		UploadID:   uploadID,
		OwnerID:    actor.ID,
		State:      progress.StateCompleted,
		BytesDone:  m.SizeBytes,
		BytesTotal: m.SizeBytes,
		Percent:    100,
		MaterialID: m.ID,
	})
	return m, nil
}

func (s *Service) uploadMaterial(ctx context.Context, actor auth.Actor, courseID string, form education.NewMaterial, body io.Reader, uploadID string) (education.Material, error) {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return education.Material{}, err
	}

	form.Title = strings.TrimSpace(form.Title)
	form.Description = strings.TrimSpace(form.Description)
	form.FileName = strings.TrimSpace(form.FileName)
	if err := s.validator.Struct(form); err != nil {
		return education.Material{}, err
	}
	if form.SizeBytes > s.maxUploadBytes {
		return education.Material{}, education.NewValidationError(education.FieldError{
			Field:   "size_bytes",
			Message: fmt.Sprintf("file is larger than the %d MB limit", s.maxUploadBytes>>20),
		})
	}

	id := s.newID()
	key := blob.MaterialKey(courseID, id, form.FileName)

	// One extra byte lets the storage driver detect an oversized body.
	limited := io.LimitReader(body, form.SizeBytes+1)
	pr := blob.NewProgressReader(limited, form.SizeBytes, func(done, total int64) {
		s.reportProgress(ctx, progress.Update{
			UploadID:   uploadID,
			OwnerID:    actor.ID,
			State:      progress.StateUploading,
			BytesDone:  done,
			BytesTotal: total,
			Percent:    blob.Percent(done, total),
		})
	})

	obj, err := s.blobs.Put(ctx, key, pr, form.SizeBytes, form.ContentType)
	if err != nil {
		return education.Material{}, fmt.Errorf("store material file: %w", err)
	}

	m := education.Material{
		ID:          id,
		CourseID:    courseID,
		Title:       form.Title,
		Description: form.Description,
		FileName:    form.FileName,
		ContentType: form.ContentType,
		SizeBytes:   obj.Size,
		StorageKey:  obj.Key,
		DownloadURL: obj.URL,
		UploadedBy:  actor.ID,
		UploadedAt:  s.timestamp(),
	}

	coll := materialsColl(courseID)
	if err := s.store.Create(ctx, coll, m.ID, m); err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), obj.Key); derr != nil {
			slog.Warn("failed to remove orphaned material file",
				"key", obj.Key,
				"error", derr,
			)
		}
		return education.Material{}, fmt.Errorf("create material: %w", err)
	}

	s.emit(ctx, actor, EventMaterialUploaded, coll, m.ID, map[string]any{
		"file_name":  m.FileName,
		"size_bytes": m.SizeBytes,
	})
	return m, nil
}

// ListMaterials returns the materials of a course ordered by upload time.
func (s *Service) ListMaterials(ctx context.Context, _ auth.Actor, courseID string) ([]education.Material, error) {
	if err := s.courseExists(ctx, courseID); err != nil {
		return nil, err
	}

	out, err := docstore.ListAs[education.Material](ctx, s.store, materialsColl(courseID))
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	sortBy(out, func(a, b education.Material) bool {
		if a.UploadedAt.Equal(b.UploadedAt) {
			return a.ID < b.ID
		}
		return a.UploadedAt.Before(b.UploadedAt)
	})
	return out, nil
}

// DeleteMaterial removes the material document and then its file. A file
// that cannot be removed is logged and left behind.
func (s *Service) DeleteMaterial(ctx context.Context, actor auth.Actor, courseID, materialID string) error {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return err
	}

	coll := materialsColl(courseID)
	m, err := docstore.GetAs[education.Material](ctx, s.store, coll, materialID)
	if err != nil {
		return fmt.Errorf("load material: %w", err)
	}
	if err := s.store.Delete(ctx, coll, materialID); err != nil {
		return fmt.Errorf("delete material: %w", err)
	}

	if err := s.blobs.Delete(ctx, m.StorageKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
		slog.Warn("failed to remove material file",
			"material_id", materialID,
			"key", m.StorageKey,
			"error", err,
		)
	}

	s.emit(ctx, actor, EventMaterialDeleted, coll, materialID, map[string]any{"file_name": m.FileName})
	return nil
}

// UploadProgress returns the latest snapshot of an upload. Uploads started
// by other users look like unknown ids, except to admins.
func (s *Service) UploadProgress(ctx context.Context, actor auth.Actor, uploadID string) (progress.Update, error) {
	u, err := s.progress.Get(ctx, uploadID)
	if err != nil {
		return progress.Update{}, err
	}
	if !canFollow(actor, u) {
		return progress.Update{}, fmt.Errorf("%w: %s", progress.ErrNotFound, uploadID)
	}
	return u, nil
}

// FollowUpload subscribes to an upload that may not have started yet.
// Updates from other users' uploads under the same id are dropped. The
// channel closes after a terminal update, when ctx is done or when stop is
// called.
func (s *Service) FollowUpload(ctx context.Context, actor auth.Actor, uploadID string) (<-chan progress.Update, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	in, stop, err := s.progress.Subscribe(ctx, uploadID)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	out := make(chan progress.Update, cap(in))
	go func() {
		defer close(out)
		for u := range in {
			if !canFollow(actor, u) {
				continue
			}
			select {
			case out <- u:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, func() { cancel(); stop() }, nil
}

// claimUpload rejects a client-chosen id whose snapshot belongs to someone
// else. A lookup failure is logged and the upload proceeds.
func (s *Service) claimUpload(ctx context.Context, actor auth.Actor, uploadID string) error {
	u, err := s.progress.Get(ctx, uploadID)
	switch {
	case errors.Is(err, progress.ErrNotFound):
		return nil
	case err != nil:
		slog.Warn("failed to check upload id", "upload_id", uploadID, "error", err)
		return nil
	case u.OwnerID != actor.ID:
		return fmt.Errorf("%w: %s", ErrUploadIDInUse, uploadID)
	}
	return nil
}

func canFollow(actor auth.Actor, u progress.Update) bool {
	return actor.IsAdmin() || (u.OwnerID != "" && u.OwnerID == actor.ID)
}

func (s *Service) reportProgress(ctx context.Context, u progress.Update) {
	u.UpdatedAt = s.timestamp()
	if err := s.progress.Update(context.WithoutCancel(ctx), u); err != nil {
		slog.Warn("failed to publish upload progress",
			"upload_id", u.UploadID,
			"state", u.State,
			"error", err,
		)
	}
}
