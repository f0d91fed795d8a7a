package notes

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/kuitang/colornote/internal/attachments"
	"github.com/kuitang/colornote/internal/errs"
	"github.com/kuitang/colornote/internal/obs"
)

// AttachImage stores data as an image of the note and appends its key to
// the note's image list. It returns the updated note and the new key.
func (s *Service) AttachImage(ctx context.Context, id string, data []byte, contentType string) (*Note, string, error) {
	if s.images == nil {
		return nil, "", errs.New(errs.Unavailable, "image storage is not configured")
	}
	n, err := s.Read(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := checkCanAddImage(n.Images); err != nil {
		return nil, "", err
	}

	key, err := s.images.Put(ctx, id, data, contentType)
	switch {
	case errors.Is(err, attachments.ErrNotImage):
		return nil, "", errs.Wrap(errs.InvalidArgument, "upload is not an image", err)
	case errors.Is(err, attachments.ErrTooLarge):
		return nil, "", errs.Wrap(errs.TooLarge, fmt.Sprintf("image exceeds %d bytes", attachments.MaxImageSize), err)
	case err != nil:
		return nil, "", errs.Wrap(errs.Unavailable, "failed to store image", err)
	}

	updated, err := s.mutate(ctx, id, func(n *Note) error {
		if err := checkCanAddImage(n.Images); err != nil {
			return err
		}
		n.Images = append(n.Images, key)
		return nil
	})
	if err != nil {
		s.deleteObject(ctx, key)
		return nil, "", err
	}
	return updated, key, nil
}

// RemoveImage drops key from the note and deletes the stored object.
func (s *Service) RemoveImage(ctx context.Context, id, key string) (*Note, error) {
	if !attachments.OwnedBy(key, id) {
		return nil, errs.Wrap(errs.NotFound, fmt.Sprintf("image not found: %s", key), ErrImageNotFound)
	}
	updated, err := s.mutate(ctx, id, func(n *Note) error {
		i := slices.Index(n.Images, key)
		if i < 0 {
			return errs.Wrap(errs.NotFound, fmt.Sprintf("image not found: %s", key), ErrImageNotFound)
		}
		n.Images = slices.Delete(n.Images, i, i+1)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deleteObject(ctx, key)
	return updated, nil
}

// Image returns the stored bytes of an image the note references.
func (s *Service) Image(ctx context.Context, id, key string) (attachments.Object, error) {
	if s.images == nil {
		return attachments.Object{}, errs.New(errs.Unavailable, "image storage is not configured")
	}
	n, err := s.Read(ctx, id)
	if err != nil {
		return attachments.Object{}, err
	}
	if !attachments.OwnedBy(key, id) || !slices.Contains(n.Images, key) {
		return attachments.Object{}, errs.Wrap(errs.NotFound, fmt.Sprintf("image not found: %s", key), ErrImageNotFound)
	}
	obj, err := s.images.Get(ctx, key)
	switch {
	case errors.Is(err, attachments.ErrObjectNotFound):
		return attachments.Object{}, errs.Wrap(errs.NotFound, fmt.Sprintf("image not found: %s", key), ErrImageNotFound)
	case err != nil:
		return attachments.Object{}, errs.Wrap(errs.Unavailable, "failed to load image", err)
	}
	return obj, nil
}

// ImageURL returns the public URL of an image key, or "" without storage.
func (s *Service) ImageURL(key string) string {
	if s.images == nil {
		return ""
	}
	return s.images.URL(key)
}

func (s *Service) deleteObject(ctx context.Context, key string) {
	if s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		obs.From(ctx).With("pkg", "notes").Warn("image_delete_failed", "key", key, "error", err)
	}
}

func (s *Service) purgeImages(ctx context.Context, id string) {
	if s.images == nil {
		return
	}
	n, err := s.images.DeleteNote(ctx, id)
	if err != nil {
		obs.From(ctx).With("pkg", "notes").Warn("note_images_delete_failed", "note_id", id, "deleted", n, "error", err)
		return
	}
	if n > 0 {
		obs.From(ctx).With("pkg", "notes").Debug("note_images_deleted", "note_id", id, "deleted", n)
	}
}
