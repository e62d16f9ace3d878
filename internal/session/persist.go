package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/internal/storage"
	"github.com/hyperjump/zukan/internal/vector"
)

// Save writes the index and its image store to dir.
func (s *Session) Save(ctx context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.index.Initialized() {
		return vector.ErrNotInitialized
	}
	if err := s.index.Save(dir); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	manifest := storage.Manifest{IndexID: s.index.ID(), Document: s.document, Pages: s.pages}
	repo, err := s.openRepo(dir, true)
	if err != nil {
		return fmt.Errorf("open images: %w", err)
	}
	defer repo.Close()
	if err := repo.ReplaceImages(ctx, manifest, s.images); err != nil {
		return fmt.Errorf("save images: %w", err)
	}
	s.savedDir = dir
	s.logger.Info("index saved",
		zap.String("dir", dir),
		zap.String("index_id", manifest.IndexID),
		zap.Int("images", s.images.Len()))
	return nil
}

// Load replaces the current index and image store with the ones saved in dir. Nothing
// changes if either fails to load. An image store that does not cover every image unit is
// accepted; the uncovered images are left out of answers.
func (s *Session) Load(ctx context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	images, manifest, err := s.readImages(ctx, dir)
	if err != nil {
		return err
	}
	if err := s.index.Load(dir); err != nil {
		return err
	}
	s.images = images
	s.document = manifest.Document
	s.pages = manifest.Pages
	s.dropped = 0
	s.savedDir = dir

	if manifest.IndexID != "" && manifest.IndexID != s.index.ID() {
		s.logger.Warn("image store was saved with a different index",
			zap.String("dir", dir),
			zap.String("index_id", s.index.ID()),
			zap.String("images_index_id", manifest.IndexID))
	}
	if missing := missingImages(s.index.Units(), images); missing > 0 {
		s.logger.Warn("image store does not cover every image unit",
			zap.String("dir", dir),
			zap.Int("missing", missing))
	}
	s.logger.Info("index loaded",
		zap.String("dir", dir),
		zap.String("index_id", s.index.ID()),
		zap.Int("units", s.index.Size()),
		zap.Int("images", images.Len()))
	return nil
}

// readImages returns the images and manifest saved in dir. A directory without an images
// database yields an empty store.
func (s *Session) readImages(ctx context.Context, dir string) (models.ImageStore, storage.Manifest, error) {
	repo, err := s.openRepo(dir, false)
	if errors.Is(err, storage.ErrNotFound) {
		return models.ImageStore{}, storage.Manifest{}, nil
	}
	if err != nil {
		return nil, storage.Manifest{}, fmt.Errorf("open images: %w", err)
	}
	defer repo.Close()
	images, err := repo.LoadImages(ctx)
	if err != nil {
		return nil, storage.Manifest{}, fmt.Errorf("load images: %w", err)
	}
	manifest, err := repo.Manifest(ctx)
	if err != nil {
		return nil, storage.Manifest{}, fmt.Errorf("load manifest: %w", err)
	}
	return images, manifest, nil
}

func missingImages(units []models.ContentUnit, images models.ImageStore) int {
	n := 0
	for _, u := range units {
		if u.Kind != models.KindImage {
			continue
		}
		if _, ok := images.Get(u.ImageID); !ok {
			n++
		}
	}
	return n
}
