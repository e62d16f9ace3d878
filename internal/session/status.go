package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/zukan/internal/embedding"
	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/internal/storage"
)

// Status describes the loaded document and its index.
type Status struct {
	Initialized bool   `json:"initialized"`
	Document    string `json:"document,omitempty"`
	Pages       int    `json:"pages"`
	IndexID     string `json:"index_id,omitempty"`
	Units       int    `json:"units"`
	TextUnits   int    `json:"text_units"`
	ImageUnits  int    `json:"image_units"`
	Images      int    `json:"images"`
	Dropped     int    `json:"dropped"`
	Dimensions  int    `json:"dimensions"`
	Model       string `json:"model"`
	// TextCache is set when the embedder caches text vectors.
	TextCache *embedding.CacheStats `json:"text_cache,omitempty"`

	IndexDir       string           `json:"index_dir,omitempty"`
	IndexFiles     map[string]int64 `json:"index_files,omitempty"`
	DiskUsageBytes int64            `json:"disk_usage_bytes,omitempty"`
	// SavedImages counts the images in the saved images database.
	SavedImages int64 `json:"saved_images,omitempty"`
}

// Status reports the current document and index. Disk usage is included once the index
// has been saved or loaded.
func (s *Session) Status(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	units := s.index.Units()
	counts := models.CountByKind(units)
	st := Status{
		Initialized: s.index.Initialized(),
		Document:    s.document,
		Pages:       s.pages,
		IndexID:     s.index.ID(),
		Units:       len(units),
		TextUnits:   counts[models.KindText],
		ImageUnits:  counts[models.KindImage],
		Images:      s.images.Len(),
		Dropped:     s.dropped,
		Dimensions:  s.index.Dimensions(),
		Model:       s.embedder.Model(),
		IndexDir:    s.savedDir,
	}
	if r, ok := s.embedder.(embedding.CacheReporter); ok {
		stats := r.CacheStats()
		st.TextCache = &stats
	}
	if s.savedDir == "" {
		return st
	}
	files, err := storage.IndexFiles(s.savedDir)
	if err != nil {
		s.logger.Warn("status: list index files failed", zap.Error(err))
		return st
	}
	st.IndexFiles = files
	usage, err := storage.DiskUsageBytes(s.savedDir)
	if err != nil {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
		return st
	}
	st.DiskUsageBytes = usage
	st.SavedImages = s.savedImages(ctx)
	return st
}

func (s *Session) savedImages(ctx context.Context) int64 {
	repo, err := s.openRepo(s.savedDir, false)
	if err != nil {
		s.logger.Debug("status: images database not opened", zap.Error(err))
		return 0
	}
	defer repo.Close()
	n, err := repo.CountImages(ctx)
	if err != nil {
		s.logger.Warn("status: count saved images failed", zap.Error(err))
		return 0
	}
	return n
}
