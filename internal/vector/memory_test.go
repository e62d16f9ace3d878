package vector

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/zukan/internal/models"
)

func unit(i int) models.ContentUnit {
	return models.NewTextUnit(string(rune('a'+i)), i)
}

func normalized(v ...float32) []float32 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	n := float32(math.Sqrt(s))
	for i := range v {
		v[i] /= n
	}
	return v
}

func buildFive(t *testing.T) *MemoryIndex {
	t.Helper()
	idx, err := NewMemoryIndex(3)
	require.NoError(t, err)
	units := []models.ContentUnit{unit(0), unit(1), unit(2), unit(3), unit(4)}
	vecs := [][]float32{
		normalized(1, 0, 0),
		normalized(0.9, 0.1, 0),
		normalized(0, 1, 0),
		normalized(0, 0, 1),
		normalized(0.5, 0.5, 0),
	}
	require.NoError(t, idx.Build(context.Background(), units, vecs))
	return idx
}

func TestMemoryIndex_BuildSearch(t *testing.T) {
	idx := buildFive(t)
	assert.Equal(t, 5, idx.Size())
	assert.True(t, idx.Initialized())
	assert.NotEmpty(t, idx.ID())

	hits, err := idx.Search(context.Background(), normalized(1, 0, 0), 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].Unit.Content)
	assert.Equal(t, "b", hits[1].Unit.Content)
	assert.Equal(t, 1, hits[0].Rank)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestMemoryIndex_SearchBeforeBuild(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	require.NoError(t, err)
	_, err = idx.Search(context.Background(), []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, idx.Save(t.TempDir()), ErrNotInitialized)
	assert.False(t, idx.Initialized())
	assert.Nil(t, idx.Units())
}

func TestMemoryIndex_KLargerThanSizeReturnsAllOnce(t *testing.T) {
	idx := buildFive(t)
	hits, err := idx.Search(context.Background(), normalized(1, 0.2, 0), 10)
	require.NoError(t, err)
	require.Len(t, hits, 5)

	seen := map[string]bool{}
	for i, h := range hits {
		assert.False(t, seen[h.Unit.Content], "duplicate %s", h.Unit.Content)
		seen[h.Unit.Content] = true
		if i > 0 {
			assert.GreaterOrEqual(t, hits[i-1].Score, h.Score)
		}
	}
}

func TestMemoryIndex_DefaultK(t *testing.T) {
	idx, err := NewMemoryIndex(2, WithDefaultK(2))
	require.NoError(t, err)
	units := []models.ContentUnit{unit(0), unit(1), unit(2)}
	require.NoError(t, idx.Build(context.Background(), units, [][]float32{{1, 0}, {0, 1}, {1, 0}}))
	hits, err := idx.Search(context.Background(), []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestMemoryIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx, err := NewMemoryIndex(2)
	require.NoError(t, err)
	units := []models.ContentUnit{unit(0), unit(1), unit(2), unit(3)}
	vecs := [][]float32{{0, 1}, {1, 0}, {0, 1}, {1, 0}}
	require.NoError(t, idx.Build(context.Background(), units, vecs))

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 4)
	require.NoError(t, err)
	got := []string{hits[0].Unit.Content, hits[1].Unit.Content, hits[2].Unit.Content, hits[3].Unit.Content}
	assert.Equal(t, []string{"b", "d", "a", "c"}, got)
}

func TestMemoryIndex_BuildErrors(t *testing.T) {
	idx, err := NewMemoryIndex(2)
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, idx.Build(ctx, nil, nil), ErrBuild)
	assert.ErrorIs(t, idx.Build(ctx, []models.ContentUnit{}, [][]float32{}), ErrBuild)
	assert.ErrorIs(t, idx.Build(ctx, []models.ContentUnit{unit(0)}, nil), ErrBuild)
	assert.ErrorIs(t, idx.Build(ctx, []models.ContentUnit{unit(0), unit(1)}, [][]float32{{1, 0}}), ErrBuild)
	assert.ErrorIs(t, idx.Build(ctx, []models.ContentUnit{unit(0)}, [][]float32{{1, 0, 0}}), ErrBuild)
	assert.False(t, idx.Initialized())
}

func TestMemoryIndex_FailedBuildKeepsPrevious(t *testing.T) {
	idx := buildFive(t)
	id := idx.ID()
	err := idx.Build(context.Background(), []models.ContentUnit{unit(0)}, nil)
	require.ErrorIs(t, err, ErrBuild)
	assert.Equal(t, 5, idx.Size())
	assert.Equal(t, id, idx.ID())
}

func TestMemoryIndex_BuildCopiesInput(t *testing.T) {
	idx, err := NewMemoryIndex(2)
	require.NoError(t, err)
	vec := []float32{1, 0}
	require.NoError(t, idx.Build(context.Background(), []models.ContentUnit{unit(0)}, [][]float32{vec}))
	vec[0] = -1
	hits, err := idx.Search(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestMemoryIndex_QueryDimensionMismatch(t *testing.T) {
	idx := buildFive(t)
	_, err := idx.Search(context.Background(), []float32{1, 0}, 1)
	assert.Error(t, err)
}

func TestMemoryIndex_SaveLoadRoundTrip(t *testing.T) {
	idx := buildFive(t)
	dir := filepath.Join(t.TempDir(), "index")
	require.NoError(t, idx.Save(dir))

	loaded, err := NewMemoryIndex(3)
	require.NoError(t, err)
	require.NoError(t, loaded.Load(dir))
	assert.Equal(t, idx.Size(), loaded.Size())
	assert.Equal(t, idx.ID(), loaded.ID())
	assert.Equal(t, idx.Units(), loaded.Units())

	queries := [][]float32{normalized(1, 0, 0), normalized(0, 1, 1), normalized(0.3, 0.3, 0.9)}
	for _, q := range queries {
		want, err := idx.Search(context.Background(), q, 10)
		require.NoError(t, err)
		got, err := loaded.Search(context.Background(), q, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	meta, err := ReadMeta(dir)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, meta.Version)
	assert.Equal(t, 3, meta.Dimensions)
	assert.Equal(t, 5, meta.Count)
	assert.Equal(t, "inner_product", meta.Metric)
}

func TestMemoryIndex_LoadRejectsDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, buildFive(t).Save(dir))

	other, err := NewMemoryIndex(4)
	require.NoError(t, err)
	err = other.Load(dir)
	assert.ErrorIs(t, err, ErrIncompatible)
	assert.False(t, other.Initialized())
}

func TestMemoryIndex_LoadRejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, buildFive(t).Save(dir))

	meta, err := ReadMeta(dir)
	require.NoError(t, err)
	meta.Version = FormatVersion + 1
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFile), data, 0644))

	idx, err := NewMemoryIndex(3)
	require.NoError(t, err)
	assert.True(t, errors.Is(idx.Load(dir), ErrIncompatible))
}

func TestMemoryIndex_FailedLoadKeepsCurrent(t *testing.T) {
	idx := buildFive(t)
	id := idx.ID()
	err := idx.Load(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, id, idx.ID())
	assert.Equal(t, 5, idx.Size())
}

func TestMemoryIndex_LoadRejectsTruncatedVectors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, buildFive(t).Save(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, VectorsFile), []byte{0x28, 0xb5, 0x2f, 0xfd}, 0644))

	idx, err := NewMemoryIndex(3)
	require.NoError(t, err)
	assert.Error(t, idx.Load(dir))
	assert.False(t, idx.Initialized())
}

// writeRawVectors writes a vectors file with the given header followed by payload.
func writeRawVectors(t *testing.T, dir string, dims, count uint32, payload []float32) {
	t.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, binary.Write(enc, binary.LittleEndian, dims))
	require.NoError(t, binary.Write(enc, binary.LittleEndian, count))
	require.NoError(t, binary.Write(enc, binary.LittleEndian, payload))
	require.NoError(t, enc.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, VectorsFile), buf.Bytes(), 0644))
}

func TestMemoryIndex_LoadRejectsBadVectorCount(t *testing.T) {
	tests := []struct {
		name    string
		count   uint32
		payload []float32
	}{
		{"huge header count", 0xFFFFFFFF, make([]float32, 15)},
		{"fewer than metadata", 4, make([]float32, 12)},
		{"trailing vector", 5, make([]float32, 18)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, buildFive(t).Save(dir))
			writeRawVectors(t, dir, 3, tt.count, tt.payload)

			idx, err := NewMemoryIndex(3)
			require.NoError(t, err)
			err = idx.Load(dir)
			assert.ErrorIs(t, err, ErrIncompatible)
			assert.False(t, idx.Initialized())
		})
	}
}

func TestMemoryIndex_LoadKeepsCurrentOnBadVectors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, buildFive(t).Save(dir))
	writeRawVectors(t, dir, 3, 0xFFFFFFFF, nil)

	idx := buildFive(t)
	id := idx.ID()
	require.Error(t, idx.Load(dir))
	assert.Equal(t, id, idx.ID())
	assert.Equal(t, 5, idx.Size())
}

func TestMemoryIndex_ConcurrentSaveLoad(t *testing.T) {
	src := t.TempDir()
	saved := buildFive(t)
	require.NoError(t, saved.Save(src))

	idx, err := NewMemoryIndex(3)
	require.NoError(t, err)
	require.NoError(t, idx.Load(src))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		dst := t.TempDir()
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, idx.Load(src))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, idx.Save(dst))
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, idx.Size())
}

func TestInnerProduct(t *testing.T) {
	assert.InDelta(t, 0.0, InnerProduct([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 1.0, InnerProduct(normalized(1, 1), normalized(1, 1)), 1e-6)
	assert.Zero(t, InnerProduct([]float32{1}, []float32{1, 2}))
}

func BenchmarkMemoryIndexSearch(b *testing.B) {
	const n, dims = 1000, 512
	idx, _ := NewMemoryIndex(dims)
	units := make([]models.ContentUnit, n)
	vecs := make([][]float32, n)
	for i := 0; i < n; i++ {
		units[i] = models.NewTextUnit("chunk", i)
		vecs[i] = make([]float32, dims)
		vecs[i][i%dims] = 1
	}
	_ = idx.Build(context.Background(), units, vecs)
	query := make([]float32, dims)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(context.Background(), query, 10)
	}
}
