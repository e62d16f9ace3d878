package vector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/hyperjump/zukan/internal/models"
)

// FormatVersion is the on-disk layout version written by Save and required by Load.
const FormatVersion = 1

// Files written inside an index directory.
const (
	MetaFile    = "meta.json"
	UnitsFile   = "units.json"
	VectorsFile = "vectors.zst"
)

const metricInnerProduct = "inner_product"

// Meta describes a saved index.
type Meta struct {
	Version    int       `json:"version"`
	IndexID    string    `json:"index_id"`
	Dimensions int       `json:"dimensions"`
	Count      int       `json:"count"`
	Metric     string    `json:"metric"`
	Model      string    `json:"model,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReadMeta reads the metadata of the index saved in dir.
func ReadMeta(dir string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, fmt.Errorf("read index metadata: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse index metadata: %w", err)
	}
	return &meta, nil
}

// Save writes the index to dir, creating it if needed. Each file is written to a temporary
// name and renamed into place.
func (m *MemoryIndex) Save(dir string) error {
	m.mu.RLock()
	s, model := m.state, m.model
	m.mu.RUnlock()
	if s == nil {
		return ErrNotInitialized
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	if err := writeFileAtomic(filepath.Join(dir, VectorsFile), func(w io.Writer) error {
		return writeVectors(w, m.dimensions, s.vectors)
	}); err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, UnitsFile), func(w io.Writer) error {
		return json.NewEncoder(w).Encode(s.units)
	}); err != nil {
		return fmt.Errorf("write units: %w", err)
	}
	meta := Meta{
		Version:    FormatVersion,
		IndexID:    s.id,
		Dimensions: m.dimensions,
		Count:      len(s.units),
		Metric:     metricInnerProduct,
		Model:      model,
		CreatedAt:  time.Now().UTC(),
	}
	// Metadata goes last so a directory with a readable meta.json is complete.
	if err := writeFileAtomic(filepath.Join(dir, MetaFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Load replaces the index with the one saved in dir. The saved format version and
// dimensionality must match; on any error the current contents are kept.
func (m *MemoryIndex) Load(dir string) error {
	meta, err := ReadMeta(dir)
	if err != nil {
		return err
	}
	if meta.Version != FormatVersion {
		return fmt.Errorf("%w: format version %d, expected %d", ErrIncompatible, meta.Version, FormatVersion)
	}
	if meta.Dimensions != m.dimensions {
		return fmt.Errorf("%w: index has dimension %d, embedder produces %d", ErrIncompatible, meta.Dimensions, m.dimensions)
	}

	unitsData, err := os.ReadFile(filepath.Join(dir, UnitsFile))
	if err != nil {
		return fmt.Errorf("read units: %w", err)
	}
	var units []models.ContentUnit
	if err := json.Unmarshal(unitsData, &units); err != nil {
		return fmt.Errorf("parse units: %w", err)
	}
	if len(units) != meta.Count {
		return fmt.Errorf("%w: metadata count %d, %d units", ErrIncompatible, meta.Count, len(units))
	}

	f, err := os.Open(filepath.Join(dir, VectorsFile))
	if err != nil {
		return fmt.Errorf("open vectors: %w", err)
	}
	defer f.Close()
	vectors, err := readVectors(f, m.dimensions, meta.Count)
	if err != nil {
		return fmt.Errorf("read vectors: %w", err)
	}
	s, err := m.newSnapshot(meta.IndexID, units, vectors)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.state = s
	if meta.Model != "" && m.model == "" {
		m.model = meta.Model
	}
	m.mu.Unlock()
	return nil
}

// writeVectors writes zstd-compressed dimension (4), count (4), then each vector as
// dimension little-endian float32s.
func writeVectors(w io.Writer, dims int, vectors [][]float32) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := binary.Write(enc, binary.LittleEndian, uint32(dims)); err != nil {
		enc.Close()
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(enc, binary.LittleEndian, uint32(len(vectors))); err != nil {
		enc.Close()
		return fmt.Errorf("write count: %w", err)
	}
	for i, v := range vectors {
		if _, err := enc.Write(float32SliceToBytes(v)); err != nil {
			enc.Close()
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return enc.Close()
}

// readVectors decodes a vectors file that must hold exactly count vectors of dims
// dimensions. The header count is checked before anything is allocated.
func readVectors(r io.Reader, dims, count int) ([][]float32, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var dim, n uint32
	if err := binary.Read(dec, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != dims {
		return nil, fmt.Errorf("%w: vectors have dimension %d, expected %d", ErrIncompatible, dim, dims)
	}
	if err := binary.Read(dec, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	if int64(n) != int64(count) {
		return nil, fmt.Errorf("%w: vectors file holds %d vectors, metadata count %d", ErrIncompatible, n, count)
	}
	vectors := make([][]float32, 0, count)
	buf := make([]byte, dims*4)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(dec, buf); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	var extra [1]byte
	if k, _ := dec.Read(extra[:]); k != 0 {
		return nil, fmt.Errorf("%w: trailing data after %d vectors", ErrIncompatible, count)
	}
	return vectors, nil
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
