package memory

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"catalograg/internal/domain"
	"catalograg/internal/vectorstore"
)

// DefaultTopK is used when Search is called with a non-positive k.
const DefaultTopK = 5

// Storage is an exact in-memory vector index using brute-force search.
// vectors[i] always belongs to chunks[i].
type Storage struct {
	mu        sync.RWMutex
	metric    vectorstore.Metric
	modelID   string
	dimension int
	vectors   [][]float32
	chunks    []domain.Chunk
	built     bool
}

// NewStorage creates an empty, unbuilt index. modelID is recorded in the bundle.
func NewStorage(metric vectorstore.Metric, modelID string) *Storage {
	if metric == "" {
		metric = vectorstore.MetricL2
	}
	return &Storage{metric: metric, modelID: modelID}
}

func (s *Storage) Build(entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return domain.ErrEmptyBuild
	}
	dim := len(entries[0].Vector)
	if dim == 0 {
		return fmt.Errorf("%w: zero-length vector", domain.ErrDimension)
	}
	if err := checkDimension(entries, dim); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dim
	s.vectors = nil
	s.chunks = nil
	s.add(entries)
	s.built = true
	return nil
}

func (s *Storage) Append(entries []domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.built {
		return errors.New("append to an index that was never built")
	}
	if err := checkDimension(entries, s.dimension); err != nil {
		return err
	}
	s.add(entries)
	return nil
}

func (s *Storage) add(entries []domain.IndexEntry) {
	for _, e := range entries {
		s.vectors = append(s.vectors, slices.Clone(e.Vector))
		s.chunks = append(s.chunks, e.Chunk)
	}
}

func checkDimension(entries []domain.IndexEntry, dim int) error {
	for i, e := range entries {
		if len(e.Vector) != dim {
			return fmt.Errorf("%w: entry %d has %d, want %d", domain.ErrDimension, i, len(e.Vector), dim)
		}
	}
	return nil
}

// Search returns the topK most relevant entries, ties broken by insertion order.
func (s *Storage) Search(vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = DefaultTopK
	}
	if len(s.vectors) == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimension, len(vector), s.dimension)
	}
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		scores[i] = s.score(s.vectors[i], vector)
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.SearchResult{Chunk: s.chunks[j], Score: scores[j]})
	}
	return results, nil
}

func (s *Storage) score(a, b []float32) float64 {
	if s.metric == vectorstore.MetricCosine {
		return cosine(a, b)
	}
	return 1 / (1 + squaredL2(a, b))
}

func squaredL2(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func (s *Storage) Metric() vectorstore.Metric { return s.metric }

// ModelID is the embedding model the vectors were produced with.
func (s *Storage) ModelID() string { return s.modelID }

// Entries returns a copy of all entries in insertion order.
func (s *Storage) Entries() []domain.IndexEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.IndexEntry, len(s.vectors))
	for i := range s.vectors {
		out[i] = domain.IndexEntry{Vector: slices.Clone(s.vectors[i]), Chunk: s.chunks[i]}
	}
	return out
}

// Save writes manifest, vectors and docstore into a temporary sibling directory
// and renames it to dir. A previous bundle is moved aside and removed only after
// the new one is in place, so a failed save leaves it intact.
func (s *Storage) Save(dir string) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.built {
		return domain.ErrEmptyBuild
	}
	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".tmp-")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(tmp)
		}
	}()

	manifest := vectorstore.Manifest{
		FormatVersion:  vectorstore.FormatVersion,
		Dimension:      s.dimension,
		Metric:         s.metric,
		Count:          len(s.vectors),
		EmbeddingModel: s.modelID,
	}
	if err := writeJSON(filepath.Join(tmp, vectorstore.ManifestFile), manifest); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := writeGob(filepath.Join(tmp, vectorstore.VectorsFile), s.vectors); err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}
	if err := writeJSON(filepath.Join(tmp, vectorstore.DocstoreFile), s.chunks); err != nil {
		return fmt.Errorf("write docstore: %w", err)
	}
	return swap(tmp, dir)
}

// swap renames tmp to dir. An existing dir is renamed to a backup first and
// restored if the final rename fails.
func swap(tmp, dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return os.Rename(tmp, dir)
	} else if err != nil {
		return err
	}
	backup := tmp + ".old"
	if err := os.Rename(dir, backup); err != nil {
		return fmt.Errorf("move previous bundle aside: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		if rerr := os.Rename(backup, dir); rerr != nil {
			return errors.Join(err, fmt.Errorf("restore previous bundle: %w", rerr))
		}
		return err
	}
	return os.RemoveAll(backup)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeGob(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadOptions constrains which bundles Load accepts. Zero values accept any.
type LoadOptions struct {
	Dimension int
	Metric    vectorstore.Metric
}

// Load reconstructs a Storage from a bundle written by Save. Every failure is a
// *domain.IndexLoadError.
func Load(dir string, opts LoadOptions) (*Storage, error) {
	dir = filepath.Clean(dir)
	fail := func(reason string, err error) (*Storage, error) {
		return nil, &domain.IndexLoadError{Path: dir, Reason: reason, Err: err}
	}

	var manifest vectorstore.Manifest
	if err := readJSON(filepath.Join(dir, vectorstore.ManifestFile), &manifest); err != nil {
		return fail("read manifest", err)
	}
	if manifest.FormatVersion != vectorstore.FormatVersion {
		return fail(fmt.Sprintf("unsupported format version %d", manifest.FormatVersion), nil)
	}
	metric, err := vectorstore.ParseMetric(string(manifest.Metric))
	if err != nil {
		return fail("manifest metric", err)
	}
	if opts.Metric != "" && opts.Metric != metric {
		return fail(fmt.Sprintf("metric %s, want %s", metric, opts.Metric), nil)
	}
	if opts.Dimension > 0 && opts.Dimension != manifest.Dimension {
		return fail(fmt.Sprintf("dimension %d, want %d", manifest.Dimension, opts.Dimension), nil)
	}

	var vectors [][]float32
	if err := readGob(filepath.Join(dir, vectorstore.VectorsFile), &vectors); err != nil {
		return fail("read vectors", err)
	}
	var chunks []domain.Chunk
	if err := readJSON(filepath.Join(dir, vectorstore.DocstoreFile), &chunks); err != nil {
		return fail("read docstore", err)
	}
	if len(vectors) == 0 || manifest.Dimension <= 0 {
		return fail("empty bundle", nil)
	}
	if len(vectors) != len(chunks) || len(vectors) != manifest.Count {
		return fail(fmt.Sprintf("%d vectors, %d chunks, manifest says %d", len(vectors), len(chunks), manifest.Count), nil)
	}
	for i, v := range vectors {
		if len(v) != manifest.Dimension {
			return fail(fmt.Sprintf("vector %d has dimension %d, want %d", i, len(v), manifest.Dimension), nil)
		}
	}

	return &Storage{
		metric:    metric,
		modelID:   manifest.EmbeddingModel,
		dimension: manifest.Dimension,
		vectors:   vectors,
		chunks:    chunks,
		built:     true,
	}, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}

var _ vectorstore.Storage = (*Storage)(nil)
