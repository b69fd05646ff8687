package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/san-kum/gpsolve/internal/itp"
)

const (
	metaFile    = "metadata.json"
	historyFile = "convergence.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one solver run. Wavefunctions are not persisted.
type RunMetadata struct {
	ID         string             `json:"id"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Threads    int                `json:"threads"`
	Points     int                `json:"points"`
	Step       float64            `json:"step"`
	Mass       float64            `json:"mass"`
	Boundary   string             `json:"boundary"`
	Propagator string             `json:"propagator"`
	Order      string             `json:"order"`
	Potential  string             `json:"potential"`
	Params     map[string]float64 `json:"params,omitempty"`
	Mu         float64            `json:"mu"`
	Lambda     float64            `json:"lambda"`
	Particles  float64            `json:"particles"`
	Solver     itp.Params         `json:"solver"`
	Status     string             `json:"status"`
	Erms       float64            `json:"erms"`
	BestErms   float64            `json:"best_erms"`
	Tau        float64            `json:"tau"`
	Iterations int                `json:"iterations"`
	Energies   []float64          `json:"energies"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	ElapsedMS  int64              `json:"elapsed_ms"`
}

// Save writes meta and history under a fresh run directory and returns the
// run id. meta.ID and meta.Timestamp are filled in when empty.
func (s *Store) Save(meta RunMetadata, history []itp.Sample) (string, error) {
	if meta.ID == "" {
		meta.ID = xid.New().String()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Erms = finite(meta.Erms)
	meta.BestErms = finite(meta.BestErms)
	for k, v := range meta.Metrics {
		meta.Metrics[k] = finite(v)
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	mf, err := os.Create(filepath.Join(runDir, metaFile))
	if err != nil {
		return "", err
	}
	defer mf.Close()

	enc := json.NewEncoder(mf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	hf, err := os.Create(filepath.Join(runDir, historyFile))
	if err != nil {
		return "", err
	}
	defer hf.Close()

	w := csv.NewWriter(hf)
	if err := w.Write([]string{"iteration", "erms", "tau"}); err != nil {
		return "", err
	}
	for _, h := range history {
		row := []string{
			strconv.Itoa(h.Iteration),
			strconv.FormatFloat(h.Erms, 'e', 9, 64),
			strconv.FormatFloat(h.Tau, 'e', 9, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metaFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadHistory(runID string) ([]itp.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, historyFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = 3

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(records) < 2 {
		return []itp.Sample{}, nil
	}

	out := make([]itp.Sample, 0, len(records)-1)
	for _, rec := range records[1:] {
		it, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		erms, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			continue
		}
		tau, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			continue
		}
		out = append(out, itp.Sample{Iteration: it, Erms: erms, Tau: tau})
	}
	return out, nil
}

// Export is the JSON document written by WriteJSON.
type Export struct {
	Run     RunMetadata  `json:"run"`
	History []itp.Sample `json:"history"`
}

// WriteJSON writes the metadata and history of a stored run to w.
func (s *Store) WriteJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	history, err := s.LoadHistory(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Export{Run: *meta, History: history})
}

// finite maps ±Inf and NaN to -1 since encoding/json rejects them.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return -1
	}
	return v
}
