package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/xid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/san-kum/pulsetiming/internal/timing"
)

const (
	metadataFile = "metadata.json"
	designFile   = "design.csv"
	paramsFile   = "params.msgpack"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string    `json:"id"`
	Pulsar     string    `json:"pulsar"`
	Command    string    `json:"command"`
	Timestamp  time.Time `json:"timestamp"`
	NumTOAs    int       `json:"num_toas"`
	Components []string  `json:"components"`
	Columns    []string  `json:"columns"`
	Scaled     bool      `json:"scaled"`
	ChiSq      float64   `json:"chisq,omitempty"`
	Par        string    `json:"par"`
}

// ParamSnapshot is the persisted state of one numeric parameter.
type ParamSnapshot struct {
	Name        string  `msgpack:"name"`
	Units       string  `msgpack:"units"`
	Value       float64 `msgpack:"value"`
	Uncertainty float64 `msgpack:"uncertainty"`
	Frozen      bool    `msgpack:"frozen"`
}

type RunInput struct {
	Command string
	Model   *timing.Model
	Matrix  *timing.DesignMatrix
	NumTOAs int
	ChiSq   float64
}

// Snapshot captures every set numeric parameter of m.
func Snapshot(m *timing.Model) []ParamSnapshot {
	var out []ParamSnapshot
	for _, p := range m.Params() {
		if !p.Kind().Numeric() || !p.IsSet() {
			continue
		}
		out = append(out, ParamSnapshot{
			Name:        p.Name,
			Units:       p.Units,
			Value:       p.Float(),
			Uncertainty: p.Uncertainty,
			Frozen:      p.Frozen,
		})
	}
	return out
}

// Save writes a run directory and returns its ID.
func (s *Store) Save(in RunInput) (string, error) {
	if in.Model == nil {
		return "", fmt.Errorf("storage: run has no model")
	}
	runID := xid.New().String()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Pulsar:    pulsarName(in.Model),
		Command:   in.Command,
		Timestamp: time.Now(),
		NumTOAs:   in.NumTOAs,
		ChiSq:     in.ChiSq,
		Par:       in.Model.AsParfile(timing.DefaultWriteOrder()),
	}
	for _, c := range in.Model.Components() {
		meta.Components = append(meta.Components, c.Name())
	}
	if in.Matrix != nil {
		meta.Columns = in.Matrix.Params
		meta.Scaled = in.Matrix.Scaled
		if meta.NumTOAs == 0 {
			meta.NumTOAs = in.Matrix.Rows()
		}
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	data, err := msgpack.Marshal(Snapshot(in.Model))
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, paramsFile), data, 0644); err != nil {
		return "", err
	}

	if in.Matrix == nil {
		return runID, nil
	}
	if err := writeMatrix(filepath.Join(runDir, designFile), in.Matrix); err != nil {
		return "", err
	}
	return runID, nil
}

// pulsarName prefers the PSR parameter, which a par file may have set
// after the model was named.
func pulsarName(m *timing.Model) string {
	if p, err := m.Param("PSR"); err == nil && p.Str() != "" {
		return p.Str()
	}
	return m.Name
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeMatrix(path string, dm *timing.DesignMatrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(dm.Params); err != nil {
		return err
	}
	if err := w.Write(dm.Units); err != nil {
		return err
	}
	row := make([]string, dm.Cols())
	for _, r := range dm.M {
		for j, v := range r {
			row[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := s.read(runID, metadataFile)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadParams(runID string) ([]ParamSnapshot, error) {
	data, err := s.read(runID, paramsFile)
	if err != nil {
		return nil, err
	}
	var out []ParamSnapshot
	if err := msgpack.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("run %s: decode params: %w", runID, err)
	}
	return out, nil
}

// LoadMatrix reads the stored design matrix. Scaled comes from the run
// metadata.
func (s *Store) LoadMatrix(runID string) (*timing.DesignMatrix, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.baseDir, runID, designFile))
	if err != nil {
		return nil, s.notFound(runID, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("run %s: design matrix has no header", runID)
	}

	dm := &timing.DesignMatrix{Params: records[0], Units: records[1], Scaled: meta.Scaled}
	for i, rec := range records[2:] {
		row := make([]float64, len(rec))
		for j, field := range rec {
			if row[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("run %s: row %d column %d: %w", runID, i, j, err)
			}
		}
		dm.M = append(dm.M, row)
	}
	return dm, nil
}

// Restore applies a stored snapshot to m. Names m does not know are
// returned as an error after the rest are applied.
func Restore(m *timing.Model, snap []ParamSnapshot) error {
	var errs []error
	for _, ps := range snap {
		p, err := m.Param(ps.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.SetFloat(ps.Value); err != nil {
			errs = append(errs, err)
			continue
		}
		p.Uncertainty = ps.Uncertainty
		p.Frozen = ps.Frozen
	}
	return errors.Join(errs...)
}

func (s *Store) read(runID, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		return nil, s.notFound(runID, err)
	}
	return data, nil
}

func (s *Store) notFound(runID string, err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return err
}
