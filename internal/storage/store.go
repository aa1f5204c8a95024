// Package storage persists simulation runs: a metadata document plus the
// raw telemetry stream, one directory per run.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/drivelab/internal/sim"
	"github.com/san-kum/drivelab/internal/telemetry"
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

type RunMetadata struct {
	ID         string             `json:"id"`
	Track      string             `json:"track"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Preset     string             `json:"preset,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes one run: metadata.json beside telemetry.bin (the raw
// 68-byte records, back to back).
func (s *Store) Save(trackName, integrator, preset string, dt, duration float64, seed int64, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", trackName, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Track:      trackName,
		Timestamp:  time.Now(),
		Seed:       seed,
		Dt:         dt,
		Duration:   duration,
		Integrator: integrator,
		Preset:     preset,
		Metrics:    result.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	binFile, err := os.Create(filepath.Join(runDir, "telemetry.bin"))
	if err != nil {
		return "", err
	}
	defer binFile.Close()

	w := telemetry.NewWriter(binFile)
	for _, rec := range result.Records {
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}

	return runID, nil
}

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
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadRecords reads back the run's telemetry stream.
func (s *Store) LoadRecords(runID string) ([]telemetry.Record, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "telemetry.bin"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return telemetry.NewReader(f).ReadAll()
}

// ExportCSV writes the decoded telemetry as CSV with the wire-order
// channel names as header, prefixed by a time column.
func ExportCSV(w io.Writer, records []telemetry.Record, dt float64) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := append([]string{"time"}, telemetry.ChannelNames[:]...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, rec := range records {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatFloat(float64(i)*dt, 'f', 6, 64))
		for _, v := range rec.Channels() {
			row = append(row, strconv.FormatFloat(float64(v), 'f', 6, 32))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

// ExportJSON writes metadata and decoded records as one document.
func ExportJSON(w io.Writer, meta *RunMetadata, records []telemetry.Record) error {
	doc := struct {
		Meta    *RunMetadata       `json:"meta"`
		Records []telemetry.Record `json:"records"`
	}{meta, records}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
