package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lukaszgryglicki/tissuemc/internal/engine"
)

// ManifestFile is the manifest name inside a run folder.
const ManifestFile = "manifest.json"

// Manifest describes one finished run.
type Manifest struct {
	RunID               string         `json:"runId"`
	Name                string         `json:"name"`
	Version             string         `json:"version,omitempty"`
	Started             time.Time      `json:"started"`
	Elapsed             string         `json:"elapsed"`
	N                   uint64         `json:"n"`
	Seed                uint64         `json:"seed"`
	Workers             int            `json:"workers"`
	AbsorptionWeighting string         `json:"absorptionWeighting"`
	Balance             engine.Balance `json:"balance"`
	Database            bool           `json:"database"`
	Files               []string       `json:"files"`
}

// NewManifest stamps a fresh run ID.
func NewManifest(name string, started time.Time) *Manifest {
	return &Manifest{RunID: uuid.NewString(), Name: name, Started: started.UTC()}
}

// Fill copies the engine figures of a finished run.
func (m *Manifest) Fill(opts engine.Options, res *engine.Results) {
	m.N = res.N
	m.Seed = opts.Seed
	m.Workers = opts.Workers
	m.AbsorptionWeighting = opts.AbsorptionWeighting.String()
	m.Balance = res.Balance
	m.Elapsed = res.Elapsed.String()
}

// Save writes the manifest as <dir>/manifest.json.
func (m *Manifest) Save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644)
}

// LoadManifest reads <dir>/manifest.json.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if _, err := uuid.Parse(m.RunID); err != nil {
		return nil, fmt.Errorf("manifest run id: %w", err)
	}
	return &m, nil
}
