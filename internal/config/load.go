package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Load reads a Spec from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func Load(path string) (*Spec, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a Spec. Unknown fields are rejected.
func Parse(data []byte) (*Spec, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	spec := &Spec{}
	if err := dec.Decode(spec); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return spec, nil
}

// Validate checks structural completeness. Power-of-two and geometry
// constraints are enforced by the lattice and geometry packages.
func (s *Spec) Validate() error {
	if len(s.Lattice.Dim) == 0 {
		return fmt.Errorf("lattice.dim must name at least one axis")
	}
	if s.Lattice.Velocities == nil && s.Lattice.Discretization == "" {
		return fmt.Errorf("lattice.velocities is required")
	}
	if s.Lattice.Discretization != "" {
		if _, _, err := ParseDiscretization(s.Lattice.Discretization); err != nil {
			return err
		}
	}
	for i, g := range s.Geometry {
		if g.Shape == "" {
			return fmt.Errorf("obstacle %d specification includes no shape", i+1)
		}
		if g.Boundary == "" {
			return fmt.Errorf("obstacle %d specification includes no boundary conditions", i+1)
		}
	}
	if s.Run != nil {
		if err := s.Run.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Hash returns a stable digest of the lattice and geometry sections, used
// to key cached circuit fragments.
func (s *Spec) Hash() string {
	// encoding/json sorts map keys, so this is deterministic.
	data, _ := json.Marshal(struct {
		Lattice  LatticeSpec     `json:"lattice"`
		Geometry []GeometryEntry `json:"geometry"`
	}{s.Lattice, s.Geometry})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GetRun returns the run block, or an empty one with all defaults.
func (s *Spec) GetRun() *RunConfig {
	if s.Run == nil {
		return &RunConfig{}
	}
	return s.Run
}
