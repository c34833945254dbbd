// Package manifest records what the last build of a target produced.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flowstudio/vue-collection-cluster/pkg/bundle"
)

// Filename is the manifest written into the output directory.
const Filename = "ccbuild-manifest.json"

// Manifest describes one completed build.
type Manifest struct {
	Target   string          `json:"target"`
	Mode     string          `json:"mode"`
	BuildID  string          `json:"build_id"`
	BuiltAt  time.Time       `json:"built_at"`
	Duration string          `json:"duration"`
	Outputs  []bundle.Output `json:"outputs"`
	Warnings []string        `json:"warnings,omitempty"`
	Library  string          `json:"library,omitempty"` // global name for library builds
}

// FromResult builds a manifest for a build result.
func FromResult(target, library string, res *bundle.Result, builtAt time.Time) *Manifest {
	return &Manifest{
		Target:   target,
		Mode:     res.Mode.String(),
		BuildID:  res.ID,
		BuiltAt:  builtAt.UTC(),
		Duration: res.Duration.String(),
		Outputs:  res.Outputs,
		Warnings: res.Warnings,
		Library:  library,
	}
}

// Path returns the manifest path for an output directory.
func Path(outputDir string) string {
	return filepath.Join(outputDir, Filename)
}

// Load reads the manifest from an output directory.
func Load(outputDir string) (*Manifest, error) {
	data, err := os.ReadFile(Path(outputDir))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// Save writes the manifest into an output directory.
func Save(outputDir string, m *Manifest) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	if err := os.WriteFile(Path(outputDir), data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Stale reports the outputs whose current contents no longer match the
// recorded digest, including outputs that were removed.
func (m *Manifest) Stale() ([]string, error) {
	var stale []string
	for _, out := range m.Outputs {
		data, err := os.ReadFile(out.Path)
		if err != nil {
			if os.IsNotExist(err) {
				stale = append(stale, out.Path)
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", out.Path, err)
		}
		if bundle.Digest(data) != out.Digest {
			stale = append(stale, out.Path)
		}
	}
	return stale, nil
}
