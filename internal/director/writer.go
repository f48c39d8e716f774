package director

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// WriteTrace writes a trace to a YAML file
func WriteTrace(trace *Trace, path string) error {
	data, err := yaml.Marshal(trace)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadTrace reads a trace from a YAML file
func ReadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var trace Trace
	if err := yaml.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("parse trace %s: %w", path, err)
	}

	return &trace, nil
}

// GenerateTracePath creates a timestamped trace filename inside dir
func GenerateTracePath(dir, profile string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("trace_%s_%s.yaml", profile, timestamp))
}

// FindLatestTrace finds the most recently modified trace file in dir
func FindLatestTrace(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read traces directory: %w", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var traces []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		traces = append(traces, candidate{filepath.Join(dir, entry.Name()), info.ModTime()})
	}

	if len(traces) == 0 {
		return "", fmt.Errorf("no trace files found in %s", dir)
	}

	// Newest first
	sort.Slice(traces, func(i, j int) bool {
		return traces[i].mod.After(traces[j].mod)
	})

	return traces[0].path, nil
}
