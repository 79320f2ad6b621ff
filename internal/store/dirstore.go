package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Sink accepts finished exports.
type Sink interface {
	SaveExport(ctx context.Context, jobID string, payload, result []byte) error
}

// DirStore writes exports as JSON files for hand-off to a lifecycle tool:
// <job>_flow.json and latest_flow.json hold the deployment payload,
// <job>_result.json the full result.
type DirStore struct {
	Dir string
}

func (d DirStore) SaveExport(_ context.Context, jobID string, payload, result []byte) error {
	if jobID == "" || jobID == LatestKey || filepath.Base(jobID) != jobID {
		return fmt.Errorf("invalid export key %q", jobID)
	}
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	files := []struct {
		name string
		data []byte
	}{
		{jobID + "_flow.json", payload},
		{LatestKey + "_flow.json", payload},
		{jobID + "_result.json", result},
	}
	for _, f := range files {
		if err := writeFileAtomic(filepath.Join(d.Dir, f.name), f.data); err != nil {
			return err
		}
	}
	return nil
}

// FlowPath is the payload file for key, which may be LatestKey.
func (d DirStore) FlowPath(key string) string {
	return filepath.Join(d.Dir, key+"_flow.json")
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Multi fans one export out to every sink concurrently. All sinks are
// attempted; the first error is returned.
type Multi []Sink

func (m Multi) SaveExport(ctx context.Context, jobID string, payload, result []byte) error {
	var g errgroup.Group
	for _, s := range m {
		g.Go(func() error { return s.SaveExport(ctx, jobID, payload, result) })
	}
	return g.Wait()
}
