package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/sandfall/config"
)

// csvFile is an output file that writes its header with the first record.
type csvFile struct {
	name          string
	file          *os.File
	headerWritten bool
}

func createCSV(dir, name string) (*csvFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvFile{name: name, file: f}, nil
}

func (c *csvFile) write(records any) error {
	if c == nil {
		return nil
	}
	if !c.headerWritten {
		if err := gocsv.Marshal(records, c.file); err != nil {
			return fmt.Errorf("writing %s: %w", c.name, err)
		}
		c.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, c.file); err != nil {
		return fmt.Errorf("writing %s: %w", c.name, err)
	}
	return nil
}

func (c *csvFile) close() error {
	if c == nil {
		return nil
	}
	return c.file.Close()
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir       string
	ticks     *csvFile
	windows   *csvFile
	perf      *csvFile
	bookmarks *csvFile
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled). Per-tick rows are only written when
// perTick is set.
func NewOutputManager(dir string, perTick bool) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		dst  **csvFile
		name string
		on   bool
	}{
		{&om.ticks, "ticks.csv", perTick},
		{&om.windows, "windows.csv", true},
		{&om.perf, "perf.csv", true},
		{&om.bookmarks, "bookmarks.csv", true},
	}
	for _, f := range files {
		if !f.on {
			continue
		}
		c, err := createCSV(dir, f.name)
		if err != nil {
			om.Close()
			return nil, err
		}
		*f.dst = c
	}
	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTick writes a single tick record to ticks.csv.
func (om *OutputManager) WriteTick(t TickStats) error {
	if om == nil {
		return nil
	}
	return om.ticks.write([]TickStats{t})
}

// WriteWindow writes a window stats record to windows.csv.
func (om *OutputManager) WriteWindow(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return om.windows.write([]WindowStats{stats})
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd uint64) error {
	if om == nil {
		return nil
	}
	return om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)})
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	return om.bookmarks.write([]Bookmark{b})
}

// WriteSnapshot saves s as JSON inside the output directory and returns its path.
func (om *OutputManager) WriteSnapshot(s *Snapshot) (string, error) {
	if om == nil || s == nil {
		return "", nil
	}
	return SaveSnapshot(s, filepath.Join(om.dir, "snapshots"))
}

// WriteSummary saves v as indented JSON to summary.json.
func (om *OutputManager) WriteSummary(v any) error {
	if om == nil {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "summary.json"), data, 0644); err != nil {
		return fmt.Errorf("writing summary.json: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, c := range []*csvFile{om.ticks, om.windows, om.perf, om.bookmarks} {
		if err := c.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
