package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"lstmcpipe/internal/complete"
	"lstmcpipe/internal/config"
	"lstmcpipe/sink"
)

type Config struct {
	Dir       string
	Overwrite bool
}

type driver struct {
	cfg Config
	mu  sync.Mutex
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("file-sink: expected Config, got %T", raw)
	}
	if strings.TrimSpace(c.Dir) == "" {
		return errors.New("file-sink: dir is required")
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("file-sink: %w", err)
	}
	d.cfg = c
	return nil
}

// Push writes <dir>/<prod_id>.yaml.
func (d *driver) Push(_ context.Context, c complete.Completed) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	path := Path(d.cfg.Dir, c.RunIdentifier())
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !d.cfg.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("file-sink: %w: %w", sink.ErrPermanent, err)
	}
	if err != nil {
		return fmt.Errorf("file-sink: %w", err)
	}
	if err := config.WriteDocument(f, c.Map()); err != nil {
		_ = f.Close()
		return fmt.Errorf("file-sink: %s: %w", path, err)
	}
	return f.Close()
}

func (d *driver) Close() error { return nil }

// Path is where a run identifier's document lands.
func Path(dir, runID string) string {
	return filepath.Join(dir, filepath.Base(runID)+".yaml")
}

func init() {
	sink.Register("file", func() sink.Adapter { return &driver{} })
}
