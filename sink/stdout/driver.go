// lstmcpipe/sink/stdout/driver.go
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"lstmcpipe/internal/complete"
	"lstmcpipe/internal/config"
	"lstmcpipe/sink"
)

/* ────────── public config ────────── */
type Config struct {
	Out       io.Writer // defaults to os.Stdout
	Separator bool      // emit "---" between documents
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config

	mu     sync.Mutex // guards writes + pushed
	pushed int
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(_ context.Context, c complete.Completed) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cfg.Separator && d.pushed > 0 {
		if _, err := io.WriteString(d.cfg.Out, "---\n"); err != nil {
			return err
		}
	}
	if err := config.WriteDocument(d.cfg.Out, c.Map()); err != nil {
		return fmt.Errorf("stdout-sink: %w", err)
	}
	d.pushed++
	return nil
}

func (d *driver) Close() error { return nil }

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
