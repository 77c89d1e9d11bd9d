package complete

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"lstmcpipe/internal/schema"
)

// VersionProvider resolves the installed version of a toolchain.
type VersionProvider interface {
	Version(ctx context.Context, tc schema.Toolchain) (string, error)
}

// ErrVersionUnknown is returned by providers that have no answer for a
// toolchain, letting ChainVersions fall through.
var ErrVersionUnknown = errors.New("toolchain version unknown")

// StaticVersions answers from a fixed table, typically filled from settings.
type StaticVersions map[schema.Toolchain]string

func (s StaticVersions) Version(_ context.Context, tc schema.Toolchain) (string, error) {
	if v := strings.TrimSpace(s[tc]); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", tc, ErrVersionUnknown)
}

// PythonVersions asks a Python interpreter for <module>.__version__.
type PythonVersions struct {
	Interpreter string
}

func (p PythonVersions) Version(ctx context.Context, tc schema.Toolchain) (string, error) {
	py := p.Interpreter
	if py == "" {
		py = "python"
	}
	mod := string(tc)
	cmd := exec.CommandContext(ctx, py, "-c", fmt.Sprintf("import %s; print(%s.__version__)", mod, mod))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s %s: %w: %s", py, mod, err, lastLine(msg))
		}
		return "", fmt.Errorf("%s %s: %w", py, mod, err)
	}
	v := strings.TrimSpace(string(out))
	if v == "" {
		return "", fmt.Errorf("%s %s: empty version: %w", py, mod, ErrVersionUnknown)
	}
	return v, nil
}

// ChainVersions returns the first successful answer. If every provider
// fails, the errors are joined.
type ChainVersions []VersionProvider

func (c ChainVersions) Version(ctx context.Context, tc schema.Toolchain) (string, error) {
	var errs []error
	for _, p := range c {
		v, err := p.Version(ctx, tc)
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%s: no version providers: %w", tc, ErrVersionUnknown)
	}
	return "", errors.Join(errs...)
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
