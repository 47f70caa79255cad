package trace

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrBadTrace = errors.New("trace: unsupported trace")

func Save(w io.Writer, t Trace) error {
	if t.Version == 0 {
		t.Version = Version
	}
	return msgpack.NewEncoder(w).Encode(&t)
}

func Load(r io.Reader) (Trace, error) {
	var t Trace
	if err := msgpack.NewDecoder(r).Decode(&t); err != nil {
		return Trace{}, fmt.Errorf("trace: decode: %w", err)
	}
	if t.Version != Version {
		return Trace{}, fmt.Errorf("%w: version %d", ErrBadTrace, t.Version)
	}
	if err := t.Validate(); err != nil {
		return Trace{}, err
	}
	return t, nil
}

// Validate checks that event cycle stamps never go backwards.
func (t Trace) Validate() error {
	for i := 1; i < len(t.Events); i++ {
		if t.Events[i].Cycle < t.Events[i-1].Cycle {
			return fmt.Errorf("%w: event %d at cycle %d precedes event %d at cycle %d",
				ErrBadTrace, i, t.Events[i].Cycle, i-1, t.Events[i-1].Cycle)
		}
	}
	return nil
}

// SaveFile writes t next to path and renames it into place, so readers never
// see a partial trace.
func SaveFile(path string, t Trace) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		// Already renamed on success.
		if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove temp file", "path", f.Name(), "err", err)
		}
	}()

	if err = Save(f, t); err != nil {
		f.Close()
		return err
	}
	if err = f.Chmod(0o644); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

func LoadFile(path string) (Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return Trace{}, err
	}
	defer f.Close()
	return Load(f)
}
