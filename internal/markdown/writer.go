package markdown

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/btakita/correspondence-kit/internal/model"
)

// Writer writes rendered threads to {Root}/{label}/{filename}.
type Writer struct {
	Root string
}

// LabelDir returns the directory threads of label are written to.
// Hierarchical labels such as "[Gmail]/Sent Mail" become nested
// directories. Labels that would escape Root are rejected.
func (w *Writer) LabelDir(label string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(label, `\`, "/"))
	if label == "" || clean == "." || path.IsAbs(clean) ||
		clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid label %q", label)
	}
	return filepath.Join(w.Root, filepath.FromSlash(clean)), nil
}

// WriteThreads renders and writes every thread, returning the paths
// written. All threads must belong to the same label.
func (w *Writer) WriteThreads(threads []*model.Thread, now time.Time) ([]string, error) {
	if len(threads) == 0 {
		return nil, nil
	}

	dir, err := w.LabelDir(threads[0].Label)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	names := Filenames(threads, now)
	written := make([]string, 0, len(threads))
	for i, t := range threads {
		p := filepath.Join(dir, names[i])
		if err := writeFileAtomic(p, []byte(Render(t))); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	return written, nil
}

// writeFileAtomic replaces p with data via a temporary file in the same
// directory.
func writeFileAtomic(p string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", p, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming %s: %w", tmpName, err)
	}
	return nil
}
