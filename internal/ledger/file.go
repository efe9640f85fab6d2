package ledger

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileLedger persists identities as a flat newline-separated list. An absent
// or unreadable file is treated as an empty set rather than an error, so a
// fresh deployment starts clean.
type FileLedger struct {
	path string

	mu  sync.Mutex
	ids map[string]struct{}
}

func NewFile(path string) (*FileLedger, error) {
	l := &FileLedger{path: path, ids: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Ledger file %s unreadable, starting empty: %v", path, err)
		}
		return l, nil
	}

	for _, line := range strings.Split(string(data), "\n") {
		id := strings.TrimSpace(line)
		if id != "" {
			l.ids[id] = struct{}{}
		}
	}
	return l, nil
}

func (l *FileLedger) Contains(_ context.Context, identity string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[identity]
	return ok, nil
}

func (l *FileLedger) Add(_ context.Context, identity string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.ids[identity]; ok {
		return nil
	}
	l.ids[identity] = struct{}{}

	if err := l.persist(); err != nil {
		// Roll back so a later retry re-attempts the write.
		delete(l.ids, identity)
		return fmt.Errorf("failed to persist ledger: %w", err)
	}
	return nil
}

func (l *FileLedger) Len(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids), nil
}

func (l *FileLedger) Close() error { return nil }

// persist rewrites the whole file through a rename, so a crash mid-write
// leaves either the old list or the new one, never a torn file.
func (l *FileLedger) persist() error {
	ids := make([]string, 0, len(l.ids))
	for id := range l.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := l.path + ".tmp"
	content := strings.Join(ids, "\n")
	if len(ids) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}
