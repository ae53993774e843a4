package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	logx "goalcoach/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.state.json  (reminder snapshot, written atomically)
//   - <prefix>.fires.jsonl (append-only fire journal)
//
// The fire journal is compacted when it grows past the retention window.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	statePath string

	firesPath string
	firesFile *os.File

	fireWrites int
}

const fireRetention = 31 * 24 * time.Hour

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	firesPath := prefix + ".fires.jsonl"
	ff, err := os.OpenFile(firesPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:       log,
		statePath: prefix + ".state.json",
		firesPath: firesPath,
		firesFile: ff,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firesFile != nil {
		err := s.firesFile.Close()
		s.firesFile = nil
		return err
	}
	return nil
}

func (s *fileStore) LoadReminder(ctx context.Context) (ReminderState, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultReminderState(), nil
		}
		return DefaultReminderState(), err
	}
	defer f.Close()

	var st ReminderState
	if err := json.NewDecoder(f).Decode(&st); err != nil {
		// A corrupt snapshot must not brick the daemon.
		s.log.Warn("reminder snapshot unreadable; using defaults",
			logx.String("path", s.statePath), logx.Err(err))
		return DefaultReminderState(), nil
	}
	if st.IntervalMinutes < 1 {
		st.IntervalMinutes = DefaultReminderState().IntervalMinutes
	}
	return st, nil
}

func (s *fileStore) SaveReminder(ctx context.Context, st ReminderState) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.statePath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(st); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.statePath)
}

func (s *fileStore) AppendFire(ctx context.Context, rec FireRecord) error {
	_ = ctx
	if rec.At.IsZero() {
		rec.At = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firesFile == nil {
		return errors.New("fire journal closed")
	}
	if err := json.NewEncoder(s.firesFile).Encode(rec); err != nil {
		return err
	}
	s.fireWrites++
	if s.fireWrites%1000 == 0 {
		// Best-effort compact.
		if err := s.compactFiresLocked(); err != nil {
			s.log.Debug("fire journal compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) RecentFires(ctx context.Context, since time.Time) ([]FireRecord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := readFireJournal(s.firesPath)
	if err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, r := range recs {
		if !r.At.Before(since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

func (s *fileStore) compactFiresLocked() error {
	recs, err := readFireJournal(s.firesPath)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-fireRetention)
	kept := recs[:0]
	for _, r := range recs {
		if r.At.After(cutoff) {
			kept = append(kept, r)
		}
	}

	tmp := s.firesPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	for _, r := range kept {
		if err := enc.Encode(r); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}

	// Swap the journal under the open handle.
	if err := os.Rename(tmp, s.firesPath); err != nil {
		return err
	}
	if s.firesFile != nil {
		_ = s.firesFile.Close()
	}
	ff, err := os.OpenFile(s.firesPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		s.firesFile = nil
		return err
	}
	s.firesFile = ff
	return nil
}

func readFireJournal(path string) ([]FireRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []FireRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r FireRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		if r.At.IsZero() {
			continue
		}
		out = append(out, r)
	}
	return out, sc.Err()
}
