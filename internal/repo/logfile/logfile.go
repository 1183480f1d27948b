// Package logfile stores probe records as JSON lines, one file per UTC day.
//
// The writer appends each record with a single write followed by fsync, so a
// record is durable once Append returns. Readers open the files read-only and
// skip a trailing line that has no newline yet, so they never observe a
// partially written record and never need a lock.
package logfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/domain"
	"github.com/hamed0406/wanuptime/internal/repo"
)

const (
	fileSuffix = ".jsonl"
	dayLayout  = "2006-01-02"
)

// FileName is the name of the file holding records of t's UTC day.
func FileName(t time.Time) string {
	return t.UTC().Format(dayLayout) + fileSuffix
}

// Store is the single writer of a record directory. It also reads.
type Store struct {
	*Reader

	log *zap.Logger

	mu   sync.Mutex
	day  string
	file *os.File
}

var _ repo.RecordStore = (*Store)(nil)

func Open(dir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure record dir %q: %w", dir, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{Reader: NewReader(dir), log: log}, nil
}

func (s *Store) Append(ctx context.Context, r domain.ProbeRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openDay(FileName(r.Timestamp)); err != nil {
		return err
	}

	n, err := s.file.Write(line)
	if err == nil && n != len(line) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = s.file.Sync()
	}
	if err != nil {
		path := s.file.Name()
		s.closeFile()
		return fmt.Errorf("append to %q: %w", path, err)
	}
	return nil
}

// openDay makes sure the file for day is the open one. A file left ending in
// the middle of a line by an earlier failed write gets that line terminated,
// so the next record starts on a line of its own.
func (s *Store) openDay(day string) error {
	if s.file != nil && s.day == day {
		return nil
	}
	s.closeFile()

	path := filepath.Join(s.dir, day)
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	// The directory entry of a new file must be durable before its first record is.
	if created {
		if err := syncDir(s.dir); err != nil {
			f.Close()
			return fmt.Errorf("sync %q: %w", s.dir, err)
		}
	}

	if torn, err := endsMidLine(f); err != nil {
		f.Close()
		return fmt.Errorf("inspect %q: %w", path, err)
	} else if torn {
		s.log.Warn("record_file_torn_tail", zap.String("path", path))
		if _, err := f.Write([]byte{'\n'}); err != nil {
			f.Close()
			return fmt.Errorf("repair %q: %w", path, err)
		}
	}

	s.file = f
	s.day = day
	return nil
}

var syncDir = func(dir string) (err error) {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(d))
	return d.Sync()
}

func endsMidLine(f *os.File) (bool, error) {
	st, err := f.Stat()
	if err != nil {
		return false, err
	}
	if st.Size() == 0 {
		return false, nil
	}
	var last [1]byte
	if _, err := f.ReadAt(last[:], st.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

func (s *Store) closeFile() {
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			s.log.Warn("record_file_close_error", zap.String("path", s.file.Name()), zap.Error(err))
		}
		s.file = nil
		s.day = ""
	}
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.day = ""
	return err
}
