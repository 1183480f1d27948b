package logfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/multierr"

	"github.com/hamed0406/wanuptime/internal/domain"
	"github.com/hamed0406/wanuptime/internal/repo"
)

// checkEvery is how many lines are scanned between context checks.
const checkEvery = 1024

// Reader reads a record directory. Any number of readers may run next to
// the writer, in this process or in others.
type Reader struct {
	dir string
}

var _ repo.RecordReader = (*Reader)(nil)

func NewReader(dir string) *Reader {
	return &Reader{dir: dir}
}

func (r *Reader) Dir() string { return r.dir }

func (r *Reader) ReadRange(ctx context.Context, start, end time.Time) ([]domain.ProbeRecord, error) {
	if err := repo.CheckRange(start, end); err != nil {
		return nil, err
	}
	out := []domain.ProbeRecord{}
	if start.Equal(end) {
		return out, nil
	}

	days, err := r.daysBetween(start, end)
	if err != nil {
		return nil, err
	}
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err = r.readFile(ctx, filepath.Join(r.dir, day), start, end, out)
		if err != nil {
			return nil, err
		}
	}

	less := func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) }
	if !sort.SliceIsSorted(out, less) {
		sort.SliceStable(out, less)
	}
	return out, nil
}

// daysBetween lists existing day files that can hold records in [start, end).
func (r *Reader) daysBetween(start, end time.Time) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("list %q: %w", r.dir, err)
	}

	var days []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		day, err := time.ParseInLocation(dayLayout, strings.TrimSuffix(name, fileSuffix), time.UTC)
		if err != nil {
			continue
		}
		if day.Before(end) && day.Add(24*time.Hour).After(start) {
			days = append(days, name)
		}
	}
	sort.Strings(days)
	return days, nil
}

func (r *Reader) readFile(ctx context.Context, path string, start, end time.Time, out []domain.ProbeRecord) (_ []domain.ProbeRecord, err error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	} else if err != nil {
		return out, fmt.Errorf("open %q: %w", path, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	br := bufio.NewReader(f)
	for n := 0; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return out, err
			}
		}

		line, err := br.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// A line without newline is a write still in progress.
			return out, nil
		} else if err != nil {
			return out, fmt.Errorf("read %q: %w", path, err)
		}

		var rec domain.ProbeRecord
		if json.Unmarshal(line, &rec) != nil || rec.Timestamp.IsZero() {
			continue
		}
		if !rec.Timestamp.Before(start) && rec.Timestamp.Before(end) {
			out = append(out, rec)
		}
	}
}
