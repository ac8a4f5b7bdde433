package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	"golang.org/x/xerrors"
)

var (
	_ RecordSink = (*CSVFile)(nil)
	_ SkillSink  = (*CSVFile)(nil)
)

// CSVFile writes a product as a UTF-8 CSV file with a header row. The file is
// written next to its final location and renamed into place, so a failed
// export never leaves a truncated file behind.
type CSVFile struct {
	path string
}

// NewCSVFile returns a sink that writes to path.
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

// Path returns the destination of the file.
func (f *CSVFile) Path() string { return f.path }

// WriteRecords writes rows with RecordHeader.
func (f *CSVFile) WriteRecords(_ context.Context, _ Run, rows []Row) error {
	return f.write(func(w *csv.Writer) error {
		if err := w.Write(RecordHeader); err != nil {
			return err
		}
		for _, row := range rows {
			if err := w.Write(row.Fields()); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteSkills writes ranked with SkillHeader.
func (f *CSVFile) WriteSkills(_ context.Context, _ Run, ranked vacancy.RankedSkillList) error {
	return f.write(func(w *csv.Writer) error {
		if err := w.Write(SkillHeader); err != nil {
			return err
		}
		for _, sc := range ranked {
			if err := w.Write([]string{sc.Skill, strconv.Itoa(sc.Count)}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *CSVFile) write(fill func(*csv.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return xerrors.Errorf("create %s: %w", f.path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err = fill(w); err != nil {
		return xerrors.Errorf("write %s: %w", f.path, err)
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return xerrors.Errorf("write %s: %w", f.path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return xerrors.Errorf("chmod %s: %w", f.path, err)
	}
	if err = tmp.Sync(); err != nil {
		return xerrors.Errorf("sync %s: %w", f.path, err)
	}
	if err = tmp.Close(); err != nil {
		return xerrors.Errorf("close %s: %w", f.path, err)
	}
	if err = os.Rename(tmp.Name(), f.path); err != nil {
		return xerrors.Errorf("rename %s: %w", f.path, err)
	}
	return nil
}
