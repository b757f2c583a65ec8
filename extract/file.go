package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/warp/qb-export/generic"
)

// Format is the on-disk encoding of an extract.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// FormatFor picks the format from the file extension; CSV is the default.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return FormatParquet
	}
	return FormatCSV
}

// WriteFile writes rows to path atomically in the format implied by its
// extension.
func WriteFile(path string, rows []Row) error {
	return generic.WriteFileAtomic(path, func(w io.Writer) error {
		if FormatFor(path) == FormatParquet {
			return WriteParquet(w, rows)
		}
		return WriteCSV(w, rows)
	})
}

// ReadFile reads a whole extract. A header with no rows is a valid, empty
// extract (no qualifying events in the window).
func ReadFile(path string) ([]Row, error) {
	var (
		rows []Row
		err  error
	)
	if FormatFor(path) == FormatParquet {
		rows, err = ReadParquet(path)
	} else {
		var f *os.File
		if f, err = os.Open(path); err != nil {
			return nil, fmt.Errorf("open extract: %w", err)
		}
		defer f.Close()
		rows, err = ReadCSV(f, filepath.Base(path))
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}
