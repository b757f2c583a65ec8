package extract

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/warp/qb-export/generic"
)

// WriteCSV writes the header and rows.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write extract header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.values()); err != nil {
			return fmt.Errorf("write extract row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads an extract. Every column in Columns() must be present in the
// header (extra columns are ignored); a missing one is a MissingColumnError.
// A data row with fewer cells than the header is rejected.
// name is used in error messages only.
func ReadCSV(r io.Reader, name string) ([]Row, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file, no header row", name)
		}
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	// fieldAt[i] = header position of Row field i
	fieldAt := make([]int, len(columns))
	for i, col := range columns {
		p, ok := pos[col]
		if !ok {
			return nil, &generic.MissingColumnError{File: name, Column: col}
		}
		fieldAt[i] = p
	}

	var rows []Row
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", name, line, err)
		}
		if len(rec) < len(header) {
			return nil, fmt.Errorf("%s: line %d: %d fields, header has %d", name, line, len(rec), len(header))
		}
		var row Row
		for i, p := range fieldAt {
			row.setField(i, strings.TrimSpace(rec[p]))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
