package segment

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/warp/qb-export/generic"
)

// DelimiterLine declares the field separator to spreadsheet-based importers.
const DelimiterLine = "sep=,"

// Write emits the delimiter line, the version record and every block of
// every beneficiary, in order.
func Write(w io.Writer, version string, qbs []Beneficiary) error {
	if _, err := io.WriteString(w, DelimiterLine+"\n"); err != nil {
		return fmt.Errorf("write delimiter line: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Fields(versionRecord{Version: version})); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	for _, qb := range qbs {
		for _, rec := range qb.Records() {
			if err := cw.Write(Fields(rec)); err != nil {
				return fmt.Errorf("write %s for %s: %w", rec.Tag(), qb.QB.IndividualIdentifier, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the import file atomically: on any error no file is left
// at path.
func WriteFile(path, version string, qbs []Beneficiary) error {
	return generic.WriteFileAtomic(path, func(w io.Writer) error {
		return Write(w, version, qbs)
	})
}
