package dispatch

import (
	"encoding/csv"
	"io"
	"strings"
)

// WriteCSV writes the run as email,status,reason rows: accepted recipients
// first, then failures. Commas inside reasons become semicolons so the file
// opens cleanly in naive spreadsheet importers.
func (r Result) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"email", "status", "reason"}); err != nil {
		return err
	}
	for _, email := range r.QueuedEmails {
		if err := cw.Write([]string{email, "sent", ""}); err != nil {
			return err
		}
	}
	for _, f := range r.Failed {
		if err := cw.Write([]string{f.Email, "failed", strings.ReplaceAll(f.Reason, ",", ";")}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
