package admin

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportFilename names the CSV download for the given day.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("vidana_cohort_export_%s.csv", now.UTC().Format("2006-01-02"))
}

// WriteCSV writes the cohort matrix with the same percentages the table shows.
func WriteCSV(w io.Writer, c Cohort) error {
	cw := csv.NewWriter(w)

	header := []string{"Name", "Email", "Role", "Last Active"}
	for _, t := range c.Topics {
		header = append(header, t.Title)
	}
	header = append(header, "Average Progress")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, s := range c.Students {
		record := []string{s.Name, s.Email, string(s.Role), s.LastActive}
		for _, t := range c.Topics {
			record = append(record, strconv.Itoa(s.Progress[t.Slug]))
		}
		record = append(record, strconv.Itoa(s.Average))
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
