package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// RecIDColumn names the CSV column holding the ArchivesSpace resource ID.
const RecIDColumn = "ArchivesSpace Rec ID"

// CountColumn is the column appended by AppendContainerCounts.
const CountColumn = "container_count"

// CountFunc returns the number of containers linked to a resource.
type CountFunc func(ctx context.Context, resourceID int) (int, error)

// CountSummary tallies an AppendContainerCounts pass.
type CountSummary struct {
	Rows    int
	Counted int
	Invalid int
}

// CountsFilename returns the output name for an input CSV path:
// {stem}_with_container_counts.csv next to the working directory.
func CountsFilename(input string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return stem + "_with_container_counts.csv"
}

// AppendContainerCounts copies a CSV from in to out, adding a container_count
// column. Rows with an empty resource ID get an empty count; rows whose ID is
// not a number are kept with an empty count and logged.
func AppendContainerCounts(ctx context.Context, in io.Reader, out io.Writer, count CountFunc, logger *zerolog.Logger) (CountSummary, error) {
	var sum CountSummary
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return sum, fmt.Errorf("reading CSV header: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == RecIDColumn {
			col = i
		}
	}
	if col < 0 {
		return sum, fmt.Errorf("CSV has no %q column", RecIDColumn)
	}

	w := csv.NewWriter(out)
	if err := w.Write(append(header, CountColumn)); err != nil {
		return sum, err
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("reading CSV row %d: %w", sum.Rows+2, err)
		}
		sum.Rows++

		value := ""
		raw := ""
		if col < len(row) {
			raw = strings.TrimSpace(row[col])
		}
		if raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil {
				sum.Invalid++
				if logger != nil {
					logger.Warn().Str("rec_id", raw).Int("row", sum.Rows+1).Msg("Invalid resource ID, skipping count")
				}
			} else {
				n, err := count(ctx, id)
				if err != nil {
					return sum, fmt.Errorf("counting containers for resource %d: %w", id, err)
				}
				value = strconv.Itoa(n)
				sum.Counted++
			}
		}
		if err := w.Write(append(row, value)); err != nil {
			return sum, err
		}
	}

	w.Flush()
	return sum, w.Error()
}
