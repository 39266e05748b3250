package reports

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/isabelamendes/case-tecnico-oto/pkg/models"
)

// csvHeader is the segment row field order.
var csvHeader = []string{
	"customer_id", "recency_days", "frequency", "total_value",
	"r_score", "f_score", "v_score",
	"segment_code", "score_mean", "score_weighted",
}

// ExportJSON writes the segment rows as indented JSON, preserving order.
func ExportJSON(filename string, segments []models.CustomerSegment) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create folder: %v", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(segments); err != nil {
		return fmt.Errorf("failed to write JSON: %v", err)
	}
	return nil
}

// ExportCSV writes the segment rows as CSV with a header row.
func ExportCSV(filename string, segments []models.CustomerSegment) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create folder: %v", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}
	for _, s := range segments {
		row := []string{
			s.CustomerID,
			strconv.Itoa(s.RecencyDays),
			strconv.Itoa(s.Frequency),
			strconv.FormatFloat(s.TotalValue, 'f', -1, 64),
			strconv.Itoa(s.RScore),
			strconv.Itoa(s.FScore),
			strconv.Itoa(s.VScore),
			s.SegmentCode,
			strconv.FormatFloat(s.ScoreMean, 'f', -1, 64),
			strconv.FormatFloat(s.ScoreWeighted, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %v", err)
		}
	}
	w.Flush()
	return w.Error()
}

// TimestampedFilename builds a run-stamped output path inside baseDir.
func TimestampedFilename(baseDir, name, ext string) string {
	t := time.Now().Format("20060102_150405")
	return filepath.Join(baseDir, fmt.Sprintf("%s_%s.%s", name, t, ext))
}
