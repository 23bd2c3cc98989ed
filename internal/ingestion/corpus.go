package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/faq-assistant/backend/internal/storage/models"
	"github.com/faq-assistant/backend/pkg/logger"
	"github.com/faq-assistant/backend/pkg/utils"
)

const (
	ColumnID       = "Question_ID"
	ColumnQuestion = "Questions"
	ColumnAnswer   = "Answers"
)

var whitespace = regexp.MustCompile(`\s+`)

// LoadCorpus reads the FAQ CSV at path.
func LoadCorpus(path string) ([]models.FAQEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	entries, err := ReadCorpus(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus %s: %w", path, err)
	}

	logger.Info("Corpus loaded", zap.String("path", path), zap.Int("entries", len(entries)))
	return entries, nil
}

// ReadCorpus parses a CSV with Question_ID, Questions and Answers columns.
// Header matching ignores case and surrounding spaces; extra columns are ignored.
// Rows without an id get one derived from the question text.
func ReadCorpus(r io.Reader) ([]models.FAQEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols, err := columnIndexes(header)
	if err != nil {
		return nil, err
	}

	var entries []models.FAQEntry
	seen := make(map[string]int)

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}

		entry := models.FAQEntry{
			ID:       strings.TrimSpace(field(record, cols[ColumnID])),
			Question: cleanText(field(record, cols[ColumnQuestion])),
			Answer:   cleanText(field(record, cols[ColumnAnswer])),
		}

		if entry.Question == "" && entry.Answer == "" {
			logger.Warn("Skipping empty corpus row", zap.Int("line", line))
			continue
		}

		if entry.ID == "" {
			entry.ID = utils.HashString(entry.Question)[:12]
		}

		if prev, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("duplicate id %q on rows %d and %d", entry.ID, prev, line)
		}
		seen[entry.ID] = line

		entries = append(entries, entry)
	}

	return entries, nil
}

func columnIndexes(header []string) (map[string]int, error) {
	cols := make(map[string]int, 3)
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		for _, want := range []string{ColumnID, ColumnQuestion, ColumnAnswer} {
			if strings.EqualFold(name, want) {
				cols[want] = i
			}
		}
	}

	for _, want := range []string{ColumnID, ColumnQuestion, ColumnAnswer} {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("missing column %q", want)
		}
	}
	return cols, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return record[i]
}

// cleanText strips markup some FAQ exports carry and collapses whitespace.
func cleanText(s string) string {
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			doc.Find("script, style").Remove()
			s = doc.Text()
		}
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
