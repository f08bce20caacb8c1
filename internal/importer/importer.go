// Package importer seeds flashcards from spreadsheet exports.
package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/models"
	"github.com/vytor/lingoflash/internal/services"
	"github.com/xuri/excelize/v2"
)

// Config describes the sheet layout. Columns are spreadsheet letters.
type Config struct {
	SheetName      string
	SourceColumn   string
	TargetColumn   string
	CategoryColumn string
	ModeColumn     string
	// StartRow is the first data row (1-based).
	StartRow    int
	DefaultMode models.Mode
}

func DefaultConfig() Config {
	return Config{
		SourceColumn:   "A",
		TargetColumn:   "B",
		CategoryColumn: "C",
		ModeColumn:     "D",
		StartRow:       2,
		DefaultMode:    models.ModeVocabulary,
	}
}

type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

type Result struct {
	Processed int        `json:"processed"`
	Created   int        `json:"created"`
	Skipped   int        `json:"skipped"`
	Errors    []RowError `json:"errors"`
}

type columns struct {
	source, target, category, mode int
}

// ImportFlashcards appends every data row of the sheet at path to levelID.
// Unknown categories are created on the fly. A bad row is recorded in the
// result and does not stop the import.
func ImportFlashcards(ctx context.Context, path, levelID string, cfg Config, content services.ContentService) (*Result, error) {
	log := logger.FromContext(ctx).WithPrefix("import").WithField("level_id", levelID)

	cols, err := cfg.columns()
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := cfg.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	log.Info("importing %s: sheet=%s, rows=%d", path, sheet, len(rows))

	result := &Result{Errors: []RowError{}}
	categories := map[string]string{}
	startRow := cfg.StartRow
	if startRow < 1 {
		startRow = 1
	}

	for i, row := range rows {
		rowNum := i + 1
		if rowNum < startRow {
			continue
		}
		if blank(row) {
			result.Skipped++
			continue
		}
		result.Processed++

		card, err := cfg.card(ctx, row, cols, levelID, categories, content)
		if err == nil {
			_, err = content.CreateFlashcards(ctx, levelID, []services.NewFlashcard{card})
		}
		if err != nil {
			log.Warn("row %d rejected: %v", rowNum, err)
			result.Errors = append(result.Errors, RowError{Row: rowNum, Err: err.Error()})
			continue
		}
		result.Created++
	}

	log.Info("import finished: processed=%d, created=%d, errors=%d", result.Processed, result.Created, len(result.Errors))
	return result, nil
}

func (cfg Config) card(ctx context.Context, row []string, cols columns, levelID string, categories map[string]string, content services.ContentService) (services.NewFlashcard, error) {
	card := services.NewFlashcard{
		SourceText: cell(row, cols.source),
		TargetText: cell(row, cols.target),
		Mode:       cfg.DefaultMode,
	}
	if raw := cell(row, cols.mode); raw != "" {
		mode, err := models.ParseMode(raw)
		if err != nil {
			return card, err
		}
		card.Mode = mode
	}

	name := cell(row, cols.category)
	if name == "" {
		return card, nil
	}
	slug := models.Slugify(name)
	id, ok := categories[slug]
	if !ok {
		cat, err := content.FindOrCreateCategory(ctx, levelID, name)
		if err != nil {
			return card, fmt.Errorf("category %q: %w", name, err)
		}
		id = cat.ID
		categories[slug] = id
	}
	card.CategoryID = models.StringPtr(id)
	return card, nil
}

func (cfg Config) columns() (columns, error) {
	var cols columns
	targets := []struct {
		name string
		dst  *int
	}{
		{cfg.SourceColumn, &cols.source},
		{cfg.TargetColumn, &cols.target},
		{cfg.CategoryColumn, &cols.category},
		{cfg.ModeColumn, &cols.mode},
	}
	for _, t := range targets {
		if t.name == "" {
			*t.dst = -1
			continue
		}
		n, err := excelize.ColumnNameToNumber(t.name)
		if err != nil {
			return cols, fmt.Errorf("invalid column %q: %w", t.name, err)
		}
		*t.dst = n - 1
	}
	if cols.source < 0 || cols.target < 0 {
		return cols, fmt.Errorf("source and target columns are required")
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
