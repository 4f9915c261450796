package questions

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/xuri/excelize/v2"
)

// TabularConfig maps spreadsheet columns to question fields.
type TabularConfig struct {
	SheetName     string // XLSX only; empty selects the first sheet
	StartRow      int    // 1-based first data row
	TopicColumn   string
	TitleColumn   string
	BodyColumn    string
	AnswersColumn string // answers joined by Separator
	CorrectColumn string // 1-based indexes of correct answers joined by Separator
	Separator     string
}

// DefaultTabularConfig expects a header row and columns A-E.
func DefaultTabularConfig() TabularConfig {
	return TabularConfig{
		StartRow:      2,
		TopicColumn:   "A",
		TitleColumn:   "B",
		BodyColumn:    "C",
		AnswersColumn: "D",
		CorrectColumn: "E",
		Separator:     "|",
	}
}

// ImportResult holds the parsed questions and per-row problems.
type ImportResult struct {
	Questions []*Question
	Skipped   int
	Errors    []string
}

// ImportFile parses a question bank from .json, .csv or .xlsx.
func ImportFile(path string, cfg TabularConfig) (*ImportResult, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open question file: %w", err)
		}
		defer f.Close()
		qs, err := ImportJSON(f)
		if err != nil {
			return nil, err
		}
		return &ImportResult{Questions: qs}, nil
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open question file: %w", err)
		}
		defer f.Close()
		return ImportCSV(f, cfg)
	case ".xlsx":
		return ImportXLSX(path, cfg)
	default:
		return nil, fmt.Errorf("unsupported question file type %q", filepath.Ext(path))
	}
}

const bankSchema = `{
	"type": "object",
	"required": ["questions"],
	"properties": {
		"questions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["topic", "title", "answers", "correct"],
				"properties": {
					"topic": {"type": "string", "minLength": 1},
					"title": {"type": "string", "minLength": 1},
					"body": {"type": "string"},
					"answers": {"type": "array", "minItems": 1, "items": {"type": "string"}},
					"correct": {"type": "array", "minItems": 1, "items": {"type": "boolean"}},
					"created_at": {"type": "string"}
				}
			}
		}
	}
}`

var (
	bankOnce     sync.Once
	bankCompiled *jsonschema.Schema
	bankErr      error
)

func bankValidator() (*jsonschema.Schema, error) {
	bankOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(bankSchema))
		if err != nil {
			bankErr = fmt.Errorf("parse bank schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://question-bank.json", doc); err != nil {
			bankErr = fmt.Errorf("add resource: %w", err)
			return
		}
		bankCompiled, bankErr = c.Compile("schema://question-bank.json")
	})
	return bankCompiled, bankErr
}

// ImportJSON reads a {"questions": [...]} document, validating it
// against the bank schema before decoding.
func ImportJSON(r io.Reader) ([]*Question, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	schema, err := bankValidator()
	if err != nil {
		return nil, err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var doc struct {
		Questions []*Question `json:"questions"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	for i, q := range doc.Questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return doc.Questions, nil
}

// ImportCSV reads questions from CSV rows laid out per cfg.
func ImportCSV(r io.Reader, cfg TabularConfig) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	return importRows(rows, cfg)
}

// ImportXLSX reads questions from a spreadsheet laid out per cfg.
func ImportXLSX(path string, cfg TabularConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open Excel file: %w", err)
	}
	defer f.Close()

	sheet := cfg.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return importRows(rows, cfg)
}

type columnIndexes struct {
	topic, title, body, answers, correct int
}

func resolveColumns(cfg TabularConfig) (columnIndexes, error) {
	var idx columnIndexes
	cols := []struct {
		name string
		dst  *int
	}{
		{cfg.TopicColumn, &idx.topic},
		{cfg.TitleColumn, &idx.title},
		{cfg.BodyColumn, &idx.body},
		{cfg.AnswersColumn, &idx.answers},
		{cfg.CorrectColumn, &idx.correct},
	}
	for _, c := range cols {
		if c.name == "" {
			*c.dst = -1
			continue
		}
		n, err := excelize.ColumnNameToNumber(c.name)
		if err != nil {
			return idx, fmt.Errorf("column %q: %w", c.name, err)
		}
		*c.dst = n - 1
	}
	return idx, nil
}

func importRows(rows [][]string, cfg TabularConfig) (*ImportResult, error) {
	idx, err := resolveColumns(cfg)
	if err != nil {
		return nil, err
	}
	sep := cfg.Separator
	if sep == "" {
		sep = "|"
	}

	res := &ImportResult{}
	for i, row := range rows {
		if i < cfg.StartRow-1 {
			continue
		}
		cell := func(col int) string {
			if col < 0 || col >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[col])
		}
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			res.Skipped++
			continue
		}

		q := &Question{
			Topic: cell(idx.topic),
			Title: cell(idx.title),
			Body:  cell(idx.body),
		}
		for _, a := range strings.Split(cell(idx.answers), sep) {
			if a = strings.TrimSpace(a); a != "" {
				q.Answers = append(q.Answers, a)
			}
		}
		q.Correct = make([]bool, len(q.Answers))
		if err := markCorrect(q.Correct, cell(idx.correct), sep); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		if err := q.Validate(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		res.Questions = append(res.Questions, q)
	}
	return res, nil
}

func markCorrect(flags []bool, indexes, sep string) error {
	for _, part := range strings.Split(indexes, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("correct answer index %q: %w", part, err)
		}
		if n < 1 || n > len(flags) {
			return fmt.Errorf("correct answer index %d out of range 1..%d", n, len(flags))
		}
		flags[n-1] = true
	}
	return nil
}
