// Package sheets moves quiz questions in and out of .xlsx workbooks so
// instructors can keep a question bank in a spreadsheet.
package sheets

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
)

// SheetName is the worksheet holding questions.
const SheetName = "Questions"

// ContentType is the MIME type of generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MaxOptions is the number of option columns (Option A..F).
const MaxOptions = 6

// Header is the first row of the questions sheet.
var Header = []string{
	"Type", "Question",
	"Option A", "Option B", "Option C", "Option D", "Option E", "Option F",
	"Correct Answer", "Points", "Difficulty", "Explanation",
}

// Row is a question read from a data row. Number is the 1-based sheet row.
type Row struct {
	Number   int
	Question education.NewQuestion
}

// RowError reports a row that could not be imported.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// WriteQuiz writes the quiz's questions as a workbook.
func WriteQuiz(w io.Writer, quiz education.Quiz) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Header))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	_ = f.SetColWidth(SheetName, "B", "B", 60)

	for i, q := range quiz.Questions {
		row := make([]any, len(Header))
		row[0] = string(q.Type)
		row[1] = q.Text
		for j := 0; j < MaxOptions; j++ {
			if j < len(q.Options) && q.Type == education.MultipleChoice {
				row[2+j] = q.Options[j]
			} else {
				row[2+j] = ""
			}
		}
		row[8] = q.CorrectAnswer
		row[9] = q.Points
		row[10] = string(q.Difficulty)
		row[11] = q.Explanation

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ReadQuestions parses a workbook. It returns the rows that parsed and a
// RowError for each row that did not; the caller validates the questions.
// The Questions sheet is used when present, otherwise the first sheet.
func ReadQuestions(r io.Reader) ([]Row, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := SheetName
	if idx, _ := f.GetSheetIndex(SheetName); idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	cols, err := headerColumns(rows[0])
	if err != nil {
		return nil, nil, err
	}

	var out []Row
	var rowErrs []RowError
	for i, cells := range rows[1:] {
		number := i + 2
		if blankRow(cells) {
			continue
		}
		q, err := parseRow(cells, cols)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: number, Message: err.Error()})
			continue
		}
		out = append(out, Row{Number: number, Question: q})
	}
	return out, rowErrs, nil
}

type columns struct {
	typ, text, answer, points, difficulty, explanation int
	options                                            []int
}

// headerColumns maps header names (case-insensitive) to column indexes.
func headerColumns(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	get := func(name string) int {
		if i, ok := idx[strings.ToLower(name)]; ok {
			return i
		}
		return -1
	}

	c := columns{
		typ:         get("Type"),
		text:        get("Question"),
		answer:      get("Correct Answer"),
		points:      get("Points"),
		difficulty:  get("Difficulty"),
		explanation: get("Explanation"),
	}
	for _, letter := range "ABCDEF" {
		if i := get("Option " + string(letter)); i >= 0 {
			c.options = append(c.options, i)
		}
	}

	var missing []string
	if c.typ < 0 {
		missing = append(missing, "Type")
	}
	if c.text < 0 {
		missing = append(missing, "Question")
	}
	if c.answer < 0 {
		missing = append(missing, "Correct Answer")
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("header is missing columns: %s", strings.Join(missing, ", "))
	}
	return c, nil
}

func parseRow(cells []string, c columns) (education.NewQuestion, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	typ, err := parseType(cell(c.typ))
	if err != nil {
		return education.NewQuestion{}, err
	}

	q := education.NewQuestion{
		Type:          typ,
		Text:          cell(c.text),
		CorrectAnswer: cell(c.answer),
		Explanation:   cell(c.explanation),
		Difficulty:    education.Difficulty(strings.ToLower(cell(c.difficulty))),
	}
	for _, i := range c.options {
		if o := cell(i); o != "" {
			q.Options = append(q.Options, o)
		}
	}

	if p := cell(c.points); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return education.NewQuestion{}, fmt.Errorf("points %q is not a whole number", p)
		}
		q.Points = n
	}
	return q, nil
}

// parseType accepts "multiple_choice", "Multiple Choice", "true/false" etc.
func parseType(s string) (education.QuestionType, error) {
	norm := strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(strings.ToLower(s))
	switch norm {
	case "multiple_choice", "mc", "mcq":
		return education.MultipleChoice, nil
	case "true_false", "tf", "boolean":
		return education.TrueFalse, nil
	case "short_answer", "short", "text":
		return education.ShortAnswer, nil
	case "":
		return "", fmt.Errorf("question type is empty")
	default:
		return "", fmt.Errorf("unknown question type %q", s)
	}
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
