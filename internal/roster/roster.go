// Package roster reads student and teacher lists from .xlsx or .csv uploads.
// The first row is always a header; columns are located by header text.
package roster

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmpty is returned when the upload has no rows at all.
var ErrEmpty = errors.New("roster file is empty")

// StudentRow is one data row of a student roster, values trimmed but not
// otherwise normalized. First/Last are set only when the sheet has separate
// name columns; otherwise Name holds the full name.
type StudentRow struct {
	Line     int
	Name     string
	First    string
	Last     string
	Grade    string
	Homeroom string
	Teacher  string
}

// TeacherRow is one data row of a teacher list.
type TeacherRow struct {
	Line     int
	Name     string
	Homeroom string
}

// ReadRows returns the cells of the first (active) sheet of an xlsx file or
// the records of a csv file. The format is chosen by extension, then by
// sniffing the zip signature.
func ReadRows(r io.Reader, filename string) ([][]string, error) {
	br := bufio.NewReader(r)
	ext := strings.ToLower(filepath.Ext(filename))
	isXLSX := ext == ".xlsx" || ext == ".xlsm"
	if ext != ".csv" && !isXLSX {
		head, _ := br.Peek(4)
		isXLSX = bytes.Equal(head, []byte("PK\x03\x04"))
	}
	var (
		rows [][]string
		err  error
	)
	if isXLSX {
		rows, err = readXLSX(br)
	} else {
		rows, err = readCSV(br)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmpty
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// header locates columns by substring match on lower-cased header cells.
type header struct {
	cells []string
	taken map[int]bool
}

func newHeader(row []string) *header {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return &header{cells: cells, taken: map[int]bool{}}
}

// find returns the first free column containing any of keys and none of
// exclude, or -1.
func (h *header) find(keys []string, exclude ...string) int {
	for i, c := range h.cells {
		if h.taken[i] || c == "" {
			continue
		}
		if containsAny(c, exclude) || !containsAny(c, keys) {
			continue
		}
		h.taken[i] = true
		return i
	}
	return -1
}

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

type studentColumns struct {
	name, first, last, grade, homeroom, teacher int
}

func studentLayout(row []string) studentColumns {
	h := newHeader(row)
	cols := studentColumns{name: -1, first: -1, last: -1}
	cols.teacher = h.find([]string{"teacher"})
	cols.homeroom = h.find([]string{"homeroom", "room"})
	cols.grade = h.find([]string{"grade"})
	cols.first = h.find([]string{"first"})
	cols.last = h.find([]string{"last", "surname"})
	if cols.first < 0 || cols.last < 0 {
		for _, i := range []int{cols.first, cols.last} {
			if i >= 0 {
				delete(h.taken, i)
			}
		}
		cols.first, cols.last = -1, -1
		cols.name = h.find([]string{"name", "student", "full"})
	}
	if cols.name < 0 && cols.first < 0 {
		if len(row) >= 4 {
			return studentColumns{name: 0, first: -1, last: -1, grade: 1, homeroom: 2, teacher: 3}
		}
		cols.name = 0
	}
	return cols
}

// ParseStudents maps raw rows to student rows. Only fully blank rows are
// dropped; callers reject rows without a name, duplicates and invalid values.
func ParseStudents(rows [][]string) []StudentRow {
	if len(rows) == 0 {
		return nil
	}
	cols := studentLayout(rows[0])
	var out []StudentRow
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		sr := StudentRow{
			Line:     i + 2,
			Name:     cell(row, cols.name),
			First:    cell(row, cols.first),
			Last:     cell(row, cols.last),
			Grade:    cell(row, cols.grade),
			Homeroom: cell(row, cols.homeroom),
			Teacher:  cell(row, cols.teacher),
		}
		out = append(out, sr)
	}
	return out
}

// ParseTeachers maps raw rows to teacher rows. The name comes from a
// "name"/"teacher" column when the header has one, else the first column.
func ParseTeachers(rows [][]string) []TeacherRow {
	if len(rows) == 0 {
		return nil
	}
	h := newHeader(rows[0])
	room := h.find([]string{"homeroom", "room"}, "teacher", "name")
	name := h.find([]string{"name", "teacher"})
	if name < 0 {
		name = 0
	}
	var out []TeacherRow
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, TeacherRow{Line: i + 2, Name: cell(row, name), Homeroom: cell(row, room)})
	}
	return out
}

// LoadStudents reads and parses a student roster upload.
func LoadStudents(r io.Reader, filename string) ([]StudentRow, error) {
	rows, err := ReadRows(r, filename)
	if err != nil {
		return nil, err
	}
	return ParseStudents(rows), nil
}

// LoadTeachers reads and parses a teacher list upload.
func LoadTeachers(r io.Reader, filename string) ([]TeacherRow, error) {
	rows, err := ReadRows(r, filename)
	if err != nil {
		return nil, err
	}
	return ParseTeachers(rows), nil
}
