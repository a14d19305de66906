package roster

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestLoadStudentsXLSX(t *testing.T) {
	rows := [][]any{{"Student Name", "Grade", "Homeroom", "Homeroom Teacher"}}
	for i := 0; i < 30; i++ {
		rows = append(rows, []any{fmt.Sprintf("Student%02d Test", i), 10, 101, "Smith"})
	}
	got, err := LoadStudents(workbook(t, rows), "roster.xlsx")
	require.NoError(t, err)
	require.Len(t, got, 30)
	assert.Equal(t, StudentRow{Line: 2, Name: "Student00 Test", Grade: "10", Homeroom: "101", Teacher: "Smith"}, got[0])
}

func TestLoadStudentsSniffsXLSXWithoutExtension(t *testing.T) {
	buf := workbook(t, [][]any{{"Name", "Grade"}, {"Jane Doe", 9}})
	got, err := LoadStudents(buf, "upload")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Jane Doe", got[0].Name)
}

func TestParseStudentsHeaderVariants(t *testing.T) {
	cases := []struct {
		name string
		csv  string
		want StudentRow
	}{
		{
			name: "teacher column before room",
			csv:  "Homeroom Teacher,Student,Room,Grade\nSmith,\"Doe, Jane\",12,10.0\n",
			want: StudentRow{Line: 2, Name: "Doe, Jane", Grade: "10.0", Homeroom: "12", Teacher: "Smith"},
		},
		{
			name: "separate first and last",
			csv:  "First Name,Last Name,Grade,Homeroom,Teacher\nJane,Doe,11,204,Lee\n",
			want: StudentRow{Line: 2, First: "Jane", Last: "Doe", Grade: "11", Homeroom: "204", Teacher: "Lee"},
		},
		{
			name: "unrecognized header falls back to first four columns",
			csv:  "a,b,c,d\nJane Doe,9,5,Brown\n",
			want: StudentRow{Line: 2, Name: "Jane Doe", Grade: "9", Homeroom: "5", Teacher: "Brown"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LoadStudents(strings.NewReader(tc.csv), "roster.csv")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tc.want, got[0])
		})
	}
}

func TestParseStudentsSkipsBlankRows(t *testing.T) {
	rows := [][]string{
		{"Name", "Grade"},
		{"", "10"},
		{"", ""},
		{"Jane Doe", "10"},
	}
	got := ParseStudents(rows)
	require.Len(t, got, 2)
	assert.Equal(t, StudentRow{Line: 2, Grade: "10"}, got[0])
	assert.Equal(t, 4, got[1].Line)
}

func TestParseTeachers(t *testing.T) {
	got := ParseTeachers([][]string{
		{"Teacher", "Homeroom"},
		{"Mary Smith", "101"},
		{"", "102"},
		{"Lee, Pat", ""},
	})
	require.Len(t, got, 3)
	assert.Equal(t, TeacherRow{Line: 2, Name: "Mary Smith", Homeroom: "101"}, got[0])
	assert.Equal(t, TeacherRow{Line: 3, Homeroom: "102"}, got[1])
	assert.Equal(t, TeacherRow{Line: 4, Name: "Lee, Pat"}, got[2])
}

func TestParseTeachersFirstColumnWithoutHeader(t *testing.T) {
	got := ParseTeachers([][]string{{"Staff"}, {"Mary Smith"}})
	require.Len(t, got, 1)
	assert.Equal(t, "Mary Smith", got[0].Name)
}

func TestReadRowsEmpty(t *testing.T) {
	_, err := ReadRows(strings.NewReader(""), "x.csv")
	assert.ErrorIs(t, err, ErrEmpty)
}
