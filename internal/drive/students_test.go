package drive

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func rosterWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestUploadRosterXLSX(t *testing.T) {
	svc, evt := newTestService(t)
	ctx := context.Background()

	rows := [][]any{{"Student Name", "Grade", "Homeroom", "Teacher"}}
	for i := 0; i < 30; i++ {
		rows = append(rows, []any{fmt.Sprintf("Student%02d Last%02d", i, i), 9 + i%4, 101 + i%3, "Smith"})
	}
	res, err := svc.UploadRoster(ctx, evt, "roster.xlsx", rosterWorkbook(t, rows))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Added: 30, Skipped: 0}, res)

	// A second upload only finds duplicates.
	res, err = svc.UploadRoster(ctx, evt, "roster.xlsx", rosterWorkbook(t, rows))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Added: 0, Skipped: 30}, res)

	students, err := svc.ListStudents(ctx, evt, StudentFilter{Grade: "9"})
	require.NoError(t, err)
	assert.Len(t, students, 8)
	for _, st := range students {
		assert.Equal(t, "9", st.Grade)
		assert.Len(t, st.HomeroomNumber, 3)
		assert.NotNil(t, st.ReservedStreets)
	}
}

func TestUploadRosterCSVSkipsBadRows(t *testing.T) {
	svc, evt := newTestService(t)
	ctx := context.Background()

	csv := "Name,Grade,Room,Teacher\n" +
		"Jane Doe,10.0,5.0,Lee\n" +
		",11,101,Lee\n" +
		"John Roe,13,101,Lee\n" +
		"jane doe,10,5,Lee\n" +
		"\"Doe, Jim\",12,7,Park\n"
	res, err := svc.UploadRoster(ctx, evt, "roster.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Added: 2, Skipped: 3}, res)

	students, err := svc.ListStudents(ctx, evt, StudentFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, students)
	assert.Equal(t, "Jane", students[0].FirstName)
	assert.Equal(t, "10", students[0].Grade)
	assert.Equal(t, "005", students[0].HomeroomNumber)
}

func TestUploadsCountNamelessRows(t *testing.T) {
	svc, evt := newTestService(t)
	ctx := context.Background()

	res, err := svc.UploadRoster(ctx, evt, "roster.csv",
		strings.NewReader("Name,Grade,Room,Teacher\nJane Doe,10,101,Lee\n,11,101,Lee\n,,,\n"))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Added: 1, Skipped: 1}, res)

	res, err = svc.UploadTeachers(ctx, evt, "teachers.csv", strings.NewReader("Teacher,Room\nMary Lee,101\n,102\n"))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Added: 1, Skipped: 1}, res)
}

func TestUploadKeepsRowOrder(t *testing.T) {
	svc, evt := newTestService(t)
	ctx := context.Background()

	var students, teachers strings.Builder
	students.WriteString("Name,Grade,Room,Teacher\n")
	teachers.WriteString("Teacher\n")
	var want []string
	for i := 0; i < 200; i++ {
		// reverse alphabetical so name order cannot stand in for upload order
		first := fmt.Sprintf("S%03d", 199-i)
		want = append(want, first)
		fmt.Fprintf(&students, "%s Row,10,101,Lee\n", first)
		fmt.Fprintf(&teachers, "%s Staff\n", first)
	}
	_, err := svc.UploadRoster(ctx, evt, "roster.csv", strings.NewReader(students.String()))
	require.NoError(t, err)
	_, err = svc.UploadTeachers(ctx, evt, "teachers.csv", strings.NewReader(teachers.String()))
	require.NoError(t, err)

	for _, table := range []string{"students", "teachers"} {
		var got []string
		require.NoError(t, svc.repo.db.SelectContext(ctx, &got,
			svc.repo.db.Rebind(`SELECT first_name FROM `+table+` WHERE event_id = ? ORDER BY created_at`), evt))
		assert.Equal(t, want, got, table)

		var distinct int
		require.NoError(t, svc.repo.db.GetContext(ctx, &distinct,
			svc.repo.db.Rebind(`SELECT COUNT(DISTINCT created_at) FROM `+table+` WHERE event_id = ?`), evt))
		assert.Equal(t, 200, distinct, table)
	}
}

func TestUploadRosterRejectsEmptyFile(t *testing.T) {
	svc, evt := newTestService(t)
	_, err := svc.UploadRoster(context.Background(), evt, "roster.csv", strings.NewReader(""))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUploadTeachersInfersHomeroom(t *testing.T) {
	svc, evt := newTestService(t)
	ctx := context.Background()
	addStudent(t, svc, evt, "Ana", "Diaz", "9", "204", "Smith")
	addStudent(t, svc, evt, "Ben", "Eng", "9", "204", "Smith")
	addStudent(t, svc, evt, "Cal", "Fox", "9", "12", "Lee")

	csv := "Teacher,Room\nJane Smith,\nRobert Lee,\nMaria Park,310\nJane Smith,\n"
	res, err := svc.UploadTeachers(ctx, evt, "teachers.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Added: 3, Skipped: 1}, res)

	teachers, err := svc.ListTeachers(ctx, evt)
	require.NoError(t, err)
	rooms := map[string]string{}
	for _, tc := range teachers {
		rooms[tc.FullName] = tc.HomeroomNumber
	}
	assert.Equal(t, map[string]string{"Jane Smith": "204", "Robert Lee": "012", "Maria Park": "310"}, rooms)
}

func TestCreateAndUpdateStudent(t *testing.T) {
	svc, evt := newTestService(t)
	ctx := context.Background()

	st, err := svc.CreateStudent(ctx, evt, StudentInput{Name: "Doe, Jane", Grade: "10", HomeroomNumber: "7", HomeroomTeacher: "Lee"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", st.Name)
	assert.Equal(t, "007", st.HomeroomNumber)

	_, err = svc.CreateStudent(ctx, evt, StudentInput{FirstName: "JANE", LastName: "doe", Grade: "10"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.CreateStudent(ctx, evt, StudentInput{FirstName: "Max", Grade: "8"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "grade")

	grade := "11"
	updated, err := svc.UpdateStudent(ctx, evt, st.ID, StudentPatch{Grade: &grade})
	require.NoError(t, err)
	assert.Equal(t, "11", updated.Grade)
	assert.Equal(t, "Lee", updated.HomeroomTeacher)

	_, err = svc.UpdateStudent(ctx, evt, "missing", StudentPatch{Grade: &grade})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchStudents(t *testing.T) {
	svc, evt := newTestService(t)
	ctx := context.Background()
	addStudent(t, svc, evt, "Jane", "Doe", "10", "101", "Lee")
	addStudent(t, svc, evt, "John", "Doeman", "11", "102", "Lee")
	addStudent(t, svc, evt, "Amy", "Ng", "12", "103", "Park")
	for i := 0; i < 12; i++ {
		addStudent(t, svc, evt, fmt.Sprintf("Zed%d", i), "Zulu", "9", "104", "Park")
	}

	found, err := svc.SearchStudents(ctx, evt, "DOE")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = svc.SearchStudents(ctx, evt, "zulu")
	require.NoError(t, err)
	assert.Len(t, found, 10)

	found, err = svc.SearchStudents(ctx, evt, "100%")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = svc.SearchStudents(ctx, evt, "  ")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestVerifyStudent(t *testing.T) {
	svc, evt := newTestService(t)
	ctx := context.Background()
	jane := addStudent(t, svc, evt, "Jane", "Doe", "10", "101", "Lee")

	for _, q := range []VerifyQuery{
		{Name: "Jane Doe"},
		{Name: "jane doe"},
		{Name: "Doe, Jane"},
		{Name: "Doe Jane"},
		{FirstName: "JANE", LastName: "DOE"},
		{Name: "Jane Doe", Grade: "10.0", HomeroomNumber: "101", HomeroomTeacher: "lee"},
	} {
		st, err := svc.VerifyStudent(ctx, evt, q)
		require.NoError(t, err, "%+v", q)
		assert.Equal(t, jane.ID, st.ID)
	}

	for _, q := range []VerifyQuery{
		{Name: "Jan Doe"},
		{Name: "Jane Doe", Grade: "11"},
		{Name: "Jane Doe", HomeroomNumber: "102"},
		{Name: "Jane Doe", HomeroomTeacher: "Park"},
	} {
		_, err := svc.VerifyStudent(ctx, evt, q)
		assert.ErrorIs(t, err, ErrNotFound, "%+v", q)
	}

	_, err := svc.VerifyStudent(ctx, evt, VerifyQuery{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDeleteStudentCascades(t *testing.T) {
	svc, evt := newTestService(t)
	ctx := context.Background()
	jane := addStudent(t, svc, evt, "Jane", "Doe", "10", "101", "Lee")
	donate(t, svc, evt, jane.ID, 12)
	_, err := svc.CreateReservation(ctx, evt, ReservationInput{Donor: studentDonor(jane), Streets: []string{"Main Street"}})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteStudent(ctx, evt, jane.ID))
	assert.ErrorIs(t, svc.DeleteStudent(ctx, evt, jane.ID), ErrNotFound)

	donations, err := svc.ListDonations(ctx, evt)
	require.NoError(t, err)
	assert.Empty(t, donations)
	reservations, err := svc.ListReservations(ctx, evt)
	require.NoError(t, err)
	assert.Empty(t, reservations)

	_, err = svc.CreateReservation(ctx, evt, ReservationInput{Donor: DonorRef{Kind: KindGroup, Name: "Band"}, Streets: []string{"Main Street"}})
	assert.NoError(t, err)
}
