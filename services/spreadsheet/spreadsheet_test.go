package spreadsheet

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/evaluation"
)

func xlsxBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestReadRows(t *testing.T) {
	data := xlsxBytes(t, [][]interface{}{
		{"Name", "Description", "Duration", "Status"},
		{"BS Information Technology", "IT program", 48, "active"},
	})

	rows, err := ReadRows(bytes.NewReader(data), "courses.XLSX")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Name", "Description", "Duration", "Status"}, rows[0])
	assert.Equal(t, []string{"BS Information Technology", "IT program", "48", "active"}, rows[1])
}

func TestReadRows_errors(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		filename string
		wantMsg  string
	}{
		{name: "unsupported extension", data: []byte("a,b"), filename: "courses.csv", wantMsg: "only .xls and .xlsx files are supported"},
		{name: "corrupted xlsx", data: []byte("not a zip"), filename: "courses.xlsx", wantMsg: "not a valid .xlsx file"},
		{name: "empty sheet", data: xlsxBytes(t, nil), filename: "courses.xlsx", wantMsg: "worksheet is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRows(bytes.NewReader(tt.data), tt.filename)
			require.Error(t, err)
			verr, ok := err.(*core.ValidationError)
			require.True(t, ok)
			assert.Equal(t, "file", verr.Fields[0].Field)
			assert.Equal(t, tt.wantMsg, verr.Fields[0].Error)
		})
	}
}

func TestWriteReport(t *testing.T) {
	created := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	assigned := created.Add(48 * time.Hour)
	finalized := assigned.Add(72 * time.Hour)
	applicants := []applicant.Applicant{
		{
			ID:    "a1",
			Email: "juan@example.com",
			PersonalInfo: applicant.PersonalInfo{
				Firstname: "Juan", Lastname: "Dela Cruz", MobileNumber: "09171234567", FirstPriorityCourse: "BSIT",
			},
			Status:     applicant.StatusEvaluatedPassed,
			AssessorID: "s1",
			AssignedAt: &assigned,
			CreatedAt:  created,
		},
		{ID: "a2", Email: "maria@example.com", Status: applicant.StatusPendingReview, CreatedAt: created},
	}
	evaluations := []evaluation.Evaluation{{
		ApplicantID: "a1",
		AssessorID:  "s1",
		Scores: evaluation.Scores{
			EducationalQualification: evaluation.CategoryScore{Score: 18},
			WorkExperience:           evaluation.CategoryScore{Score: 35},
			ProfessionalAchievements: evaluation.CategoryScore{Score: 20},
			Interview:                evaluation.CategoryScore{Score: 12},
		},
		TotalScore:    85,
		Passed:        true,
		IsFinalized:   true,
		FinalizedAt:   &finalized,
		FinalComments: "Strong portfolio",
	}}

	f, err := writeReport(applicants, evaluations, map[string]string{"s1": "Ana Reyes"})
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{applicantsSheet, evaluationsSheet}, f.GetSheetList())

	rows, err := f.GetRows(applicantsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Name", rows[0][1])
	assert.Equal(t, []string{
		"a1", "Juan Dela Cruz", "juan@example.com", "09171234567", "BSIT", "", "", "Evaluated - Passed", "Ana Reyes",
		"2024-03-03 08:30", "2024-03-01 08:30",
	}, rows[1])
	// the name falls back to the email while personal info is empty
	assert.Equal(t, "maria@example.com", rows[2][1])
	assert.Equal(t, "Pending Review", rows[2][7])

	rows, err = f.GetRows(evaluationsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, strings.HasPrefix(rows[0][3], "Educational Qualification"))
	assert.Equal(t, []string{
		"a1", "Juan Dela Cruz", "Ana Reyes", "18", "35", "20", "12", "85", "Passed", "2024-03-06 08:30", "Strong portfolio",
	}, rows[1])
}
