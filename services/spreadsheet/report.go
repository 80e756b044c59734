package spreadsheet

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/assessor"
	"github.com/trezcool/eteeap/core/evaluation"
)

const (
	applicantsSheet  = "Applicants"
	evaluationsSheet = "Evaluations"
	dateLayout       = "2006-01-02 15:04"
)

var (
	applicantsHeader = []interface{}{
		"ID", "Name", "Email", "Mobile Number", "First Priority Course", "Second Priority Course",
		"Third Priority Course", "Status", "Assessor", "Assigned At", "Registered At",
	}
	evaluationsHeader = []interface{}{
		"Applicant ID", "Name", "Assessor", "Educational Qualification (/20)", "Work Experience (/40)",
		"Professional Achievements (/25)", "Interview (/15)", "Total (/100)", "Result", "Finalized At", "Comments",
	}
)

// Reporter builds the admin XLSX report of applicants and their evaluations.
type Reporter struct {
	applicants  *applicant.Service
	assessors   *assessor.Service
	evaluations *evaluation.Service
}

func NewReporter(applicants *applicant.Service, assessors *assessor.Service, evaluations *evaluation.Service) *Reporter {
	return &Reporter{applicants: applicants, assessors: assessors, evaluations: evaluations}
}

// WriteApplicantsReport writes the applicants matching filter, with one row per finalized evaluation on a second sheet.
func (rp *Reporter) WriteApplicantsReport(ctx context.Context, w io.Writer, filter applicant.QueryFilter) error {
	applicants, err := rp.applicants.Query(ctx, filter, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	if err != nil {
		return errors.Wrap(err, "querying applicants")
	}
	assessors, err := rp.assessors.Query(ctx, assessor.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying assessors")
	}
	names := make(map[string]string, len(assessors))
	for _, asr := range assessors {
		names[asr.ID] = asr.FullName
	}

	evaluated := make([]evaluation.Evaluation, 0)
	for _, a := range applicants {
		if !a.Status.IsEvaluated() {
			continue
		}
		ev, err := rp.evaluations.GetByApplicant(ctx, a.ID)
		if errors.Cause(err) == evaluation.ErrNotFound {
			continue
		} else if err != nil {
			return errors.Wrap(err, "finding evaluation")
		}
		evaluated = append(evaluated, ev)
	}

	f, err := writeReport(applicants, evaluated, names)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return errors.Wrap(f.Write(w), "writing report")
}

func writeReport(applicants []applicant.Applicant, evaluations []evaluation.Evaluation, assessorNames map[string]string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), applicantsSheet); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}
	if _, err := f.NewSheet(evaluationsSheet); err != nil {
		return nil, errors.Wrap(err, "creating sheet")
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, errors.Wrap(err, "creating style")
	}

	names := make(map[string]string, len(applicants))
	rows := make([][]interface{}, 0, len(applicants))
	for _, a := range applicants {
		names[a.ID] = a.Name()
		pi := a.PersonalInfo
		rows = append(rows, []interface{}{
			a.ID, a.Name(), a.Email, pi.MobileNumber, pi.FirstPriorityCourse, pi.SecondPriorityCourse,
			pi.ThirdPriorityCourse, string(a.Status), assessorNames[a.AssessorID], formatTime(a.AssignedAt),
			formatTime(&a.CreatedAt),
		})
	}
	if err = writeSheet(f, applicantsSheet, applicantsHeader, rows, headerStyle); err != nil {
		return nil, err
	}

	rows = make([][]interface{}, 0, len(evaluations))
	for _, ev := range evaluations {
		result := "Failed"
		if ev.Passed {
			result = "Passed"
		}
		s := ev.Scores
		rows = append(rows, []interface{}{
			ev.ApplicantID, names[ev.ApplicantID], assessorNames[ev.AssessorID],
			s.EducationalQualification.Score, s.WorkExperience.Score, s.ProfessionalAchievements.Score, s.Interview.Score,
			ev.TotalScore, result, formatTime(ev.FinalizedAt), ev.FinalComments,
		})
	}
	if err = writeSheet(f, evaluationsSheet, evaluationsHeader, rows, headerStyle); err != nil {
		return nil, err
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrapf(err, "writing %s header", sheet)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return errors.Wrapf(err, "styling %s header", sheet)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 22); err != nil {
		return errors.Wrapf(err, "sizing %s columns", sheet)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing %s row %d", sheet, i+2)
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
