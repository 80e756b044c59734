package applicant

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/trezcool/eteeap/core"
)

// MaxDocumentSize is the largest document an applicant may upload.
const MaxDocumentSize = 25 << 20 // 25MB

var allowedDocumentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// DocumentLabel files a document under a section of the applicant's portfolio.
type DocumentLabel string

const (
	LabelInitialSubmission DocumentLabel = "initial-submission"
	LabelResume            DocumentLabel = "resume"
	LabelTraining          DocumentLabel = "training"
	LabelAwards            DocumentLabel = "awards"
	LabelInterview         DocumentLabel = "interview"
	LabelOthers            DocumentLabel = "others"
)

// DocumentLabels are the portfolio sections, in display order.
var DocumentLabels = []DocumentLabel{
	LabelInitialSubmission,
	LabelResume,
	LabelTraining,
	LabelAwards,
	LabelInterview,
	LabelOthers,
}

var labelTitles = map[DocumentLabel]string{
	LabelInitialSubmission: "Initial Submissions",
	LabelResume:            "Updated Resume / CV",
	LabelTraining:          "Certificate of Training",
	LabelAwards:            "Awards",
	LabelInterview:         "Interview Form",
	LabelOthers:            "Others",
}

func (l DocumentLabel) IsValid() bool {
	_, ok := labelTitles[l]
	return ok
}

func (l DocumentLabel) Title() string {
	return labelTitles[l]
}

// PortfolioSection lists the documents filed under one label.
type PortfolioSection struct {
	Label     DocumentLabel `json:"label"`
	Title     string        `json:"title"`
	Documents []Document    `json:"documents"`
}

// groupPortfolio files docs under every label, empty sections included.
func groupPortfolio(docs []Document) []PortfolioSection {
	byLabel := make(map[DocumentLabel][]Document, len(DocumentLabels))
	for _, doc := range docs {
		label := doc.Label
		if !label.IsValid() {
			label = LabelOthers
		}
		byLabel[label] = append(byLabel[label], doc)
	}

	sections := make([]PortfolioSection, 0, len(DocumentLabels))
	for _, label := range DocumentLabels {
		section := PortfolioSection{Label: label, Title: label.Title(), Documents: byLabel[label]}
		if section.Documents == nil {
			section.Documents = []Document{}
		}
		sections = append(sections, section)
	}
	return sections
}

// validateUploads checks every upload and reports all offending files at once.
// The content type of each valid upload is normalized from its extension.
func validateUploads(uploads []Upload) error {
	if len(uploads) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "files", Error: "at least one file is required"})
	}

	problems := make([]string, 0)
	for i := range uploads {
		up := &uploads[i]
		up.Filename = filepath.Base(core.CleanString(up.Filename))
		up.Label = DocumentLabel(core.CleanString(string(up.Label), true /* lower */))
		if up.Label == "" {
			up.Label = LabelInitialSubmission
		}
		ct, ok := allowedDocumentTypes[strings.ToLower(filepath.Ext(up.Filename))]
		switch {
		case !up.Label.IsValid():
			problems = append(problems, fmt.Sprintf("%s: unknown label %q", up.Filename, up.Label))
		case !ok:
			problems = append(problems, fmt.Sprintf("%s: only PDF, JPG, PNG, DOC and DOCX files are allowed", up.Filename))
		case up.Size <= 0:
			problems = append(problems, fmt.Sprintf("%s: file is empty", up.Filename))
		case up.Size > MaxDocumentSize:
			problems = append(problems, fmt.Sprintf("%s: file exceeds the 25MB limit", up.Filename))
		default:
			up.ContentType = ct
		}
	}
	if len(problems) > 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "files", Error: strings.Join(problems, "; ")})
	}
	return nil
}

func documentKey(applicantID, documentID, filename string) string {
	return fmt.Sprintf("applicants/%s/%s%s", applicantID, documentID, strings.ToLower(filepath.Ext(filename)))
}
