package questionnaires

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"perfdash/internal/domain/directory"
)

// RenderReport builds a one-page PDF summary of the questionnaire and its
// evaluation. When ReportsDir is set a copy is kept on disk.
func (s *Service) RenderReport(ctx context.Context, actor *directory.User, questionnaireID string) ([]byte, error) {
	detail, err := s.Get(ctx, actor, questionnaireID)
	if err != nil {
		return nil, err
	}
	data, err := renderPDF(detail)
	if err != nil {
		return nil, err
	}
	if s.ReportsDir != "" {
		if err := os.MkdirAll(s.ReportsDir, 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(s.ReportsDir, detail.ID+".pdf"), data, 0o600); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func renderPDF(d Detail) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Monthly Progress Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	line := func(label, value string) {
		pdf.Cell(0, 8, tr(fmt.Sprintf("%s: %s", label, value)))
		pdf.Ln(7)
	}
	line("Employee", d.EmployeeName)
	line("Department", d.EmployeeDepartment.DisplayName())
	line("Period", fmt.Sprintf("%02d/%d", d.Month, d.Year))
	line("Due", d.DueDate.Format("2006-01-02"))
	line("Status", string(d.Status))
	pdf.Ln(4)

	if d.Evaluation == nil {
		pdf.SetFont("Helvetica", "I", 12)
		pdf.Cell(0, 8, "No evaluation has been recorded yet.")
	} else {
		e := d.Evaluation
		line("Overall rating", strings.ReplaceAll(string(e.OverallRating), "_", " "))
		line("Goals on track", yesNo(e.GoalsOnTrack))
		block := func(title, text string) {
			if strings.TrimSpace(text) == "" {
				return
			}
			pdf.Ln(3)
			pdf.SetFont("Helvetica", "B", 12)
			pdf.Cell(0, 8, title)
			pdf.Ln(7)
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(0, 6, tr(text), "", "L", false)
		}
		block("Areas for improvement", e.AreasForImprovement)
		block("Manager comments", e.ManagerComments)
		block("Message to employee", e.EmployeeMessage)
		block("Suggestions for the manager", e.AISuggestions)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, errors.New("empty report")
	}
	return buf.Bytes(), nil
}
