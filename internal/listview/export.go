package listview

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"gdprdesk/internal/domain/gdpr"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

var csvHeader = []string{"ID", "User", "Email", "Type", "Status", "Company", "Created Date", "Content"}

// FileName is the download name of a list export, e.g. gdpr-requests-2024-05-02.csv.
func FileName(format Format, now time.Time) string {
	return fmt.Sprintf("gdpr-requests-%s.%s", now.Format("2006-01-02"), format)
}

func RequestFileName(id int64) string {
	return fmt.Sprintf("request-%d.json", id)
}

// flatten keeps every record on a single CSV line.
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

// WriteCSV writes a header plus one line per request, so N requests produce
// N+1 lines. Quotes inside fields are doubled.
func WriteCSV(w io.Writer, list []gdpr.Request) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, req := range list {
		row := []string{
			strconv.FormatInt(req.ID, 10),
			UserName(req),
			req.User.Email,
			gdpr.TypeLabel(string(req.RequestType)),
			gdpr.StatusLabel(string(req.Status)),
			CompanyName(req),
			req.CreatedAt.Format("2006-01-02"),
			req.RequestContent,
		}
		for i := range row {
			row[i] = flatten(row[i])
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteJSON(w io.Writer, list []gdpr.Request) error {
	if list == nil {
		list = []gdpr.Request{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}

// RequestExport is the single-request download document.
type RequestExport struct {
	ID        int64     `json:"id"`
	User      string    `json:"user"`
	Email     string    `json:"email"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func WriteRequestJSON(w io.Writer, req gdpr.Request) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(RequestExport{
		ID:        req.ID,
		User:      UserName(req),
		Email:     req.User.Email,
		Type:      string(req.RequestType),
		Status:    string(req.Status),
		Content:   req.RequestContent,
		CreatedAt: req.CreatedAt,
		UpdatedAt: req.UpdatedAt,
	})
}

func truncate(s string, limit int) string {
	s = flatten(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

// WritePDF renders the list as a landscape table with a summary line.
func WritePDF(w io.Writer, list []gdpr.Request, now time.Time) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetCreationDate(now)
	pdf.SetTitle("GDPR requests", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "GDPR requests")
	pdf.Ln(10)
	stats := Summarize(list)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s | Total %d | Pending %d | In progress %d | Processed %d | Rejected %d",
		now.Format("2006-01-02 15:04"), stats.Total, stats.Pending, stats.InProgress, stats.Processed, stats.Rejected))
	pdf.Ln(10)

	widths := []float64{14, 40, 52, 32, 24, 40, 24, 51}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range csvHeader {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, req := range list {
		cells := []string{
			strconv.FormatInt(req.ID, 10),
			truncate(UserName(req), 24),
			truncate(req.User.Email, 32),
			gdpr.TypeLabel(string(req.RequestType)),
			gdpr.StatusLabel(string(req.Status)),
			truncate(CompanyName(req), 24),
			req.CreatedAt.Format("2006-01-02"),
			truncate(req.RequestContent, 32),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, tr(c), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}

// WriteReceiptPDF renders a one page acknowledgement of a single request.
func WriteReceiptPDF(w io.Writer, req gdpr.Request, now time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(now)
	pdf.SetTitle(fmt.Sprintf("GDPR request #%d", req.ID), true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "GDPR request receipt")
	pdf.Ln(14)

	rows := [][2]string{
		{"Request", fmt.Sprintf("#%d", req.ID)},
		{"Type", gdpr.TypeLabel(string(req.RequestType))},
		{"Status", gdpr.StatusLabel(string(req.Status))},
		{"Submitted", req.CreatedAt.Format("2006-01-02 15:04")},
		{"Last update", req.UpdatedAt.Format("2006-01-02 15:04")},
		{"Requester", UserName(req)},
		{"Email", req.User.Email},
		{"Company", CompanyName(req)},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(35, 7, row[0]+":")
		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 7, tr(row[1]))
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, "Content")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(req.RequestContent), "1", "L", false)

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.Cell(0, 5, "Generated "+now.Format(time.RFC1123))
	return pdf.Output(w)
}
