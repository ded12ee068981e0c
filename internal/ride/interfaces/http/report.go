package ridehttp

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"bikecloud/internal/observability/metrics"
	"bikecloud/internal/ride/application"
	ride "bikecloud/internal/ride/domain"
)

// ReportHandler exports an ended session as a downloadable report.
type ReportHandler struct {
	store      ride.Store
	aggregator *application.Aggregator
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(store ride.Store, aggregator *application.Aggregator) (*ReportHandler, error) {
	if store == nil {
		return nil, errors.New("report handler: nil store")
	}
	if aggregator == nil {
		return nil, errors.New("report handler: nil aggregator")
	}
	return &ReportHandler{store: store, aggregator: aggregator}, nil
}

// ServeHTTP handles GET /api/v1/session/report.{xlsx,pdf}.
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	format := "xlsx"
	if strings.HasSuffix(r.URL.Path, ".pdf") {
		format = "pdf"
	}

	summary, err := h.aggregator.Summary(r.Context())
	if err != nil {
		metrics.IncReportExport(format, metrics.ResultError)
		http.Error(w, "summary error", http.StatusInternalServerError)
		return
	}
	if summary.State != application.SummaryFinal || summary.Final == nil {
		metrics.IncReportExport(format, metrics.ResultRejected)
		http.Error(w, "no ended session to report", http.StatusConflict)
		return
	}
	snap, err := h.store.Snapshot(r.Context())
	if err != nil {
		metrics.IncReportExport(format, metrics.ResultError)
		http.Error(w, "snapshot error", http.StatusInternalServerError)
		return
	}

	var data []byte
	var contentType string
	switch format {
	case "pdf":
		data, err = BuildReportPDF(snap.Session, summary.Final, snap.Series)
		contentType = "application/pdf"
	default:
		data, err = BuildReportXLSX(snap.Session, summary.Final, snap.Series)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		metrics.IncReportExport(format, metrics.ResultError)
		http.Error(w, "report build error", http.StatusInternalServerError)
		return
	}

	metrics.IncReportExport(format, metrics.ResultAccepted)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=session-report."+format)
	_, _ = w.Write(data)
}

// BuildReportPDF renders a minimal PDF for an ended session.
func BuildReportPDF(session ride.Session, stats *application.FinalStats, series ride.Series) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Ride Session Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Started: %s", time.Unix(session.StartedAt, 0).Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Ended: %s", time.Unix(session.EndedAt, 0).Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Duration: %s", stats.Duration))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Samples: %d", len(series)))
	pdf.Ln(8)

	pdf.Cell(0, 6, fmt.Sprintf("Average Speed (MPH): %.2f", stats.SpeedMeanMPH))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Max Speed (MPH): %.2f", stats.SpeedMaxMPH))
	pdf.Ln(5)
	if stats.ResistanceMean != nil && stats.ResistanceMax != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Average Resistance: %.2f", *stats.ResistanceMean))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Max Resistance: %d", *stats.ResistanceMax))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Average Heart Rate (BPM): %.2f", stats.HeartMeanBPM))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Max Heart Rate (BPM): %.2f", stats.HeartMaxBPM))
	pdf.Ln(8)

	// Samples table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Time", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Speed (MPH)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Resistance", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Heart (BPM)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, sample := range series {
		resistance := "-"
		if sample.Resistance != nil {
			resistance = fmt.Sprintf("%d", *sample.Resistance)
		}
		pdf.CellFormat(50, 6, time.Unix(sample.TS, 0).Format("15:04:05"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", sample.SpeedMPH), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, resistance, "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", sample.HeartBPM), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportXLSX renders a minimal XLSX for an ended session.
func BuildReportXLSX(session ride.Session, stats *application.FinalStats, series ride.Series) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	samplesSheet := "samples"
	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(samplesSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Ride Session Report")
	_ = f.SetCellValue(summarySheet, "A3", "Started")
	_ = f.SetCellValue(summarySheet, "B3", time.Unix(session.StartedAt, 0).Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A4", "Ended")
	_ = f.SetCellValue(summarySheet, "B4", time.Unix(session.EndedAt, 0).Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A5", "Duration")
	_ = f.SetCellValue(summarySheet, "B5", stats.Duration)
	_ = f.SetCellValue(summarySheet, "A6", "Average Speed (MPH)")
	_ = f.SetCellValue(summarySheet, "B6", stats.SpeedMeanMPH)
	_ = f.SetCellValue(summarySheet, "A7", "Max Speed (MPH)")
	_ = f.SetCellValue(summarySheet, "B7", stats.SpeedMaxMPH)
	row := 8
	if stats.ResistanceMean != nil && stats.ResistanceMax != nil {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Average Resistance")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), *stats.ResistanceMean)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row+1), "Max Resistance")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row+1), *stats.ResistanceMax)
		row += 2
	}
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Average Heart Rate (BPM)")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), stats.HeartMeanBPM)
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row+1), "Max Heart Rate (BPM)")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row+1), stats.HeartMaxBPM)

	_ = f.SetCellValue(samplesSheet, "A1", "Timestamp")
	_ = f.SetCellValue(samplesSheet, "B1", "Speed (MPH)")
	_ = f.SetCellValue(samplesSheet, "C1", "Resistance")
	_ = f.SetCellValue(samplesSheet, "D1", "Heart Rate (BPM)")
	for i, sample := range series {
		r := i + 2
		_ = f.SetCellValue(samplesSheet, fmt.Sprintf("A%d", r), sample.TS)
		_ = f.SetCellValue(samplesSheet, fmt.Sprintf("B%d", r), sample.SpeedMPH)
		if sample.Resistance != nil {
			_ = f.SetCellValue(samplesSheet, fmt.Sprintf("C%d", r), *sample.Resistance)
		}
		_ = f.SetCellValue(samplesSheet, fmt.Sprintf("D%d", r), sample.HeartBPM)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
