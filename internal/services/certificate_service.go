package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf/v2"

	"ewaste-backend/internal/models"
	"ewaste-backend/internal/timeutil"
	"ewaste-backend/internal/workflow"
)

// CertificateService renders the recycling certificate handed to donors once
// a request is completed.
type CertificateService struct {
	Requests *RequestService
}

func NewCertificateService(requests *RequestService) *CertificateService {
	return &CertificateService{Requests: requests}
}

type certificateData struct {
	Request    *models.DonationRequest
	Donor      *models.User
	Recycler   *models.User
	Assignment *models.RecyclerAssignment
	History    []models.StatusHistoryEntry
}

// Generate returns the PDF certificate for a completed request.
func (s *CertificateService) Generate(ctx context.Context, actor workflow.Actor, requestID int) ([]byte, error) {
	data, err := s.load(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	return renderCertificate(data)
}

func (s *CertificateService) load(ctx context.Context, actor workflow.Actor, requestID int) (*certificateData, error) {
	req, err := s.Requests.GetRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusCompleted {
		return nil, workflow.Conflictf("request %d is %s; certificates are issued for completed requests", req.ID, req.Status)
	}

	store := s.Requests.Store
	a, err := store.GetAssignmentByRequest(ctx, req.ID)
	if err != nil {
		return nil, lookupErr("assignment", req.ID, err)
	}
	donor, err := store.GetUser(ctx, req.DonorID)
	if err != nil {
		return nil, lookupErr("donor", req.DonorID, err)
	}
	recycler, err := store.GetUser(ctx, a.RecyclerID)
	if err != nil {
		return nil, lookupErr("recycler", a.RecyclerID, err)
	}
	history, err := s.Requests.History(ctx, actor, req.ID)
	if err != nil {
		return nil, err
	}

	return &certificateData{Request: req, Donor: donor, Recycler: recycler, Assignment: a, History: history}, nil
}

func lookupErr(what string, id int, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%s %d missing for completed request: %w", what, id, err)
	}
	return workflow.KindError(workflow.ErrTransientStore, "load "+what, err)
}

func renderCertificate(data *certificateData) ([]byte, error) {
	req := data.Request

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle(fmt.Sprintf("Recycling Certificate #%d", req.ID), true)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(180, 12, "Certificate of Responsible Recycling", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(180, 6, fmt.Sprintf("Certificate No. EW-%06d", req.ID), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(180, 7, fmt.Sprintf(
		"This certifies that the e-waste donated by %s was collected and recycled by %s.",
		data.Donor.Name, data.Recycler.Name), "", "C", false)
	pdf.Ln(6)

	// Donation details
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(180, 8, "Donation Details", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	row := func(label, value string) {
		pdf.CellFormat(55, 7, label, "LB", 0, "L", false, 0, "")
		pdf.CellFormat(125, 7, value, "RB", 1, "L", false, 0, "")
	}
	row("Waste type", req.WasteType)
	row("Description", truncate(req.Description, 70))
	row("Service area", req.ServiceArea)
	row("Submitted", timeutil.FormatDisplay(req.DateSubmitted, timeutil.DisplayLayout))
	row("Assigned", timeutil.FormatDisplay(data.Assignment.AssignedDate, timeutil.DisplayLayout))
	if req.DateResolved != nil {
		row("Completed", timeutil.FormatDisplay(*req.DateResolved, timeutil.DisplayLayout))
	}
	pdf.Ln(6)

	// Status trail, oldest first
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(180, 8, "Status History", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(70, 7, "Date", "1", 0, "C", true, 0, "")
	pdf.CellFormat(55, 7, "From", "1", 0, "C", true, 0, "")
	pdf.CellFormat(55, 7, "To", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for i := len(data.History) - 1; i >= 0; i-- {
		e := data.History[i]
		from := "-"
		if e.OldStatus != nil {
			from = string(*e.OldStatus)
		}
		pdf.CellFormat(70, 6, timeutil.FormatDisplay(e.ChangeDate, timeutil.DisplayLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(55, 6, from, "1", 0, "C", false, 0, "")
		pdf.CellFormat(55, 6, string(e.NewStatus), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(180, 5, fmt.Sprintf("Generated %s", timeutil.FormatDisplay(timeutil.Now(), timeutil.DisplayLayout)), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
