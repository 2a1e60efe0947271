// Package receipts renders PDF receipts for completed payments.
package receipts

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/codr1/Padelicious/internal/models"
)

var ErrNotCompleted = errors.New("receipts are only issued for completed payments")

type Receipt struct {
	ClubName    string
	CourtName   string
	PayerName   string
	PayerEmail  string
	Payment     models.Payment
	Reservation models.Reservation
	// VerifyURL is encoded in the QR code. Optional.
	VerifyURL string
	IssuedAt  time.Time
}

// Number is the human-facing receipt number.
func (r Receipt) Number() string {
	return fmt.Sprintf("R-%06d-%06d", r.Reservation.ID, r.Payment.ID)
}

// Render returns a single-page A4 PDF.
func Render(r Receipt) ([]byte, error) {
	if r.Payment.Status != models.PaymentCompleted {
		return nil, ErrNotCompleted
	}
	if r.IssuedAt.IsZero() {
		r.IssuedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Payment receipt "+r.Number(), true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 12, tr(strings.ToUpper(r.ClubName)))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, "Payment receipt "+r.Number())
	pdf.Ln(12)

	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(6)

	yStart := pdf.GetY()
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, yStart, 120, 50, "F")
	pdf.SetXY(20, yStart+6)

	sectionTitle(pdf, "RESERVATION")
	row(pdf, tr, "Court", r.CourtName)
	row(pdf, tr, "Date", r.Reservation.Date.String())
	row(pdf, tr, "Time", fmt.Sprintf("%s - %s", r.Reservation.StartTime, r.Reservation.EndTime))
	row(pdf, tr, "Player", r.PayerName)
	if r.PayerEmail != "" {
		row(pdf, tr, "Email", r.PayerEmail)
	}

	if r.VerifyURL != "" {
		png, err := qrcode.Encode(r.VerifyURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode qr code: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "png"}
		pdf.RegisterImageOptionsReader("verify-qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("verify-qr", 145, yStart, 45, 0, false, opts, 0, "")
	}

	pdf.SetY(yStart + 58)
	sectionTitle(pdf, "PAYMENT")
	row(pdf, tr, "Amount", fmt.Sprintf("%s %s", r.Payment.Amount.StringFixed(2), r.Payment.Currency))
	row(pdf, tr, "Method", channelLabel(r.Payment.Channel))
	if ref := reference(r.Payment); ref != "" {
		row(pdf, tr, "Reference", ref)
	}
	if r.Payment.CompletedAt != nil {
		row(pdf, tr, "Paid on", r.Payment.CompletedAt.Format("2006-01-02 15:04 MST"))
	}
	row(pdf, tr, "Issued", r.IssuedAt.Format("2006-01-02 15:04 MST"))

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(15, 285, 195, 285)
	pdf.SetY(288)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, tr(r.ClubName+". Keep this receipt for your records."), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func sectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)
}

func row(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	x := pdf.GetX()
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(30, 7, label+":")
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, tr(value))
	pdf.Ln(7)
	pdf.SetX(x)
}

func channelLabel(c models.Channel) string {
	switch c {
	case models.ChannelGateway:
		return "Card"
	case models.ChannelMobileTransfer:
		return "Mobile transfer"
	case models.ChannelPeerTransfer:
		return "Peer transfer"
	case models.ChannelCash:
		return "Cash"
	}
	return c.String()
}

func reference(p models.Payment) string {
	switch {
	case p.Evidence.ExternalTransactionID != "":
		return p.Evidence.ExternalTransactionID
	case p.Evidence.ReferenceDigits != "":
		return "****" + p.Evidence.ReferenceDigits
	}
	return ""
}
