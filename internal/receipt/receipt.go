// Package receipt renders donation receipts as PDF byte streams. Rendering
// is a pure transform over an immutable donation snapshot; nothing here
// touches persistence.
package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Data is the donation snapshot a receipt is rendered from.
type Data struct {
	DonationID          string
	DonorEmail          string
	DonorName           string
	CampaignTitle       string
	CampaignDescription string
	Amount              decimal.Decimal
	CreatedAt           time.Time
	Locale              string
}

// Number builds the receipt number from the donation id and issue time.
func Number(donationID string, issuedAt time.Time) string {
	return fmt.Sprintf("REC-%s-%s", donationID, issuedAt.Format("20060102150405"))
}

// Render produces the PDF receipt.
func Render(d Data, issuedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(36, 36, 36)
	pdf.AddPage()

	pdf.SetTextColor(0, 0, 139)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 26, "Donation Receipt", "", 1, "C", false, 0, "")

	pdf.SetDrawColor(0, 0, 139)
	pdf.Line(36, pdf.GetY()+6, 576, pdf.GetY()+6)
	pdf.Ln(20)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 18, "Receipt Number: "+Number(d.DonationID, issuedAt), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 18, "Date: "+d.CreatedAt.Format("January 2, 2006 at 3:04 PM"), "", 1, "L", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 18, "Donor Information:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 16, "Email: "+d.DonorEmail, "", 1, "L", false, 0, "")
	if d.DonorName != "" {
		pdf.CellFormat(0, 16, "Name: "+d.DonorName, "", 1, "L", false, 0, "")
	}
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 18, "Campaign Information:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 16, "Campaign: "+d.CampaignTitle, "", 1, "L", false, 0, "")
	if excerpt := wrap(d.CampaignDescription, 65, 3); len(excerpt) > 0 {
		pdf.SetFont("Helvetica", "", 9)
		for _, line := range excerpt {
			pdf.CellFormat(0, 13, line, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 18, "Donation Details:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 16, "Amount: "+FormatAmount(d.Amount, d.Locale), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 16, "Date: "+d.CreatedAt.Format("2006-01-02"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 16, "Time: "+d.CreatedAt.Format("3:04 PM"), "", 1, "L", false, 0, "")
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 16, "Thank you for your generous donation! Your contribution helps us make a difference.", "", 1, "C", false, 0, "")

	pdf.SetY(-54)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 12, "This receipt is automatically generated and may be used for tax purposes.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatAmount renders a monetary amount with the currency symbol for the
// given BCP 47 locale, falling back to English.
func FormatAmount(amount decimal.Decimal, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	printer := message.NewPrinter(tag)
	value, _ := amount.Round(2).Float64()
	return printer.Sprint(currency.Symbol(currency.USD.Amount(value)))
}

// wrap breaks text into at most maxLines lines of width runes, appending an
// ellipsis line when the text is longer.
func wrap(text string, width, maxLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	lines = append(lines, current)
	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "...")
	}
	return lines
}
