// Package invoice renders booking invoices as A4 PDF documents.
package invoice

import (
	"bytes"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-pdf/fpdf"
	"github.com/robertarktes/eventhub/internal/domain"
)

type Data struct {
	Booking     domain.Booking
	Event       domain.Event
	Ticket      domain.Ticket
	User        domain.User
	Payment     *domain.Payment
	GeneratedAt time.Time
}

const (
	margin     = 50.0
	bandHeight = 80.0
	totalsW    = 220.0
)

var (
	headerFill = [3]int{17, 24, 39}
	muted      = [3]int{107, 114, 128}
	ink        = [3]int{17, 24, 39}
	rule       = [3]int{229, 231, 235}
)

// Renderer lays out invoices. Output depends only on the Data passed in, so
// rendering the same booking twice yields identical bytes.
type Renderer struct {
	brand    string
	currency string
	loc      *time.Location
	compress bool
}

func NewRenderer(brand, currency string, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{brand: brand, currency: currency, loc: loc, compress: true}
}

// WithoutCompression leaves content streams readable; useful when inspecting output.
func (r *Renderer) WithoutCompression() *Renderer {
	c := *r
	c.compress = false
	return &c
}

func (r *Renderer) Render(d Data) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetCreationDate(d.GeneratedAt)
	pdf.SetModificationDate(d.GeneratedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle("Invoice "+d.Booking.ID.String(), false)
	pdf.SetAuthor(r.brand, false)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*margin

	// Header band.
	pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
	pdf.Rect(0, 0, pageW, bandHeight, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetXY(margin, 28)
	pdf.CellFormat(contentW/2, 24, tr(r.brand), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 16)
	pdf.CellFormat(contentW/2, 24, "INVOICE", "", 0, "R", false, 0, "")

	// Billed to and invoice metadata side by side.
	y := bandHeight + 30
	half := contentW / 2
	r.label(pdf, margin, y, "Billed To")
	r.label(pdf, margin+half, y, "Invoice")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(ink[0], ink[1], ink[2])
	pdf.SetXY(margin, y+16)
	pdf.CellFormat(half, 15, tr(d.User.Name), "", 2, "L", false, 0, "")
	pdf.CellFormat(half, 15, tr(d.User.Email), "", 0, "L", false, 0, "")
	pdf.SetXY(margin+half, y+16)
	pdf.CellFormat(half, 15, "Invoice #: "+d.Booking.ID.String(), "", 2, "L", false, 0, "")
	pdf.CellFormat(half, 15, "Date: "+r.dateTime(d.GeneratedAt), "", 0, "L", false, 0, "")

	// Event block.
	y += 70
	r.label(pdf, margin, y, "Event")
	pdf.SetXY(margin, y+16)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(ink[0], ink[1], ink[2])
	pdf.MultiCell(contentW, 16, tr(d.Event.Title), "", "L", false)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetX(margin)
	pdf.MultiCell(contentW, 15, tr(place(d.Event)), "", "L", false)
	pdf.SetX(margin)
	pdf.CellFormat(contentW, 15, "Start: "+r.dateTime(domain.StartInstant(d.Event, r.loc)), "", 2, "L", false, 0, "")
	pdf.CellFormat(contentW, 15, "End: "+r.dateTime(domain.EndInstant(d.Event, r.loc)), "", 2, "L", false, 0, "")

	// Line item table.
	y = pdf.GetY() + 20
	cols := []float64{contentW * .46, contentW * .14, contentW * .18, contentW * .22}
	pdf.SetFillColor(rule[0], rule[1], rule[2])
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(margin, y)
	for i, h := range []string{"Description", "Qty", "Unit Price", "Amount"} {
		pdf.CellFormat(cols[i], 22, h, "", 0, align(i), true, 0, "")
	}
	pdf.Ln(22)
	pdf.SetFont("Helvetica", "", 11)
	row := []string{
		tr("Ticket - " + string(d.Ticket.TicketType)),
		strconv.Itoa(d.Booking.Quantity),
		domain.FormatAmount(r.currency, d.Ticket.Price),
		domain.FormatAmount(r.currency, d.Booking.TotalAmount),
	}
	for i, v := range row {
		pdf.CellFormat(cols[i], 22, v, "B", 0, align(i), false, 0, "")
	}
	pdf.Ln(22)

	// Payment block, only with a recorded payment.
	y = pdf.GetY() + 24
	r.label(pdf, margin, y, "Payment")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(ink[0], ink[1], ink[2])
	pdf.SetXY(margin, y+16)
	lineW := contentW - totalsW - 20
	pdf.CellFormat(lineW, 15, "Status: "+string(d.Booking.PaymentStatus), "", 2, "L", false, 0, "")
	if d.Payment != nil {
		pdf.CellFormat(lineW, 15, "Method: "+string(d.Payment.PaymentMethod), "", 2, "L", false, 0, "")
		pdf.CellFormat(lineW, 15, "Transaction: "+d.Payment.TransactionID, "", 2, "L", false, 0, "")
		pdf.CellFormat(lineW, 15, "Paid on: "+r.dateTime(d.Payment.PaymentDate), "", 2, "L", false, 0, "")
	}

	// Totals box.
	boxX := margin + contentW - totalsW
	pdf.SetDrawColor(rule[0], rule[1], rule[2])
	pdf.Rect(boxX, y, totalsW, 60, "D")
	pdf.SetXY(boxX+10, y+8)
	pdf.CellFormat(totalsW/2-10, 20, "Subtotal", "", 0, "L", false, 0, "")
	pdf.CellFormat(totalsW/2-10, 20, domain.FormatAmount(r.currency, d.Booking.TotalAmount), "", 2, "R", false, 0, "")
	pdf.SetXY(boxX+10, y+30)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(totalsW/2-10, 20, "Total", "", 0, "L", false, 0, "")
	pdf.CellFormat(totalsW/2-10, 20, domain.FormatAmount(r.currency, d.Booking.TotalAmount), "", 0, "R", false, 0, "")

	// Footer.
	_, pageH := pdf.GetPageSize()
	pdf.SetFont("Helvetica", "I", 10)
	pdf.SetTextColor(muted[0], muted[1], muted[2])
	pdf.SetXY(margin, pageH-margin-20)
	pdf.CellFormat(contentW, 14, "Thank you for your purchase!", "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render invoice pdf")
	}
	return buf.Bytes(), nil
}

func (r *Renderer) label(pdf *fpdf.Fpdf, x, y float64, text string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(muted[0], muted[1], muted[2])
	pdf.Text(x, y+10, text)
}

func (r *Renderer) dateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(r.loc).Format("02 Jan 2006, 15:04")
}

func place(e domain.Event) string {
	if e.City == "" {
		return e.Venue
	}
	return e.Venue + ", " + e.City
}

func align(col int) string {
	if col == 0 {
		return "L"
	}
	return "R"
}
