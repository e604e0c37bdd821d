package email

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/shopspring/decimal"
)

// ReceiptData fills the payment receipt.
type ReceiptData struct {
	FirstName     string
	InvoiceNumber string
	AmountPaid    float64
	ReceiptURL    string
}

// BookingData fills the booking confirmation.
type BookingData struct {
	FirstName   string
	BookingID   string
	BookingLink string
}

var templates = template.Must(template.New("email").Funcs(template.FuncMap{
	"money": formatCurrencyAUD,
}).Parse(`{{define "greeting"}}Hi{{if .FirstName}} {{.FirstName}}{{end}},
{{end}}

{{define "receipt"}}{{template "greeting" .}}
We have received your payment of {{money .AmountPaid}} for invoice {{.InvoiceNumber}}.
{{if .ReceiptURL}}
Your card receipt: {{.ReceiptURL}}
{{end}}
Thank you.
{{end}}

{{define "booking"}}{{template "greeting" .}}
Your inspection booking {{.BookingID}} has been created.
{{if .BookingLink}}
Choose your inspection time here: {{.BookingLink}}
{{end}}
Thank you.
{{end}}`))

func renderEmailTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatCurrencyAUD(amount float64) string {
	return "$" + decimal.NewFromFloat(amount).StringFixed(2)
}
