package views

import (
	"embed"
	"html/template"
	"strconv"

	"github.com/zombor/billed/internal/bill"
)

// newBillIntentPath is where the list's "new bill" affordance points
const newBillIntentPath = "/bills/actions/new-bill"

// NewBillIntentPath returns the path that dispatches CreateNewBill
func NewBillIntentPath() string {
	return newBillIntentPath
}

//go:embed templates/*.html
var templateFS embed.FS

var statusLabels = map[bill.Status]string{
	bill.StatusPending:  "En attente",
	bill.StatusAccepted: "Accepté",
	bill.StatusRefused:  "Refusé",
}

var templates = template.Must(template.New("views").Funcs(template.FuncMap{
	"amount": func(n float64) string {
		return strconv.FormatFloat(n, 'f', -1, 64) + " €"
	},
	"status": func(s bill.Status) string {
		if label, ok := statusLabels[s]; ok {
			return label
		}
		return string(s)
	},
}).ParseFS(templateFS, "templates/*.html"))
