package views

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/zombor/billed/internal/bill"
)

// Row is one line of the bill list
type Row struct {
	Bill  *bill.Bill
	date  time.Time
	dated bool
}

// BillList renders the employee's bills and dispatches the list's intents
type BillList struct {
	navigate      Navigate
	onViewReceipt func(*bill.Bill)
}

// NewBillList creates a BillList. onViewReceipt is called once per ViewReceipt intent.
func NewBillList(navigate Navigate, onViewReceipt func(*bill.Bill)) *BillList {
	return &BillList{
		navigate:      navigate,
		onViewReceipt: onViewReceipt,
	}
}

// Rows orders bills most recent first. Equal dates keep the store order and
// bills whose date does not parse go last. The input slice is not modified.
func (l *BillList) Rows(bills []*bill.Bill) []Row {
	rows := make([]Row, 0, len(bills))
	for _, b := range bills {
		if b == nil {
			continue
		}
		d, err := b.ParsedDate()
		rows = append(rows, Row{Bill: b, date: d, dated: err == nil})
	}

	slices.SortStableFunc(rows, func(a, b Row) int {
		switch {
		case a.dated && b.dated:
			return b.date.Compare(a.date)
		case a.dated:
			return -1
		case b.dated:
			return 1
		default:
			return 0
		}
	})
	return rows
}

// Render writes the bill list page
func (l *BillList) Render(w io.Writer, bills []*bill.Bill) error {
	data := struct {
		Rows       []Row
		NewBillURL string
	}{
		Rows:       l.Rows(bills),
		NewBillURL: newBillIntentPath,
	}
	if err := templates.ExecuteTemplate(w, "bills.html", data); err != nil {
		return fmt.Errorf("rendering bills: %w", err)
	}
	return nil
}

// ViewReceipt shows the receipt of b
func (l *BillList) ViewReceipt(b *bill.Bill) {
	if l.onViewReceipt != nil {
		l.onViewReceipt(b)
	}
}

// CreateNewBill navigates to the new-bill form
func (l *BillList) CreateNewBill() {
	if l.navigate != nil {
		l.navigate(RouteNewBill)
	}
}

// Dispatch routes an intent to the matching handler
func (l *BillList) Dispatch(intent Intent) error {
	switch i := intent.(type) {
	case ViewReceipt:
		l.ViewReceipt(i.Bill)
	case CreateNewBill:
		l.CreateNewBill()
	default:
		return unknownIntent("bill list", intent)
	}
	return nil
}
