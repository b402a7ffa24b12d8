package views

import (
	"errors"
	"fmt"

	"github.com/zombor/billed/internal/bill"
)

// ErrUnknownIntent is returned when a component is handed an intent it does not handle
var ErrUnknownIntent = errors.New("unknown intent")

// Intent is a user action dispatched to a component
type Intent interface {
	intentName() string
}

// ViewReceipt asks to show the receipt of one bill
type ViewReceipt struct {
	Bill *bill.Bill
}

// CreateNewBill asks to open the new-bill form
type CreateNewBill struct{}

// FileSelected reports a change of the receipt file input
type FileSelected struct {
	Input *FileInput
}

// Submit reports a submission of the new-bill form
type Submit struct {
	Values FormValues
}

func (ViewReceipt) intentName() string   { return "view-receipt" }
func (CreateNewBill) intentName() string { return "create-new-bill" }
func (FileSelected) intentName() string  { return "file-selected" }
func (Submit) intentName() string        { return "submit" }

func unknownIntent(component string, intent Intent) error {
	name := "<nil>"
	if intent != nil {
		name = intent.intentName()
	}
	return fmt.Errorf("%w: %s cannot handle %s", ErrUnknownIntent, component, name)
}
