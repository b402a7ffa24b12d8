package views

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zombor/billed/internal/bill"
)

// Field names a control of the new-bill form
type Field string

const (
	FieldType       Field = "expense-type"
	FieldName       Field = "expense-name"
	FieldDate       Field = "datepicker"
	FieldAmount     Field = "amount"
	FieldVAT        Field = "vat"
	FieldPct        Field = "pct"
	FieldCommentary Field = "commentary"
	FieldFile       Field = "file"
)

// Constraint is the reason a field failed validation
type Constraint string

const (
	ValueMissing   Constraint = "valueMissing"
	BadInput       Constraint = "badInput"
	TypeMismatch   Constraint = "typeMismatch"
	RangeUnderflow Constraint = "rangeUnderflow"
	RangeOverflow  Constraint = "rangeOverflow"
	StepMismatch   Constraint = "stepMismatch"
)

var constraintMessages = map[Constraint]string{
	ValueMissing:   "Veuillez renseigner ce champ.",
	BadInput:       "Veuillez saisir un nombre.",
	TypeMismatch:   "Veuillez sélectionner un élément dans la liste.",
	RangeUnderflow: "La valeur est trop petite.",
	RangeOverflow:  "La valeur est trop grande.",
	StepMismatch:   "Veuillez saisir un nombre entier.",
}

// fieldMessages override constraintMessages for one field
var fieldMessages = map[Field]map[Constraint]string{
	FieldDate: {
		BadInput: "Veuillez saisir une date valide.",
	},
}

// FormValues are the raw string values of the new-bill form
type FormValues struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Date       string `json:"date"`
	Amount     string `json:"amount"`
	VAT        string `json:"vat"`
	Pct        string `json:"pct"`
	Commentary string `json:"commentary"`
}

// Validity maps each invalid field to the constraint it broke.
// Fields that are absent are valid.
type Validity map[Field]Constraint

// Valid reports whether every field passed
func (v Validity) Valid() bool {
	return len(v) == 0
}

// FieldValid reports whether a single field passed
func (v Validity) FieldValid(f Field) bool {
	_, invalid := v[f]
	return !invalid
}

// Message returns the user-facing message for a field, or "" when it is valid
func (v Validity) Message(f Field) string {
	c, invalid := v[f]
	if !invalid {
		return ""
	}
	if msg, ok := fieldMessages[f][c]; ok {
		return msg
	}
	return constraintMessages[c]
}

// Fields returns the invalid fields in a stable order
func (v Validity) Fields() []Field {
	fields := make([]Field, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Validate applies the form's field constraints
func Validate(values FormValues) Validity {
	v := Validity{}

	switch t := strings.TrimSpace(values.Type); {
	case t == "":
		v[FieldType] = ValueMissing
	case !bill.IsExpenseType(t):
		v[FieldType] = TypeMismatch
	}

	if strings.TrimSpace(values.Name) == "" {
		v[FieldName] = ValueMissing
	}

	if d := strings.TrimSpace(values.Date); d == "" {
		v[FieldDate] = ValueMissing
	} else if _, err := time.Parse(bill.DateLayout, d); err != nil {
		v[FieldDate] = BadInput
	}

	if c, bad := checkNumber(values.Amount, true, 0, -1); bad {
		v[FieldAmount] = c
	}
	if c, bad := checkNumber(values.VAT, false, 0, -1); bad {
		v[FieldVAT] = c
	}
	if c, bad := checkInteger(values.Pct, 0, 100); bad {
		v[FieldPct] = c
	}

	if strings.TrimSpace(values.Commentary) == "" {
		v[FieldCommentary] = ValueMissing
	}

	return v
}

// checkNumber validates a decimal field. A negative max means unbounded.
func checkNumber(raw string, required bool, min, max float64) (Constraint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return ValueMissing, true
		}
		return "", false
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return BadInput, true
	}
	if n < min {
		return RangeUnderflow, true
	}
	if max >= 0 && n > max {
		return RangeOverflow, true
	}
	return "", false
}

// checkInteger validates a required whole-number field within [min, max]
func checkInteger(raw string, min, max int) (Constraint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ValueMissing, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		if _, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
			return StepMismatch, true
		}
		return BadInput, true
	}
	if n < min {
		return RangeUnderflow, true
	}
	if n > max {
		return RangeOverflow, true
	}
	return "", false
}

// payload converts already validated values into a store payload
func (values FormValues) payload() bill.Payload {
	amount, _ := strconv.ParseFloat(strings.TrimSpace(values.Amount), 64)
	pct, _ := strconv.Atoi(strings.TrimSpace(values.Pct))

	var vat *float64
	if raw := strings.TrimSpace(values.VAT); raw != "" {
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			vat = &n
		}
	}

	return bill.Payload{
		Type:       strings.TrimSpace(values.Type),
		Name:       strings.TrimSpace(values.Name),
		Amount:     amount,
		Date:       strings.TrimSpace(values.Date),
		VAT:        vat,
		Pct:        pct,
		Commentary: strings.TrimSpace(values.Commentary),
	}
}
