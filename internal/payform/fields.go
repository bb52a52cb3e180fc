package payform

import (
	"fmt"
	"strings"
)

// FieldName identifies a payment widget field.
type FieldName string

const (
	CardNumber FieldName = "card_number"
	Expiry     FieldName = "expiry"
	CVC        FieldName = "cvc"
	PostalCode FieldName = "postal_code"
)

// fillOrder is the order fields are always filled in. Widgets advance
// their internal state field by field, so it is not configurable.
var fillOrder = []FieldName{CardNumber, Expiry, CVC, PostalCode}

// requiredFields must all be present in a unified frame.
var requiredFields = []FieldName{CardNumber, Expiry, CVC}

// ContractVersion identifies the built-in selector contract. Bump it when
// DefaultFields changes to follow widget markup.
const ContractVersion = "2025.06"

// FieldSpec declares how to find a field and what counts as a successful
// entry.
type FieldSpec struct {
	Name FieldName `yaml:"name"`
	// Selectors are tried in order: stable data attribute first, then
	// autocomplete/name attributes, then class names.
	Selectors []string `yaml:"selectors"`
	// SplitFrameTitle is a case-insensitive substring of the title of the
	// dedicated iframe in the split layout.
	SplitFrameTitle string `yaml:"split_frame_title"`
	// MinAcceptedDelta is the minimum growth of the value length for an
	// entry to be accepted.
	MinAcceptedDelta int `yaml:"min_accepted_delta"`
}

// Validate checks that the field is known and its selectors usable.
func (s FieldSpec) Validate() error {
	switch s.Name {
	case CardNumber, Expiry, CVC, PostalCode:
	default:
		return fmt.Errorf("payform: unknown field %q", s.Name)
	}
	if len(s.Selectors) == 0 {
		return fmt.Errorf("payform: field %s: no selectors", s.Name)
	}
	for i, sel := range s.Selectors {
		if strings.TrimSpace(sel) == "" {
			return fmt.Errorf("payform: field %s: selector %d is blank", s.Name, i)
		}
	}
	if s.MinAcceptedDelta < 1 {
		return fmt.Errorf("payform: field %s: min_accepted_delta must be at least 1", s.Name)
	}
	return nil
}

// DefaultFields returns the built-in selector contract for the widget.
func DefaultFields() []FieldSpec {
	return []FieldSpec{
		{
			Name: CardNumber,
			Selectors: []string{
				`input[data-elements-stable-field-name="cardNumber"]`,
				`input[autocomplete="cc-number"]`,
				`input[name="cardnumber"]`,
				`input[name="number"]`,
				`input.CardNumberField-input`,
			},
			SplitFrameTitle:  "card number",
			MinAcceptedDelta: 12,
		},
		{
			Name: Expiry,
			Selectors: []string{
				`input[data-elements-stable-field-name="cardExpiry"]`,
				`input[autocomplete="cc-exp"]`,
				`input[name="exp-date"]`,
				`input[name="expiry"]`,
				`input.CardExpiryField-input`,
			},
			SplitFrameTitle:  "expiration date",
			MinAcceptedDelta: 4,
		},
		{
			Name: CVC,
			Selectors: []string{
				`input[data-elements-stable-field-name="cardCvc"]`,
				`input[autocomplete="cc-csc"]`,
				`input[name="cvc"]`,
				`input.CardCvcField-input`,
			},
			SplitFrameTitle:  "cvc",
			MinAcceptedDelta: 3,
		},
		{
			Name: PostalCode,
			Selectors: []string{
				`input[data-elements-stable-field-name="postalCode"]`,
				`input[autocomplete="postal-code"]`,
				`input[name="postal"]`,
				`input[name="postalCode"]`,
				`input.PostalCodeField-input`,
			},
			SplitFrameTitle:  "postal code",
			MinAcceptedDelta: 3,
		},
	}
}

// Values is the set of values to enter. A blank PostalCode means the field
// is not filled and not searched for.
type Values struct {
	CardNumber string
	Expiry     string
	CVC        string
	PostalCode string
}

func (v Values) get(name FieldName) string {
	switch name {
	case CardNumber:
		return v.CardNumber
	case Expiry:
		return v.Expiry
	case CVC:
		return v.CVC
	case PostalCode:
		return v.PostalCode
	}
	return ""
}

// Validate checks that every required value is present.
func (v Values) Validate() error {
	for _, name := range requiredFields {
		if strings.TrimSpace(v.get(name)) == "" {
			return fmt.Errorf("%w: %s is blank", ErrInvalidValues, name)
		}
	}
	return nil
}

func (v Values) hasPostal() bool {
	return strings.TrimSpace(v.PostalCode) != ""
}
