package models

import "encoding/json"

// PropertyType is the Notion tag carried in every property's "type" field.
type PropertyType string

const (
	PropertyNumber  PropertyType = "number"
	PropertySelect  PropertyType = "select"
	PropertyFormula PropertyType = "formula"
)

// PropertyValue is a decoded Notion property. The concrete type is one of
// NumberValue, SelectValue, FormulaValue or OtherValue.
type PropertyValue interface {
	Kind() PropertyType
}

// NumberValue is a plain number property. Number is nil when the cell is empty.
type NumberValue struct {
	Number *float64
}

// SelectOption is the chosen option of a single-select property.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// SelectValue is a single-select property. Option is nil when nothing is chosen.
type SelectValue struct {
	Option *SelectOption
}

// FormulaValue is a computed property. Number is only meaningful when
// ResultType is "number".
type FormulaValue struct {
	ResultType string
	Number     *float64
}

// OtherValue covers every tag this service does not interpret, plus
// payloads whose shape did not match their tag.
type OtherValue struct {
	Type string
}

func (NumberValue) Kind() PropertyType  { return PropertyNumber }
func (SelectValue) Kind() PropertyType  { return PropertySelect }
func (FormulaValue) Kind() PropertyType { return PropertyFormula }
func (o OtherValue) Kind() PropertyType { return PropertyType(o.Type) }

// Record is one page (row) of a Notion database.
type Record struct {
	ID         string
	Properties map[string]PropertyValue
}

// UnmarshalJSON decodes a Notion page object. Individual properties never
// fail the decode: an unexpected shape becomes OtherValue.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         string                     `json:"id"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.ID = raw.ID
	r.Properties = make(map[string]PropertyValue, len(raw.Properties))
	for name, p := range raw.Properties {
		r.Properties[name] = DecodeProperty(p)
	}
	return nil
}

// DecodeProperty maps a raw property object onto its variant.
func DecodeProperty(data []byte) PropertyValue {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return OtherValue{}
	}

	switch PropertyType(head.Type) {
	case PropertyNumber:
		var p struct {
			Number *float64 `json:"number"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return OtherValue{Type: head.Type}
		}
		return NumberValue{Number: p.Number}

	case PropertySelect:
		var p struct {
			Select *SelectOption `json:"select"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return OtherValue{Type: head.Type}
		}
		return SelectValue{Option: p.Select}

	case PropertyFormula:
		var p struct {
			Formula *struct {
				Type   string   `json:"type"`
				Number *float64 `json:"number"`
			} `json:"formula"`
		}
		if err := json.Unmarshal(data, &p); err != nil || p.Formula == nil {
			return OtherValue{Type: head.Type}
		}
		return FormulaValue{ResultType: p.Formula.Type, Number: p.Formula.Number}

	default:
		return OtherValue{Type: head.Type}
	}
}

// NumberOf returns the numeric value of the named property, or 0 when the
// property is missing, empty, or not numeric.
func NumberOf(r Record, name string) float64 {
	switch v := r.Properties[name].(type) {
	case NumberValue:
		if v.Number != nil {
			return *v.Number
		}
	case FormulaValue:
		if v.ResultType == string(PropertyNumber) && v.Number != nil {
			return *v.Number
		}
	}
	return 0
}

// CategoryOf returns the selected option name of the named single-select
// property, or fallback when it cannot be determined.
func CategoryOf(r Record, name, fallback string) string {
	v, ok := r.Properties[name].(SelectValue)
	if !ok || v.Option == nil || v.Option.Name == "" {
		return fallback
	}
	return v.Option.Name
}
