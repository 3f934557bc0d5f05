package models

import (
	"fmt"
	"strings"
)

// Field names an identity attribute shared by extraction results and the
// reference record.
type Field string

const (
	FieldIDNumber    Field = "idNumber"
	FieldDateOfBirth Field = "dateOfBirth"
	FieldFullName    Field = "fullName"
	FieldGender      Field = "gender"
	FieldAddress     Field = "address"
)

// Gender as printed on the card. The zero value means unknown.
type Gender string

const (
	GenderUnknown Gender = ""
	GenderMale    Gender = "Male"
	GenderFemale  Gender = "Female"
)

// ExtractionResult holds the fields found on one document image.
// An empty string means the field was not found.
type ExtractionResult struct {
	IDNumber    string `json:"id_number,omitempty" yaml:"id_number,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty" yaml:"date_of_birth,omitempty"` // DD/MM/YYYY
	FullName    string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	Gender      Gender `json:"gender,omitempty" yaml:"gender,omitempty"`
	Address     string `json:"address,omitempty" yaml:"address,omitempty"`
}

// Get returns the extracted value for f and whether it was found.
func (r ExtractionResult) Get(f Field) (string, bool) {
	var v string
	switch f {
	case FieldIDNumber:
		v = r.IDNumber
	case FieldDateOfBirth:
		v = r.DateOfBirth
	case FieldFullName:
		v = r.FullName
	case FieldGender:
		v = string(r.Gender)
	case FieldAddress:
		v = r.Address
	}
	return v, v != ""
}

// Found lists the fields present in the result.
func (r ExtractionResult) Found() []Field {
	var out []Field
	for _, f := range []Field{FieldIDNumber, FieldDateOfBirth, FieldFullName, FieldGender, FieldAddress} {
		if _, ok := r.Get(f); ok {
			out = append(out, f)
		}
	}
	return out
}

// ReferenceRecord is the identity form data entered by the user.
type ReferenceRecord struct {
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Nationality string `json:"nationality"`
	IDType      string `json:"id_type"`
	IDNumber    string `json:"id_number"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

// Get returns the reference value for f. ok is false for fields the form
// does not collect.
func (r *ReferenceRecord) Get(f Field) (string, bool) {
	switch f {
	case FieldIDNumber:
		return r.IDNumber, true
	case FieldDateOfBirth:
		return r.DateOfBirth, true
	case FieldFullName:
		return r.FullName, true
	case FieldAddress:
		return r.Address, true
	}
	return "", false
}

// Set writes value into the record field f.
func (r *ReferenceRecord) Set(f Field, value string) error {
	value = strings.TrimSpace(value)
	switch f {
	case FieldIDNumber:
		r.IDNumber = value
	case FieldDateOfBirth:
		r.DateOfBirth = value
	case FieldFullName:
		r.FullName = value
	case FieldAddress:
		r.Address = value
	default:
		return fmt.Errorf("field %q is not part of the reference record", f)
	}
	return nil
}

// Discrepancy is a mismatch between an extracted value and the value the
// user entered.
type Discrepancy struct {
	Field          Field   `json:"field" yaml:"field"`
	ExtractedValue string  `json:"extracted_value" yaml:"extracted_value"`
	ReferenceValue string  `json:"reference_value" yaml:"reference_value"`
	Similarity     float64 `json:"similarity" yaml:"similarity"`
}
