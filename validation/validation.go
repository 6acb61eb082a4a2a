// Package validation holds the business rules a record must pass before the
// store accepts it.
package validation

import (
	"math"
	"strings"
	"time"

	c "Userdb/common"
)

// Validator checks candidate records. Now supplies "today" for the birth
// date rule; a nil Now means the wall clock.
type Validator struct {
	Now func() time.Time
}

var std = &Validator{}

func (v *Validator) today() c.Date {
	if v == nil || v.Now == nil {
		return c.DateOf(time.Now())
	}
	return c.DateOf(v.Now())
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidateNew checks every field of a record about to be created. Rules run
// in a fixed order and the first violation is returned.
func (v *Validator) ValidateNew(u *c.Record) error {
	if u == nil {
		return c.NewValidationError("User object is null.")
	}
	if blank(u.FirstName) {
		return c.NewValidationError("First name required.")
	}
	if blank(u.LastName) {
		return c.NewValidationError("Last name required.")
	}
	if u.BirthDate.IsZero() || u.BirthDate.After(v.today()) {
		return c.NewValidationError("Invalid birth date.")
	}
	if err := v.ValidateSalary(u.Salary); err != nil {
		return err
	}
	if !u.Gender.Valid() {
		return c.NewValidationError("Gender required.")
	}
	if blank(u.Department) {
		return c.NewValidationError("Department required.")
	}
	if blank(u.Position) {
		return c.NewValidationError("Position required.")
	}
	return nil
}

// ValidateSalary rejects negative values, NaN and infinity.
func (v *Validator) ValidateSalary(salary float64) error {
	if !(salary >= 0) || math.IsInf(salary, 0) {
		return c.NewValidationError("Salary must be non-negative.")
	}
	return nil
}

func (v *Validator) ValidateDepartmentPosition(department, position string) error {
	if blank(department) {
		return c.NewValidationError("Department cannot be empty.")
	}
	if blank(position) {
		return c.NewValidationError("Position cannot be empty.")
	}
	return nil
}

// ValidateNew runs Validator.ValidateNew against the wall clock.
func ValidateNew(u *c.Record) error {
	return std.ValidateNew(u)
}

func ValidateSalary(salary float64) error {
	return std.ValidateSalary(salary)
}

func ValidateDepartmentPosition(department, position string) error {
	return std.ValidateDepartmentPosition(department, position)
}
