package common

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Gender is one of a fixed set of values shared by client and server.
type Gender string

const (
	Male   Gender = "MALE"
	Female Gender = "FEMALE"
)

func (g Gender) Valid() bool {
	return g == Male || g == Female
}

// ParseGender accepts MALE or FEMALE in any letter case.
func ParseGender(s string) (Gender, error) {
	g := Gender(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("unknown gender %q", s)
	}
	return g, nil
}

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses an ISO date (yyyy-MM-dd).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) After(o Date) bool {
	if d.Year != o.Year {
		return d.Year > o.Year
	}
	if d.Month != o.Month {
		return d.Month > o.Month
	}
	return d.Day > o.Day
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Record is a single user entity. All fields are values, so assigning a
// Record copies it completely.
type Record struct {
	ID         int64   `json:"id"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	BirthDate  Date    `json:"birth_date"`
	Salary     float64 `json:"salary"`
	Gender     Gender  `json:"gender"`
	Department string  `json:"department"`
	Position   string  `json:"position"`
}

func (r Record) String() string {
	return fmt.Sprintf("User {id=%d, firstName='%s', lastName='%s', birthDate=%s, salary=%v, gender=%s, department='%s', position='%s'}",
		r.ID, r.FirstName, r.LastName, r.BirthDate, r.Salary, r.Gender, r.Department, r.Position)
}
