package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	c "Userdb/common"
)

// Letters (Polish included), spaces and hyphens, at least two of them.
var nameRegex = regexp.MustCompile(`^[A-Za-ząćęłńóśżźĄĆĘŁŃÓŚŻŹ -]{2,}$`)

// errInputClosed is returned once the input stream has ended.
var errInputClosed = errors.New("input closed")

// prompter reads typed values from a line-oriented input, asking again until
// the value is acceptable.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) line() (string, error) {
	s, err := p.in.ReadString('\n')
	if err != nil && (s == "" || !errors.Is(err, io.EOF)) {
		return "", errInputClosed
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) name(label string) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s: ", label)
		v, err := p.line()
		if err != nil {
			return "", err
		}
		if nameRegex.MatchString(v) {
			return v, nil
		}
		fmt.Fprintln(p.out, "Invalid value -> use letters only (min 2 chars).")
	}
}

func (p *prompter) text(label string) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s: ", label)
		v, err := p.line()
		if err != nil {
			return "", err
		}
		if len([]rune(v)) >= 2 {
			return v, nil
		}
		fmt.Fprintln(p.out, "Value required -> minimum 2 characters.")
	}
}

func (p *prompter) id(label string) (int64, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	for {
		v, err := p.line()
		if err != nil {
			return 0, err
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, nil
		}
		fmt.Fprint(p.out, "Invalid number. Try again: ")
	}
}

func (p *prompter) amount(label string) (float64, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	for {
		v, err := p.line()
		if err != nil {
			return 0, err
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
		fmt.Fprint(p.out, "Invalid number. Try again: ")
	}
}

func (p *prompter) date(label string) (c.Date, error) {
	fmt.Fprintf(p.out, "%s (yyyy-MM-dd): ", label)
	for {
		v, err := p.line()
		if err != nil {
			return c.Date{}, err
		}
		if d, err := c.ParseDate(v); err == nil {
			return d, nil
		}
		fmt.Fprint(p.out, "Invalid date (yyyy-MM-dd). Try again: ")
	}
}

func (p *prompter) gender(label string) (c.Gender, error) {
	fmt.Fprintf(p.out, "%s (MALE/FEMALE): ", label)
	for {
		v, err := p.line()
		if err != nil {
			return "", err
		}
		if g, err := c.ParseGender(v); err == nil {
			return g, nil
		}
		fmt.Fprint(p.out, "Use MALE/FEMALE: ")
	}
}
