// Package nic decodes Sri Lankan national identity card numbers into the
// holder's birth date and sex.
//
// Two shapes are accepted. The legacy form has 9 digits and a series letter
// (V or X, either case): YY DDD NNNN L. The modern form has 12 digits:
// YYYY DDD NNNNN. DDD is the day of the year, with 500 added for women.
package nic

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-sql/civil"
)

var (
	ErrInvalidFormat     = errors.New("nic: invalid format")
	ErrInvalidDayOrdinal = errors.New("nic: day code does not name a calendar day")
)

type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

type Format string

const (
	Legacy Format = "legacy"
	Modern Format = "modern"
)

const femaleOffset = 500

// February is always 29 days: the ordinal reserves day 60 for Feb 29 in
// every year, so March 1 is always 61.
var monthLengths = [12]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// Result is what a well-formed number implies about its holder.
type Result struct {
	Sex       Sex        `json:"sex"`
	BirthDate civil.Date `json:"birth_date"`
	Format    Format     `json:"format"`
	DayCode   int        `json:"day_code"`
}

// Age returns the holder's age in whole years on the given day.
func (r Result) Age(on civil.Date) int {
	age := on.Year - r.BirthDate.Year
	if on.Month < r.BirthDate.Month || (on.Month == r.BirthDate.Month && on.Day < r.BirthDate.Day) {
		age--
	}
	return age
}

// FormatError reports why an input was not a NIC number. The input itself is
// not echoed since it is personal data.
type FormatError struct {
	Length int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidFormat, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrInvalidFormat }

// Decode parses raw and derives the birth date and sex. It never returns a
// partially filled Result alongside an error.
func Decode(raw string) (Result, error) {
	var (
		year   int
		code   int
		format Format
	)
	switch len(raw) {
	case 10:
		if !allDigits(raw[:9]) {
			return Result{}, &FormatError{Length: 10, Reason: "legacy number must start with 9 digits"}
		}
		if !isSeriesLetter(raw[9]) {
			return Result{}, &FormatError{Length: 10, Reason: "legacy number must end in V or X"}
		}
		year = 1900 + atoi(raw[0:2])
		code = atoi(raw[2:5])
		format = Legacy
	case 12:
		if !allDigits(raw) {
			return Result{}, &FormatError{Length: 12, Reason: "modern number must be 12 digits"}
		}
		year = atoi(raw[0:4])
		code = atoi(raw[4:7])
		format = Modern
	default:
		return Result{}, &FormatError{Length: len(raw), Reason: "length must be 10 or 12 characters"}
	}

	sex, ordinal := Male, code
	if code >= femaleOffset {
		sex, ordinal = Female, code-femaleOffset
	}

	month, day, err := monthDay(ordinal)
	if err != nil {
		return Result{}, err
	}
	date := civil.Date{Year: year, Month: month, Day: day}
	if !date.IsValid() {
		// Only Feb 29 of a non-leap year gets here.
		return Result{}, fmt.Errorf("%w: %d has no %s %d", ErrInvalidDayOrdinal, year, month, day)
	}

	return Result{Sex: sex, BirthDate: date, Format: format, DayCode: code}, nil
}

// DayCode is the inverse of the month walk: the 3-digit field a number would
// carry for someone of the given sex born on month/day.
func DayCode(sex Sex, month time.Month, day int) (int, error) {
	if month < time.January || month > time.December {
		return 0, fmt.Errorf("%w: month %d", ErrInvalidDayOrdinal, month)
	}
	if day < 1 || day > monthLengths[month-1] {
		return 0, fmt.Errorf("%w: %s %d", ErrInvalidDayOrdinal, month, day)
	}
	ordinal := day
	for m := 0; m < int(month)-1; m++ {
		ordinal += monthLengths[m]
	}
	switch sex {
	case Male:
	case Female:
		ordinal += femaleOffset
	default:
		return 0, fmt.Errorf("nic: unknown sex %q", sex)
	}
	return ordinal, nil
}

func monthDay(ordinal int) (time.Month, int, error) {
	if ordinal < 1 {
		return 0, 0, fmt.Errorf("%w: ordinal %d", ErrInvalidDayOrdinal, ordinal)
	}
	remaining := ordinal
	for i, length := range monthLengths {
		if remaining <= length {
			return time.Month(i + 1), remaining, nil
		}
		remaining -= length
	}
	return 0, 0, fmt.Errorf("%w: ordinal %d", ErrInvalidDayOrdinal, ordinal)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isSeriesLetter(c byte) bool {
	switch c {
	case 'V', 'v', 'X', 'x':
		return true
	}
	return false
}

// atoi assumes s is all ASCII digits.
func atoi(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}
