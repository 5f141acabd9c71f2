// Package holidays provides the clinic closure calendar: Brazilian national
// holidays plus clinic-specific closure dates.
package holidays

import "time"

// Calendar reports whether a date is excluded from slot generation.
type Calendar interface {
	IsHoliday(date time.Time) bool
}

// NationalCalendar covers Brazilian national holidays: the fixed-date ones
// and the movable Easter-derived ones.
type NationalCalendar struct{}

// NewNationalCalendar creates the national holiday calendar.
func NewNationalCalendar() *NationalCalendar {
	return &NationalCalendar{}
}

type monthDay struct {
	month time.Month
	day   int
}

var fixedHolidays = []monthDay{
	{time.January, 1},   // Confraternizacao Universal
	{time.April, 21},    // Tiradentes
	{time.May, 1},       // Dia do Trabalho
	{time.September, 7}, // Independencia
	{time.October, 12},  // Nossa Senhora Aparecida
	{time.November, 2},  // Finados
	{time.November, 15}, // Proclamacao da Republica
	{time.December, 25}, // Natal
}

// IsHoliday reports whether the calendar day of date (in its own location)
// is a national holiday.
func (c *NationalCalendar) IsHoliday(date time.Time) bool {
	y, m, d := date.Date()
	for _, h := range fixedHolidays {
		if h.month == m && h.day == d {
			return true
		}
	}

	easter := easterSunday(y)
	for _, offset := range []int{-48, -47, -2, 60} { // Carnival Mon/Tue, Good Friday, Corpus Christi
		movable := easter.AddDate(0, 0, offset)
		if movable.Month() == m && movable.Day() == d && movable.Year() == y {
			return true
		}
	}
	return false
}

// easterSunday computes Easter for the year using the Meeus/Jones/Butcher
// algorithm (Gregorian calendar).
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
