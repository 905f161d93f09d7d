package model

import (
	"errors"
	"math"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var ErrEmptyDate = errors.New("date is empty")

// ParseDate accepts a calendar date (2006-01-02) or an RFC3339 timestamp and
// returns the UTC calendar date it falls on.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return TruncateToDate(t), nil
}

func TruncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether the half-open ranges [aStart, aEnd) and
// [bStart, bEnd) share at least one instant. Touching ranges do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Nights is the number of started 24h periods between checkIn and checkOut.
func Nights(checkIn, checkOut time.Time) int64 {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Hours() / 24))
}

func TotalPrice(checkIn, checkOut time.Time, pricePerNight int64) int64 {
	return Nights(checkIn, checkOut) * pricePerNight
}
