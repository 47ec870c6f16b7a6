// Package lifecycle contains the pure status transition rules for listings.
// This is part of the Functional Core - no I/O, only pure functions.
package lifecycle

import (
	"time"

	"github.com/example/encheres/internal/core/listing"
)

// Input is everything a transition depends on.
type Input struct {
	Current      listing.Status
	IsHistorical bool
	AuctionDate  *string // YYYY-MM-DD
	ResultStatus *listing.ResultStatus
	// Cancelled is the explicit cancellation signal from the scraper.
	Cancelled bool
}

// InputOf builds the transition input from a listing.
func InputOf(l *listing.Listing, cancelled bool) Input {
	return Input{
		Current:      l.Status,
		IsHistorical: l.IsHistorical,
		AuctionDate:  l.AuctionDate,
		ResultStatus: l.ResultStatus,
		Cancelled:    cancelled,
	}
}

// Transition is the result of evaluating the rules.
type Transition struct {
	From         listing.Status
	Status       listing.Status
	IsHistorical bool
	Changed      bool
}

// Evaluate applies the lifecycle rules:
//   - cancelled is terminal; any status becomes cancelled only on an explicit signal
//   - upcoming becomes past once the auction date is strictly before today, or
//     as soon as a result is known
//   - is_historical latches to true when the status is past or cancelled
//
// today is the processing date, injected by the caller. Only its calendar
// date in its own location matters.
func Evaluate(in Input, today time.Time) Transition {
	next := in.Current
	if next == "" {
		next = listing.StatusUpcoming
	}

	switch {
	case in.Cancelled:
		next = listing.StatusCancelled
	case next == listing.StatusUpcoming && (in.ResultStatus != nil || auctionBefore(in.AuctionDate, today)):
		next = listing.StatusPast
	}

	historical := in.IsHistorical || next == listing.StatusPast || next == listing.StatusCancelled

	return Transition{
		From:         in.Current,
		Status:       next,
		IsHistorical: historical,
		Changed:      next != in.Current || historical != in.IsHistorical,
	}
}

// Apply evaluates the rules against a listing and writes the outcome back.
func Apply(l *listing.Listing, cancelled bool, today time.Time) Transition {
	t := Evaluate(InputOf(l, cancelled), today)
	l.Status = t.Status
	l.IsHistorical = t.IsHistorical
	return t
}

func auctionBefore(date *string, today time.Time) bool {
	if date == nil {
		return false
	}
	d, err := listing.ParseDate(*date)
	if err != nil {
		return false
	}
	y, m, dd := today.Date()
	return d.Before(time.Date(y, m, dd, 0, 0, 0, 0, time.UTC))
}
