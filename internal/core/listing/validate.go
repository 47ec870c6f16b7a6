package listing

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRecord marks a scraped record rejected at the boundary.
var ErrInvalidRecord = errors.New("invalid record")

// DateLayout is the storage format of auction and result dates.
const DateLayout = "2006-01-02"

const timeLayout = "15:04"

// ParseDate parses a stored YYYY-MM-DD date as a UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidRecord, s)
	}
	return d, nil
}

// Validate checks a normalized snapshot before it may reach the merge.
func Validate(s Snapshot) error {
	if s.LicitorID <= 0 {
		return fmt.Errorf("%w: licitor_id must be positive, got %d", ErrInvalidRecord, s.LicitorID)
	}
	if _, err := ParsePage(string(s.Page)); err != nil {
		return err
	}
	if s.ResultStatus != nil {
		if _, err := ParseResultStatus(string(*s.ResultStatus)); err != nil {
			return err
		}
	}
	dates := []struct {
		name  string
		value *string
	}{
		{"auction_date", s.AuctionDate},
		{"result_date", s.ResultDate},
	}
	for _, d := range dates {
		if d.value == nil {
			continue
		}
		if _, err := ParseDate(*d.value); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	if s.AuctionTime != nil {
		if _, err := time.Parse(timeLayout, *s.AuctionTime); err != nil {
			return fmt.Errorf("%w: bad auction_time %q", ErrInvalidRecord, *s.AuctionTime)
		}
	}
	if s.MiseAPrix != nil && *s.MiseAPrix < 0 {
		return fmt.Errorf("%w: negative mise_a_prix", ErrInvalidRecord)
	}
	if s.FinalPrice != nil && *s.FinalPrice < 0 {
		return fmt.Errorf("%w: negative final_price", ErrInvalidRecord)
	}
	if s.SurfaceM2 != nil && *s.SurfaceM2 < 0 {
		return fmt.Errorf("%w: negative surface_m2", ErrInvalidRecord)
	}
	if s.Latitude != nil && (*s.Latitude < -90 || *s.Latitude > 90) {
		return fmt.Errorf("%w: latitude out of range", ErrInvalidRecord)
	}
	if s.Longitude != nil && (*s.Longitude < -180 || *s.Longitude > 180) {
		return fmt.Errorf("%w: longitude out of range", ErrInvalidRecord)
	}
	return nil
}
