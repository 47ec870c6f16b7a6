// Package feed decodes the record files handed in by the external scraper.
package feed

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/ports/primary"
)

// maxLineBytes bounds one JSONL record. Detail pages carry long descriptions.
const maxLineBytes = 4 << 20

// record is the wire shape of one scraped listing.
type record struct {
	LicitorID    int64   `json:"licitor_id"`
	Page         string  `json:"page"`
	URLPath      *string `json:"url_path"`
	TribunalSlug *string `json:"tribunal_slug"`
	TribunalName *string `json:"tribunal_name"`

	PropertyType    *string  `json:"property_type"`
	Description     *string  `json:"description"`
	SurfaceM2       *float64 `json:"surface_m2"`
	EnergyRating    *string  `json:"energy_rating"`
	OccupancyStatus *string  `json:"occupancy_status"`

	DepartmentCode *string  `json:"department_code"`
	City           *string  `json:"city"`
	FullAddress    *string  `json:"full_address"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	CadastralRef   *string  `json:"cadastral_ref"`

	AuctionDate       *string `json:"auction_date"`
	AuctionTime       *string `json:"auction_time"`
	MiseAPrix         *int64  `json:"mise_a_prix"`
	CaseReference     *string `json:"case_reference"`
	HasPriceReduction *string `json:"has_price_reduction"`

	LawyerName  *string `json:"lawyer_name"`
	LawyerPhone *string `json:"lawyer_phone"`
	VisitDate   *string `json:"visit_date"`

	PricePerM2Min *float64 `json:"price_per_m2_min"`
	PricePerM2Avg *float64 `json:"price_per_m2_avg"`
	PricePerM2Max *float64 `json:"price_per_m2_max"`

	ViewCount       *int64  `json:"view_count"`
	FavoritesCount  *int64  `json:"favorites_count"`
	PublicationDate *string `json:"publication_date"`

	ResultStatus *string `json:"result_status"`
	FinalPrice   *int64  `json:"final_price"`
	ResultDate   *string `json:"result_date"`

	// Status and Historical are derived by the lifecycle rules. Only
	// status=cancelled is read, as the cancellation signal.
	Status     *string `json:"status"`
	Historical *bool   `json:"historical"`
	Cancelled  bool    `json:"cancelled"`
}

// DecodeJSONL reads one record per line. Lines that cannot be decoded are
// returned as items carrying ParseErr so the batch can count them. The
// error return is reserved for read failures.
func DecodeJSONL(r io.Reader) ([]primary.IngestItem, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var items []primary.IngestItem
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		snap, err := decodeLine(raw)
		items = append(items, primary.IngestItem{Line: line, Snapshot: snap, ParseErr: err})
	}
	if err := sc.Err(); err != nil {
		return items, fmt.Errorf("failed to read feed at line %d: %w", line+1, err)
	}
	return items, nil
}

func decodeLine(raw []byte) (*listing.Snapshot, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", listing.ErrInvalidRecord, err)
	}
	return rec.snapshot()
}

func (rec *record) snapshot() (*listing.Snapshot, error) {
	page, err := listing.ParsePage(rec.Page)
	if err != nil {
		return nil, err
	}

	s := &listing.Snapshot{
		LicitorID:    rec.LicitorID,
		Page:         page,
		TribunalName: rec.TribunalName,
		Cancelled:    rec.Cancelled,
	}
	if rec.Status != nil {
		st, err := listing.ParseStatus(*rec.Status)
		if err != nil {
			return nil, err
		}
		if st == listing.StatusCancelled {
			s.Cancelled = true
		}
	}
	if rec.ResultStatus != nil {
		rs, err := listing.ParseResultStatus(*rec.ResultStatus)
		if err != nil {
			return nil, err
		}
		s.ResultStatus = &rs
	}

	a := &s.Attributes
	a.URLPath = rec.URLPath
	a.TribunalSlug = rec.TribunalSlug
	a.PropertyType = rec.PropertyType
	a.Description = rec.Description
	a.SurfaceM2 = rec.SurfaceM2
	a.EnergyRating = rec.EnergyRating
	a.OccupancyStatus = rec.OccupancyStatus
	a.DepartmentCode = rec.DepartmentCode
	a.City = rec.City
	a.FullAddress = rec.FullAddress
	a.Latitude = rec.Latitude
	a.Longitude = rec.Longitude
	a.CadastralRef = rec.CadastralRef
	a.AuctionDate = rec.AuctionDate
	a.AuctionTime = rec.AuctionTime
	a.MiseAPrix = rec.MiseAPrix
	a.CaseReference = rec.CaseReference
	a.HasPriceReduction = rec.HasPriceReduction
	a.LawyerName = rec.LawyerName
	a.LawyerPhone = rec.LawyerPhone
	a.VisitDate = rec.VisitDate
	a.PricePerM2Min = rec.PricePerM2Min
	a.PricePerM2Avg = rec.PricePerM2Avg
	a.PricePerM2Max = rec.PricePerM2Max
	a.ViewCount = rec.ViewCount
	a.FavoritesCount = rec.FavoritesCount
	a.PublicationDate = rec.PublicationDate
	a.FinalPrice = rec.FinalPrice
	a.ResultDate = rec.ResultDate
	return s, nil
}
