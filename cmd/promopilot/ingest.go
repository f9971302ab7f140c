package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/scandelicious/promopilot/store"
)

// promoRecord is the on-disk promo format produced by the folder scraping
// pipeline.
type promoRecord struct {
	ID                  string   `json:"id"`
	NormalizedName      string   `json:"normalized_name"`
	OriginalDescription string   `json:"original_description"`
	Brand               string   `json:"brand"`
	GranularCategory    string   `json:"granular_category"`
	ParentCategory      string   `json:"parent_category"`
	OriginalPrice       *float64 `json:"original_price"`
	PromoPrice          *float64 `json:"promo_price"`
	PromoMechanism      string   `json:"promo_mechanism"`
	UnitInfo            string   `json:"unit_info"`
	ValidityStart       string   `json:"validity_start"` // 2006-01-02
	ValidityEnd         string   `json:"validity_end"`
	SourceRetailer      string   `json:"source_retailer"`
	PageNumber          *int     `json:"page_number"`
	FolderURL           string   `json:"folder_url"`
}

func (r *promoRecord) toPromo() (*store.Promo, error) {
	if r.NormalizedName == "" {
		return nil, errors.New("promo record missing normalized_name")
	}

	promo := &store.Promo{
		ID:                  r.ID,
		NormalizedName:      r.NormalizedName,
		OriginalDescription: r.OriginalDescription,
		Brand:               r.Brand,
		GranularCategory:    r.GranularCategory,
		ParentCategory:      r.ParentCategory,
		OriginalPrice:       r.OriginalPrice,
		PromoPrice:          r.PromoPrice,
		PromoMechanism:      r.PromoMechanism,
		UnitInfo:            r.UnitInfo,
		SourceRetailer:      r.SourceRetailer,
		PageNumber:          r.PageNumber,
		FolderURL:           r.FolderURL,
	}

	var err error
	if promo.ValidityStart, err = parseDate(r.ValidityStart); err != nil {
		return nil, errors.Wrapf(err, "promo %q", r.NormalizedName)
	}
	if promo.ValidityEnd, err = parseDate(r.ValidityEnd); err != nil {
		return nil, errors.Wrapf(err, "promo %q", r.NormalizedName)
	}
	return promo, nil
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid date %q", value)
	}
	return &t, nil
}

func readPromoFile(path string) ([]*store.Promo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var records []*promoRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	if len(records) == 0 {
		return nil, errors.Errorf("no promos in %s", path)
	}

	promos := make([]*store.Promo, 0, len(records))
	for _, record := range records {
		promo, err := record.toPromo()
		if err != nil {
			return nil, err
		}
		promos = append(promos, promo)
	}
	return promos, nil
}
