package models

import (
	"encoding/json"
	"strings"
	"time"
)

type Listing struct {
	// 基本情報
	ID          string      `gorm:"type:varchar(64);primaryKey" json:"id"`
	ListingType ListingType `gorm:"type:varchar(20);not null;index" json:"listing_type"`
	SubCategory SubCategory `gorm:"type:varchar(20);not null;index" json:"sub_category"`

	// 価格
	Price      float64    `gorm:"type:decimal(14,2);not null;index" json:"price"`
	RentPeriod RentPeriod `gorm:"type:varchar(10)" json:"rent_period,omitempty"`

	// スペック
	Bedrooms  *int     `gorm:"type:int;index" json:"bedrooms,omitempty"`
	Bathrooms *int     `gorm:"type:int;index" json:"bathrooms,omitempty"`
	Size      *float64 `gorm:"type:decimal(10,2)" json:"size,omitempty"`
	PlotSize  *float64 `gorm:"type:decimal(12,2)" json:"plot_size,omitempty"`
	ROI       *float64 `gorm:"column:roi;type:decimal(6,2)" json:"roi,omitempty"`
	Buildable *bool    `gorm:"type:boolean" json:"buildable,omitempty"`
	Zone      string   `gorm:"type:varchar(100)" json:"zone,omitempty"`

	// 所在地
	Location     string   `gorm:"type:text" json:"location"`
	Region       string   `gorm:"type:varchar(100);index" json:"region,omitempty"`
	Province     string   `gorm:"type:varchar(100);index" json:"province,omitempty"`
	Municipality string   `gorm:"type:varchar(100);index" json:"municipality,omitempty"`
	Latitude     *float64 `gorm:"type:decimal(9,6)" json:"latitude,omitempty"`
	Longitude    *float64 `gorm:"type:decimal(9,6)" json:"longitude,omitempty"`
	Geohash      string   `gorm:"type:varchar(12);index" json:"geohash,omitempty"`

	// テキスト
	Title            string              `gorm:"type:text;not null" json:"title"`
	Description      string              `gorm:"type:text" json:"description,omitempty"`
	Features         []string            `gorm:"type:json;serializer:json" json:"features,omitempty"`
	Translations     map[string]string   `gorm:"type:json;serializer:json" json:"translations,omitempty"`
	ListTranslations map[string][]string `gorm:"type:json;serializer:json" json:"list_translations,omitempty"`

	// 表示用
	Tag        string `gorm:"type:varchar(30)" json:"tag,omitempty"`
	ViewsCount int64  `gorm:"not null;default:0" json:"views_count"`
	SavesCount int64  `gorm:"not null;default:0" json:"saves_count"`

	Status    ListingStatus `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	CreatedAt time.Time     `gorm:"type:datetime;not null;index:idx_created_at,sort:desc" json:"created_at"`
	UpdatedAt time.Time     `gorm:"type:datetime;not null" json:"updated_at"`
}

type ListingType string

const (
	ListingTypeSale        ListingType = "sale"
	ListingTypeRent        ListingType = "rent"
	ListingTypeNewBuilding ListingType = "new-building"
)

// Valid reports whether t is one of the known transaction kinds.
func (t ListingType) Valid() bool {
	switch t {
	case ListingTypeSale, ListingTypeRent, ListingTypeNewBuilding:
		return true
	}
	return false
}

type SubCategory string

const (
	SubCategoryApartment SubCategory = "apartment"
	SubCategoryHouse     SubCategory = "house"
	SubCategoryCommerce  SubCategory = "commerce"
	SubCategoryPlot      SubCategory = "plot"
)

// Valid reports whether c is one of the known physical kinds.
func (c SubCategory) Valid() bool {
	switch c {
	case SubCategoryApartment, SubCategoryHouse, SubCategoryCommerce, SubCategoryPlot:
		return true
	}
	return false
}

type RentPeriod string

const (
	RentPeriodWeek  RentPeriod = "week"
	RentPeriodMonth RentPeriod = "month"
)

// ListingStatus は掲載ステータス
type ListingStatus string

const (
	ListingStatusAvailable ListingStatus = "available"
	ListingStatusReserved  ListingStatus = "reserved"
	ListingStatusSold      ListingStatus = "sold"
)

// TableName はテーブル名を明示的に指定
func (Listing) TableName() string {
	return "listings"
}

// IsAvailable は掲載中かどうか
func (l *Listing) IsAvailable() bool {
	return l.Status == ListingStatusAvailable
}

// HasCoordinates reports whether both latitude and longitude are present.
func (l *Listing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Coordinates returns the position, ok is false when either half is missing.
func (l *Listing) Coordinates() (lat, lng float64, ok bool) {
	if !l.HasCoordinates() {
		return 0, 0, false
	}
	return *l.Latitude, *l.Longitude, true
}

// Category returns the sub category as a plain string.
func (l *Listing) Category() string {
	return string(l.SubCategory)
}

// translatable base fields; override keys start with one of these names
var translatableFields = []string{"title", "description", "features"}

// Text returns the string stored under key. Base field names return the base
// value, anything else is looked up in the translation overrides.
func (l *Listing) Text(key string) string {
	switch key {
	case "title":
		return l.Title
	case "description":
		return l.Description
	case "zone":
		return l.Zone
	}
	return l.Translations[key]
}

// List is the list-valued counterpart of Text.
func (l *Listing) List(key string) []string {
	if key == "features" {
		return l.Features
	}
	return l.ListTranslations[key]
}

// UnmarshalJSON accepts both the database shape (explicit translations maps)
// and the bundled shape, where overrides such as "titleEs" or "title_es"
// appear as top-level keys.
func (l *Listing) UnmarshalJSON(data []byte) error {
	type plain Listing
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for key, value := range raw {
		if !isOverrideKey(key) {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			if s == "" {
				continue
			}
			if p.Translations == nil {
				p.Translations = make(map[string]string)
			}
			p.Translations[key] = s
			continue
		}
		var list []string
		if err := json.Unmarshal(value, &list); err == nil && len(list) > 0 {
			if p.ListTranslations == nil {
				p.ListTranslations = make(map[string][]string)
			}
			p.ListTranslations[key] = list
		}
	}

	*l = Listing(p)
	return nil
}

func isOverrideKey(key string) bool {
	for _, field := range translatableFields {
		if key != field && strings.HasPrefix(key, field) {
			return true
		}
	}
	return false
}
