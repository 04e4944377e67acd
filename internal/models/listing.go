/**
 * @description
 * Listing database model.
 * Maps to the 'listings' table in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 * - github.com/shopspring/decimal (NUMERIC prices)
 */

package models

import (
	"database/sql/driver"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LowStockThreshold is the quantity at or below which a farmer gets a low-stock notice.
const LowStockThreshold = 3

// MonthSet holds the months (1-12) a seasonal crop is available.
// Stored as a comma separated TEXT column, e.g. "1,2,3,12".
type MonthSet []int

// Scan implements the sql.Scanner interface
func (m *MonthSet) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		*m = ParseMonthSet(string(v))
	case string:
		*m = ParseMonthSet(v)
	default:
		return errors.New("type assertion failed for MonthSet")
	}
	return nil
}

// Value implements the driver.Valuer interface
func (m MonthSet) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	parts := make([]string, 0, len(m))
	for _, month := range m {
		parts = append(parts, strconv.Itoa(month))
	}
	return strings.Join(parts, ","), nil
}

// Contains reports whether month is in the set.
func (m MonthSet) Contains(month time.Month) bool {
	for _, v := range m {
		if v == int(month) {
			return true
		}
	}
	return false
}

// ParseMonthSet parses "1, 2,3". Entries outside 1-12 or not numeric are skipped.
func ParseMonthSet(s string) MonthSet {
	var out MonthSet
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > 12 || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Listing is a farmer's produce offer.
type Listing struct {
	ID                string          `gorm:"primaryKey;size:64" json:"id"`
	FarmerID          string          `gorm:"size:64;not null;index" json:"farmer_id"`
	FarmerName        string          `gorm:"size:255" json:"farmer_name"`
	CropName          string          `gorm:"size:255;not null" json:"crop_name"`
	CropCategory      string          `gorm:"size:100;not null" json:"crop_category"`
	PricePerUnit      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_per_unit"`
	AvailableQuantity int             `gorm:"not null" json:"available_quantity"`
	ImageURL          string          `json:"image_url"`
	IsSeasonal        bool            `gorm:"default:false" json:"is_seasonal"`
	SeasonalMonths    MonthSet        `gorm:"type:text" json:"seasonal_months"`

	// LowStockNotifiedAt throttles low-stock notices to one per day.
	LowStockNotifiedAt *time.Time `json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by Listing to `listings`
func (Listing) TableName() string {
	return "listings"
}

func (l *Listing) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return
}

// InSeason reports whether the listing is available in month.
// Non-seasonal listings and seasonal ones without months are always in season.
func (l Listing) InSeason(month time.Month) bool {
	if !l.IsSeasonal || len(l.SeasonalMonths) == 0 {
		return true
	}
	return l.SeasonalMonths.Contains(month)
}
