package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// QualityMap maps a format to its supported quality options, stored as JSON.
type QualityMap map[string][]string

// Value implements the driver.Valuer interface for database serialization.
func (q QualityMap) Value() (driver.Value, error) {
	if q == nil {
		return "{}", nil
	}
	b, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (q *QualityMap) Scan(value interface{}) error {
	if value == nil {
		*q = QualityMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan QualityMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, q)
}

// Platform is a catalog entry for a supported video platform. The catalog
// is read-mostly and cached aggressively; admin edits converge through the
// cache TTL.
type Platform struct {
	Name             string      `gorm:"type:text;primaryKey" json:"name"`
	DisplayName      string      `gorm:"type:text" json:"display_name"`
	Domain           string      `gorm:"type:text;not null" json:"domain"`
	SupportedFormats StringArray `gorm:"type:text" json:"supported_formats"`
	MaxDurationSecs  int         `json:"max_duration_secs"`
	Qualities        QualityMap  `gorm:"type:text" json:"qualities"`
	Enabled          bool        `gorm:"default:true" json:"enabled"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Platform.
func (Platform) TableName() string {
	return "platforms"
}
