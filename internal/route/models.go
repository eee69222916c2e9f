package route

import (
	"encoding/json"
	"time"
)

type Definition struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	TotalLengthKm float64         `json:"total_length_km"`
	GeoJSON       json.RawMessage `json:"geojson,omitempty"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}
