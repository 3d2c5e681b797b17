package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lng" validate:"longitude"`
}

// Valid reports whether the point lies within the WGS 84 ranges.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// BuenosAiresCenter is the Obelisco, used when no position can be obtained.
var BuenosAiresCenter = GeoPoint{Lat: -34.6037, Lon: -58.3816}

// Position is a located point with its reported accuracy.
type Position struct {
	Point     GeoPoint `json:"point"`
	AccuracyM float64  `json:"accuracy_m"`
	Source    string   `json:"source"` // "gps" | "ip" | "default"
}
