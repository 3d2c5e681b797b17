package domain

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Mode is a public transport mode served by the upstream API.
type Mode string

const (
	ModeColectivos Mode = "colectivos"
	ModeSubtes     Mode = "subtes"
	ModeTrenes     Mode = "trenes"
	ModeEcobici    Mode = "ecobici"
)

// Modes lists every supported mode in display order.
var Modes = []Mode{ModeColectivos, ModeSubtes, ModeTrenes, ModeEcobici}

// Endpoint is one row of the proxy catalog: a public path mapped onto an upstream path.
type Endpoint struct {
	Mode            Mode    `yaml:"mode" json:"mode" validate:"required,oneof=colectivos subtes trenes ecobici"`
	Resource        string  `yaml:"resource" json:"resource" validate:"required,alphanum"`
	UpstreamPath    string  `yaml:"upstream_path" json:"upstream_path" validate:"required,startswith=/"`
	ItemsPath       string  `yaml:"items_path" json:"items_path,omitempty"`
	DefaultRadiusKm float64 `yaml:"default_radius_km" json:"default_radius_km,omitempty" validate:"gte=0,lte=50"`
	Shape           string  `yaml:"shape" json:"shape" validate:"required,oneof=vehicle stop route station status"`
}

// Path is the public proxy path of the endpoint.
func (e Endpoint) Path() string {
	return "/api/" + string(e.Mode) + "/" + e.Resource
}

// Key identifies the endpoint in the catalog ("colectivos/posiciones").
func (e Endpoint) Key() string {
	return string(e.Mode) + "/" + e.Resource
}

// Filterable reports whether the endpoint advertises a default search radius.
func (e Endpoint) Filterable() bool {
	return e.DefaultRadiusKm > 0
}

// Record is an upstream item. Its shape is owned by the upstream API and may
// change without notice, so it is kept opaque.
type Record map[string]any

var (
	latKeys = []string{"latitude", "lat", "stop_lat"}
	lonKeys = []string{"longitude", "lng", "lon", "stop_lon"}
)

// Point extracts the record's coordinate. ok is false when either coordinate
// is missing or unparseable.
func (r Record) Point() (GeoPoint, bool) {
	lat, okLat := r.firstFloat(latKeys)
	lon, okLon := r.firstFloat(lonKeys)
	if !okLat || !okLon {
		return GeoPoint{}, false
	}
	p := GeoPoint{Lat: lat, Lon: lon}
	return p, p.Valid()
}

// Label returns a human readable name for the record, or "" if none is present.
func (r Record) Label() string {
	for _, k := range []string{"route_short_name", "nombre", "name", "stop_name", "headsign", "trip_headsign", "id"} {
		switch v := r[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func (r Record) firstFloat(keys []string) (float64, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Envelope is the uniform JSON wrapper returned by the proxy.
type Envelope struct {
	Success   bool     `json:"success"`
	Data      []Record `json:"data"`
	Total     int      `json:"total"`
	Filtered  int      `json:"filtered"`
	Timestamp string   `json:"timestamp"`
	Error     string   `json:"error,omitempty"`
	Details   string   `json:"details,omitempty"`
}

// FailedEnvelope builds a failure envelope: no data, error set.
func FailedEnvelope(msg, details string, now time.Time) Envelope {
	return Envelope{
		Success:   false,
		Data:      []Record{},
		Timestamp: now.UTC().Format(time.RFC3339),
		Error:     msg,
		Details:   details,
	}
}

// NearbyStops is the legacy /api/paradas-cercanas payload.
type NearbyStops struct {
	Location  GeoPoint `json:"ubicacion"`
	RadiusKm  float64  `json:"radio"`
	Stops     []Record `json:"paradas"`
	Total     int      `json:"total"`
	Timestamp string   `json:"timestamp"`
}

// Snapshot is published after every successful upstream fetch.
type Snapshot struct {
	Endpoint  string    `json:"endpoint"`
	Total     int       `json:"total"`
	Filtered  int       `json:"filtered"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CacheEntry is a stored HTTP response owned by the offline worker.
type CacheEntry struct {
	URL        string      `json:"url"`
	Status     int         `json:"status"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	CapturedAt time.Time   `json:"captured_at"`
}

// LayerID names a toggleable map layer.
type LayerID string

const (
	LayerColectivos LayerID = "colectivos"
	LayerParadas    LayerID = "paradas"
	LayerSubtes     LayerID = "subtes"
	LayerTrenes     LayerID = "trenes"
	LayerEcobici    LayerID = "ecobici"
)

// Layer binds a map layer to the catalog endpoint feeding it.
type Layer struct {
	ID       LayerID `json:"id"`
	Title    string  `json:"title"`
	Endpoint string  `json:"endpoint"` // catalog key
}

// Layers lists the layers the client knows how to draw.
var Layers = []Layer{
	{ID: LayerColectivos, Title: "Colectivos en tiempo real", Endpoint: "colectivos/posiciones"},
	{ID: LayerParadas, Title: "Paradas de colectivo", Endpoint: "colectivos/paradas"},
	{ID: LayerSubtes, Title: "Estaciones de subte", Endpoint: "subtes/estaciones"},
	{ID: LayerTrenes, Title: "Estaciones de tren", Endpoint: "trenes/estaciones"},
	{ID: LayerEcobici, Title: "Estaciones Ecobici", Endpoint: "ecobici/estaciones"},
}

// LookupLayer finds a layer by id.
func LookupLayer(id LayerID) (Layer, bool) {
	for _, l := range Layers {
		if l.ID == id {
			return l, true
		}
	}
	return Layer{}, false
}

// LayerPreferences maps a layer to its "active" flag.
type LayerPreferences map[LayerID]bool

// ProxyRequest asks the proxy for one catalog endpoint, optionally narrowed
// to RadiusKm around Origin.
type ProxyRequest struct {
	Mode     Mode
	Resource string
	Origin   *GeoPoint
	// RadiusKm of 0 means the endpoint default.
	RadiusKm float64
	// Offset skips records of an unfiltered collection.
	Offset int
	// Limit narrows the record cap; 0 or anything above the cap means the cap.
	Limit int
}

// WorkerMessageSkipWaiting asks a waiting offline worker to activate now.
const WorkerMessageSkipWaiting = "SKIP_WAITING"

// WorkerMessage is the only payload accepted on the offline worker's control channel.
type WorkerMessage struct {
	Type string `json:"type"`
}
