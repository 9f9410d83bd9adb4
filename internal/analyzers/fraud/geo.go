package fraud

import (
	"net/netip"
	"sync"

	"github.com/oschwald/maxminddb-golang/v2"
)

// GeoResult is the region/score pair a GeoLookup returns for one IP.
type GeoResult struct {
	CountryISO string
	Score      float64 // impossible-travel / mismatch score, 0..1
}

// GeoLookup is the configurable external lookup of §4.4's geolocation
// component. A failed lookup is the caller's cue to mark the
// component unavailable rather than silently scoring 0.
type GeoLookup interface {
	Lookup(ip string) (GeoResult, error)
}

// Disabled is the zero-configuration GeoLookup: every call fails, so
// the geo component is always recorded unavailable. Used when
// FraudConfig.GeoDBPath is empty.
type Disabled struct{}

func (Disabled) Lookup(string) (GeoResult, error) {
	return GeoResult{}, errGeoDisabled
}

var errGeoDisabled = geoErr("geo: lookup disabled, no GeoDBPath configured")

type geoErr string

func (e geoErr) Error() string { return string(e) }

// MaxMindGeo resolves IPs against a local MaxMind GeoLite2 City
// database. declaredRegion comparisons and impossible-travel checks
// are left to the caller (they need the respondent's prior sessions,
// which this lookup doesn't see); MaxMindGeo only resolves the
// IP -> country/region side of the comparison.
type MaxMindGeo struct {
	mu     sync.RWMutex
	reader *maxminddb.Reader
}

// OpenMaxMindGeo opens the database at path. Returns an error the
// caller should treat as "geo disabled", not fatal.
func OpenMaxMindGeo(path string) (*MaxMindGeo, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &MaxMindGeo{reader: reader}, nil
}

type cityRecord struct {
	Country struct {
		IsoCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Lookup resolves ip to a country ISO code. Score is left 0; the
// fraud analyzer derives the actual mismatch/impossible-travel score
// by comparing this against the respondent's declared region and
// prior-session countries.
func (g *MaxMindGeo) Lookup(ip string) (GeoResult, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return GeoResult{}, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	var rec cityRecord
	result := g.reader.Lookup(addr)
	if err := result.Decode(&rec); err != nil {
		return GeoResult{}, err
	}
	return GeoResult{CountryISO: rec.Country.IsoCode}, nil
}

// Close releases the underlying database file.
func (g *MaxMindGeo) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reader.Close()
}
