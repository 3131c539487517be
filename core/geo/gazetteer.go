package geo

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LocalityRole tags a registry entry as an inland origin or a port.
type LocalityRole string

const (
	RoleOrigin LocalityRole = "origin"
	RolePort   LocalityRole = "port"
)

// Locality is a named point of the corridor. The registry is immutable at
// runtime and keys never change.
type Locality struct {
	Key  string
	Name string
	Lat  float64
	Lon  float64
	Role LocalityRole
}

// Gazetteer resolves free-text place names against an ordered registry.
// Ordering matters: Resolve returns the first entry that matches, so two
// inputs that each partially match two localities always land on whichever
// one is declared first.
type Gazetteer struct {
	entries []Locality
}

// New builds a Gazetteer over the given entries, kept in declaration order.
func New(entries []Locality) *Gazetteer {
	return &Gazetteer{entries: entries}
}

// Defaults returns the Pehuajó corridor registry: seven inland towns and the
// five cereal ports they ship to.
func Defaults() *Gazetteer {
	return New([]Locality{
		{Key: "pehuajo", Name: "Pehuajó", Lat: -35.8108, Lon: -61.8988, Role: RoleOrigin},
		{Key: "carlos_casares", Name: "Carlos Casares", Lat: -35.6225, Lon: -61.3653, Role: RoleOrigin},
		{Key: "bolivar", Name: "Bolívar", Lat: -36.2319, Lon: -61.1000, Role: RoleOrigin},
		{Key: "trenque_lauquen", Name: "Trenque Lauquen", Lat: -35.9703, Lon: -62.7314, Role: RoleOrigin},
		{Key: "tejedor", Name: "Tejedor", Lat: -35.5917, Lon: -62.1000, Role: RoleOrigin},
		{Key: "henderson", Name: "Henderson", Lat: -36.3000, Lon: -61.7167, Role: RoleOrigin},
		{Key: "daireaux", Name: "Daireaux", Lat: -36.5933, Lon: -61.7461, Role: RoleOrigin},
		{Key: "bahia_blanca", Name: "Bahía Blanca", Lat: -38.7196, Lon: -62.2724, Role: RolePort},
		{Key: "quequen", Name: "Quequén", Lat: -38.5833, Lon: -58.7000, Role: RolePort},
		{Key: "rosario", Name: "Rosario", Lat: -32.9468, Lon: -60.6393, Role: RolePort},
		{Key: "san_nicolas", Name: "San Nicolás", Lat: -33.3330, Lon: -60.2260, Role: RolePort},
		{Key: "san_lorenzo", Name: "San Lorenzo", Lat: -32.7500, Lon: -60.7333, Role: RolePort},
	})
}

// Entries returns the registry in declaration order.
func (g *Gazetteer) Entries() []Locality { return g.entries }

// Get looks a locality up by key.
func (g *Gazetteer) Get(key string) (Locality, bool) {
	for _, l := range g.entries {
		if l.Key == key {
			return l, true
		}
	}
	return Locality{}, false
}

// Resolve matches a free-text name against the registry. The input and the
// registry names are normalized (lowercase, diacritics stripped); an entry
// matches when either string contains the other, or the key contains the
// input. The first matching entry wins.
func (g *Gazetteer) Resolve(name string) (Locality, bool) {
	n := Normalize(strings.TrimSpace(name))
	if n == "" {
		return Locality{}, false
	}
	for _, l := range g.entries {
		ln := Normalize(l.Name)
		if strings.Contains(ln, n) || strings.Contains(n, ln) || strings.Contains(l.Key, n) {
			return l, true
		}
	}
	return Locality{}, false
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases the input and strips diacritics, so "Pehuajó" and
// "pehuajo" compare equal.
func Normalize(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

const earthRadiusKm = 6371

// DistanceKm is the great-circle distance between two points, haversine
// formula, inputs in degrees.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Distance is DistanceKm between two registry entries.
func Distance(a, b Locality) float64 {
	return DistanceKm(a.Lat, a.Lon, b.Lat, b.Lon)
}
