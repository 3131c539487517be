package geo

// Cereals is the freight vocabulary recognized by the classifier.
var Cereals = []string{"trigo", "maíz", "soja", "girasol", "cebada", "sorgo", "avena"}

// Route is a reference leg with approximate road distance and duration.
type Route struct {
	FromKey string
	ToKey   string
	Km      float64
	Hours   float64
}

// Routes lists the main corridor legs. Values are road approximations, not
// haversine distances.
var Routes = []Route{
	{FromKey: "pehuajo", ToKey: "bahia_blanca", Km: 350, Hours: 4.5},
	{FromKey: "pehuajo", ToKey: "quequen", Km: 400, Hours: 5.0},
	{FromKey: "pehuajo", ToKey: "rosario", Km: 450, Hours: 5.5},
	{FromKey: "pehuajo", ToKey: "san_nicolas", Km: 420, Hours: 5.0},
	{FromKey: "pehuajo", ToKey: "san_lorenzo", Km: 460, Hours: 5.5},
	{FromKey: "carlos_casares", ToKey: "rosario", Km: 400, Hours: 5.0},
	{FromKey: "carlos_casares", ToKey: "bahia_blanca", Km: 380, Hours: 4.5},
	{FromKey: "bolivar", ToKey: "quequen", Km: 350, Hours: 4.5},
	{FromKey: "bolivar", ToKey: "bahia_blanca", Km: 320, Hours: 4.0},
	{FromKey: "trenque_lauquen", ToKey: "bahia_blanca", Km: 300, Hours: 3.5},
	{FromKey: "trenque_lauquen", ToKey: "rosario", Km: 500, Hours: 6.0},
}

// ReferenceRoute returns the reference leg between two keys, if listed.
func ReferenceRoute(fromKey, toKey string) (Route, bool) {
	for _, r := range Routes {
		if r.FromKey == fromKey && r.ToKey == toKey {
			return r, true
		}
	}
	return Route{}, false
}
