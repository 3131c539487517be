package geo

import "sort"

// DefaultDeviationKm is the corridor budget used by the match scorer.
const DefaultDeviationKm = 80

// RouteStop is a locality lying on a route, with the extra distance a detour
// through it would add over the direct leg.
type RouteStop struct {
	Locality    Locality
	DeviationKm float64
}

// OnRoute returns every locality, endpoints excluded, whose detour deviation
// distance(from, l) + distance(l, to) - distance(from, to) stays within
// maxDeviationKm, sorted by ascending deviation. Unresolvable endpoints
// yield an empty result.
func (g *Gazetteer) OnRoute(fromKey, toKey string, maxDeviationKm float64) []RouteStop {
	from, okFrom := g.Get(fromKey)
	to, okTo := g.Get(toKey)
	if !okFrom || !okTo {
		return nil
	}

	direct := Distance(from, to)
	var stops []RouteStop
	for _, l := range g.entries {
		if l.Key == fromKey || l.Key == toKey {
			continue
		}
		deviation := Distance(from, l) + Distance(l, to) - direct
		if deviation <= maxDeviationKm {
			stops = append(stops, RouteStop{Locality: l, DeviationKm: deviation})
		}
	}
	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].DeviationKm < stops[j].DeviationKm
	})
	return stops
}

// Corridor is the membership set used for scoring: both endpoints plus every
// on-route locality within the budget.
func (g *Gazetteer) Corridor(fromKey, toKey string, maxDeviationKm float64) map[string]struct{} {
	set := map[string]struct{}{fromKey: {}, toKey: {}}
	for _, s := range g.OnRoute(fromKey, toKey, maxDeviationKm) {
		set[s.Locality.Key] = struct{}{}
	}
	return set
}
