// Package match scores compatibility between capacity events (trucks
// returning empty or offering trips) and demand events (cereal that needs
// moving). Scores live in [0,100]; candidates below the floor are dropped.
package match

import (
	"fmt"
	"math"
	"sort"

	"github.com/fletescerealeros/fletes/core/geo"
	"github.com/fletescerealeros/fletes/core/logger"
	"github.com/fletescerealeros/fletes/core/model"
)

const (
	// MinScore is the qualification floor; weaker candidates are discarded.
	MinScore = 20

	originOnRouteScore = 50
	nearRouteMaxKm     = 100
	nearRouteMaxScore  = 30
	samePortKm         = 50
	samePortScore      = 30
	nearbyPortKm       = 150
	nearbyPortScore    = 15
	dateMatchScore     = 20
	dateUnsetScore     = 10
	dateSoonScore      = 15
)

// Candidate is one qualifying counterpart event with its score and the
// human-readable reasons that produced it.
type Candidate struct {
	Event   model.TripEvent
	Score   float64
	Reasons []string
}

// Scorer ranks candidate pairings for one side of the market against the
// opposing active-event set.
type Scorer struct {
	Gaz *geo.Gazetteer
	Log logger.Logger
}

// NewScorer builds a Scorer over the given gazetteer.
func NewScorer(gaz *geo.Gazetteer, log logger.Logger) Scorer {
	if log == nil {
		log = logger.Nop{}
	}
	return Scorer{Gaz: gaz, Log: log}
}

// ForCapacity ranks demand events against a capacity event. Demands whose
// origin fails to resolve are skipped; if the capacity event's own endpoints
// fail to resolve, the whole pass yields nothing.
func (s Scorer) ForCapacity(capacity model.TripEvent, demands []model.TripEvent) []Candidate {
	capOrigin, okO := s.Gaz.Resolve(capacity.Origin)
	capDest, okD := s.Gaz.Resolve(capacity.Destination)
	if !okO || !okD {
		s.Log.Warnf("cannot geolocate capacity event: %s -> %s", capacity.Origin, capacity.Destination)
		return nil
	}

	corridor := s.Gaz.Corridor(capOrigin.Key, capDest.Key, geo.DefaultDeviationKm)

	var out []Candidate
	for _, demand := range demands {
		demOrigin, ok := s.Gaz.Resolve(demand.Origin)
		if !ok {
			s.Log.Warnf("cannot geolocate demand origin %q, skipping", demand.Origin)
			continue
		}

		var score float64
		var reasons []string

		if _, onRoute := corridor[demOrigin.Key]; onRoute {
			score += originOnRouteScore
			reasons = append(reasons, "origen en ruta de retorno")
		} else {
			dist := geo.Distance(demOrigin, capDest)
			if dist > nearRouteMaxKm {
				continue
			}
			score += nearRouteMaxScore * (1 - dist/nearRouteMaxKm)
			reasons = append(reasons, fmt.Sprintf("origen a %d km de la ruta", int(math.Round(dist))))
		}

		if demDest, ok := s.Gaz.Resolve(demand.Destination); ok {
			dist := geo.Distance(demDest, capOrigin)
			switch {
			case dist < samePortKm:
				score += samePortScore
				reasons = append(reasons, "mismo puerto de destino")
			case dist < nearbyPortKm:
				score += nearbyPortScore
				reasons = append(reasons, "puerto cercano")
			}
		}

		if capacity.Date != "" && demand.Date != "" {
			if capacity.Date == demand.Date || demand.Date == model.DateFlexible {
				score += dateMatchScore
				reasons = append(reasons, "fecha compatible")
			}
		} else {
			score += dateUnsetScore
		}

		if score >= MinScore {
			out = append(out, Candidate{Event: demand, Score: clamp(score), Reasons: reasons})
		}
	}

	sortByScore(out)
	return out
}

// ForDemand ranks capacity events against a demand event. This direction
// deliberately uses a reduced rule set: corridor membership, same-port
// proximity and a soon-availability bonus.
func (s Scorer) ForDemand(demand model.TripEvent, capacities []model.TripEvent) []Candidate {
	demOrigin, ok := s.Gaz.Resolve(demand.Origin)
	if !ok {
		s.Log.Warnf("cannot geolocate demand event origin %q", demand.Origin)
		return nil
	}
	demDest, demDestOK := s.Gaz.Resolve(demand.Destination)

	var out []Candidate
	for _, capacity := range capacities {
		capOrigin, okO := s.Gaz.Resolve(capacity.Origin)
		capDest, okD := s.Gaz.Resolve(capacity.Destination)
		if !okO || !okD {
			s.Log.Warnf("cannot geolocate capacity event: %s -> %s, skipping", capacity.Origin, capacity.Destination)
			continue
		}

		var score float64
		var reasons []string

		corridor := s.Gaz.Corridor(capOrigin.Key, capDest.Key, geo.DefaultDeviationKm)
		if _, onRoute := corridor[demOrigin.Key]; onRoute {
			score += originOnRouteScore
			reasons = append(reasons, "camionero pasa por tu zona")
		}

		if demDestOK {
			if geo.Distance(demDest, capOrigin) < samePortKm {
				score += samePortScore
				reasons = append(reasons, "mismo puerto")
			}
		}

		if capacity.Date == model.DateToday || demand.Date == model.DateFlexible {
			score += dateSoonScore
			reasons = append(reasons, "disponible pronto")
		}

		if score >= MinScore {
			out = append(out, Candidate{Event: capacity, Score: clamp(score), Reasons: reasons})
		}
	}

	sortByScore(out)
	return out
}

// sortByScore orders candidates best-first. The sort is stable so ties keep
// the input (newest-first) order.
func sortByScore(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Score > cands[j].Score
	})
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
