package itinerary

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/google/uuid"

	"tripai/internal/types"
)

// normalizeCosts recomputes every total and the cost breakdown from the
// raw numeric fields, overwriting whatever the model supplied. Running
// it twice is a fixed point.
func normalizeCosts(itin *types.Itinerary, numPeople int) {
	if numPeople < 1 {
		numPeople = 1
	}

	var breakdown types.CostBreakdown
	perPerson := 0.0

	for i := range itin.Days {
		day := &itin.Days[i]

		var activities, food, transport, accommodation float64
		for _, a := range day.Activities {
			activities += float64(a.Cost)
			if a.Transport != nil {
				transport += float64(a.Transport.Cost)
			}
		}
		for _, m := range day.Meals {
			food += float64(m.Cost)
		}
		// Only the first listed option counts toward the day total.
		if len(day.AccommodationOptions) > 0 {
			accommodation = float64(day.AccommodationOptions[0].CostPerNight)
		}

		day.DailyTotal = activities + food + transport + accommodation
		perPerson += day.DailyTotal

		breakdown.Activities += activities
		breakdown.Food += food
		breakdown.Transportation += transport
		breakdown.Accommodation += accommodation
	}

	itin.PerPersonTotal = perPerson
	itin.GroupTotal = perPerson * float64(numPeople)
	itin.CostBreakdown = breakdown
}

// eventNames collects every activity and meal name in traversal order.
func eventNames(itin *types.Itinerary) []string {
	var names []string
	for _, day := range itin.Days {
		for _, a := range day.Activities {
			names = append(names, a.Name)
		}
		for _, m := range day.Meals {
			names = append(names, m.Name)
		}
	}
	return names
}

// hasUniqueNames reports whether no activity or meal name repeats
// across the whole itinerary, case-insensitively.
func hasUniqueNames(itin *types.Itinerary) bool {
	names := eventNames(itin)
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		seen[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return len(seen) == len(names)
}

// assignEventIDs gives every activity and meal a stable synthetic
// identifier so revisions survive renames and duplicate names. Existing
// ids are left alone.
func assignEventIDs(itin *types.Itinerary) {
	for i := range itin.Days {
		day := &itin.Days[i]
		for j := range day.Activities {
			if day.Activities[j].ID == "" {
				day.Activities[j].ID = uuid.NewString()
			}
		}
		for j := range day.Meals {
			if day.Meals[j].ID == "" {
				day.Meals[j].ID = uuid.NewString()
			}
		}
	}
}

// extractMapPoints flattens activities and meals with usable
// coordinates into route order: day, then that day's activities, then
// its meals. The display layer draws the route through this order, so
// it is a contract.
func extractMapPoints(itin *types.Itinerary) []types.MapPoint {
	points := make([]types.MapPoint, 0)
	for _, day := range itin.Days {
		for _, a := range day.Activities {
			if a.Coordinates.Valid() {
				points = append(points, types.MapPoint{
					Name:        a.Name,
					Coordinates: a.Coordinates,
					Description: a.Description,
				})
			}
		}
		for _, m := range day.Meals {
			if m.Coordinates.Valid() {
				points = append(points, types.MapPoint{
					Name:        m.Name,
					Coordinates: m.Coordinates,
					Description: m.Description,
				})
			}
		}
	}
	return points
}

// keywordFamily groups activity keywords into a named family so near
// duplicates across days can be flagged to the user.
type keywordFamily struct {
	name     string
	keywords []string
}

// similarKeywords is ordered; an activity matching several families is
// always assigned to the first one listed.
var similarKeywords = []keywordFamily{
	{"temple", []string{"temple", "shrine", "religious"}},
	{"museum", []string{"museum", "gallery", "exhibition"}},
	{"park", []string{"park", "garden", "nature"}},
	{"beach", []string{"beach", "water", "coast"}},
	{"shopping", []string{"market", "mall", "shopping"}},
	{"adventure", []string{"trek", "hike", "adventure", "sport"}},
	{"historical", []string{"fort", "palace", "historical", "monument", "ruins"}},
	{"cultural", []string{"cultural", "traditional", "heritage", "art"}},
}

func matchesFamily(a types.Activity, keywords []string) bool {
	name := strings.ToLower(a.Name)
	desc := strings.ToLower(a.Description)
	for _, kw := range keywords {
		if strings.Contains(name, kw) || strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}

// annotateSimilarActivities fills each activity's SimilarTo with the
// names of other activities in the same keyword family.
func annotateSimilarActivities(itin *types.Itinerary) {
	for i := range itin.Days {
		for j := range itin.Days[i].Activities {
			a := &itin.Days[i].Activities[j]

			var family []string
			for _, f := range similarKeywords {
				if matchesFamily(*a, f.keywords) {
					family = f.keywords
					break
				}
			}
			if family == nil {
				continue
			}

			var similar []string
			for _, day := range itin.Days {
				for _, other := range day.Activities {
					if other.Name == a.Name {
						continue
					}
					if matchesFamily(other, family) {
						similar = append(similar, other.Name)
					}
				}
			}
			a.SimilarTo = similar
		}
	}
}

// eventRef is the minimal identity of the event under revision.
type eventRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// applyEventUpdate locates the owning day of the event described by ctx
// and overwrites the activity or meal in place, then recomputes that
// day's total and the itinerary-level totals. Returns false when no
// owning day matches; the caller treats that as a dropped edit.
func applyEventUpdate(itin *types.Itinerary, ctx types.EventContext, updated json.RawMessage, numPeople int) bool {
	var ref eventRef
	if err := json.Unmarshal(ctx.CurrentDetails, &ref); err != nil {
		return false
	}

	isActivity := ctx.Type != "meal"
	for i := range itin.Days {
		day := &itin.Days[i]
		if isActivity {
			for j := range day.Activities {
				if !matchesRef(day.Activities[j].ID, day.Activities[j].Name, ref) {
					continue
				}
				// Unmarshal over a copy so fields the model omitted
				// keep their current values.
				next := day.Activities[j]
				if err := json.Unmarshal(updated, &next); err != nil {
					return false
				}
				next.ID = day.Activities[j].ID
				day.Activities[j] = next
				normalizeCosts(itin, numPeople)
				return true
			}
		} else {
			for j := range day.Meals {
				if !matchesRef(day.Meals[j].ID, day.Meals[j].Name, ref) {
					continue
				}
				next := day.Meals[j]
				if err := json.Unmarshal(updated, &next); err != nil {
					return false
				}
				next.ID = day.Meals[j].ID
				day.Meals[j] = next
				normalizeCosts(itin, numPeople)
				return true
			}
		}
	}
	return false
}

// matchesRef prefers the stable id and falls back to exact name match
// for itineraries created before ids existed.
func matchesRef(id, name string, ref eventRef) bool {
	if ref.ID != "" && id != "" {
		return ref.ID == id
	}
	return ref.Name != "" && ref.Name == name
}

// inferNumPeople recovers the party size from an already normalized
// itinerary when the caller did not supply one.
func inferNumPeople(itin *types.Itinerary) int {
	if itin.PerPersonTotal > 0 && itin.GroupTotal > 0 {
		if n := int(math.Round(itin.GroupTotal / itin.PerPersonTotal)); n >= 1 {
			return n
		}
	}
	return 1
}
