package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Cost tolerates the model emitting cost fields as numbers, quoted
// numbers or null. Anything unusable coerces to 0 instead of failing
// the whole document.
type Cost float64

func (c *Cost) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		*c = 0
		return nil
	}
	*c = Cost(f)
	return nil
}

// Coordinate keeps non-finite values representable in memory (so the
// extractor can drop them) while still producing valid JSON on output.
type Coordinate float64

func (c Coordinate) Finite() bool {
	f := float64(c)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	if !c.Finite() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(c), 'f', -1, 64)), nil
}

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		*c = Coordinate(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*c = Coordinate(math.NaN())
		return nil
	}
	*c = Coordinate(f)
	return nil
}

type Coordinates struct {
	Lat Coordinate `json:"lat"`
	Lng Coordinate `json:"lng"`
}

// Valid reports whether both components are finite and the pair is not
// the (0,0) null-island placeholder models emit for unknown locations.
func (c Coordinates) Valid() bool {
	if !c.Lat.Finite() || !c.Lng.Finite() {
		return false
	}
	return c.Lat != 0 || c.Lng != 0
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TripRequest is the immutable user submission that seeds a generation.
type TripRequest struct {
	Destination     string    `json:"destination"`
	Dates           DateRange `json:"dates"`
	Budget          float64   `json:"budget"`
	NumPeople       int       `json:"numPeople"`
	Interests       string    `json:"interests"`
	AdditionalNotes string    `json:"additionalNotes,omitempty"`
}

const dateLayout = "2006-01-02"

// Validate checks the request invariants and applies the party-size
// default of 1.
func (t *TripRequest) Validate() error {
	if strings.TrimSpace(t.Destination) == "" {
		return fmt.Errorf("destination is required")
	}
	start, err := time.Parse(dateLayout, t.Dates.Start)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", t.Dates.Start, err)
	}
	end, err := time.Parse(dateLayout, t.Dates.End)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", t.Dates.End, err)
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s is before start date %s", t.Dates.End, t.Dates.Start)
	}
	if t.Budget <= 0 {
		return fmt.Errorf("budget must be positive")
	}
	if t.NumPeople == 0 {
		t.NumPeople = 1
	}
	if t.NumPeople < 1 {
		return fmt.Errorf("numPeople must be at least 1")
	}
	return nil
}

// Days returns the trip length in calendar days, start and end inclusive.
func (t *TripRequest) Days() int {
	start, err1 := time.Parse(dateLayout, t.Dates.Start)
	end, err2 := time.Parse(dateLayout, t.Dates.End)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// DateForDay returns the ISO date of the n-th trip day (0-based).
func (t *TripRequest) DateForDay(n int) string {
	start, err := time.Parse(dateLayout, t.Dates.Start)
	if err != nil {
		return ""
	}
	return start.AddDate(0, 0, n).Format(dateLayout)
}

type Transport struct {
	Method   string `json:"method"`
	Duration string `json:"duration"`
	Cost     Cost   `json:"cost"`
}

type Activity struct {
	ID          string      `json:"id,omitempty"`
	Time        string      `json:"time"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Cost        Cost        `json:"cost"`
	Coordinates Coordinates `json:"coordinates"`
	Transport   *Transport  `json:"transport,omitempty"`
	Distance    *float64    `json:"distance,omitempty"`
	SimilarTo   []string    `json:"similarTo,omitempty"`
}

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

type Meal struct {
	ID          string      `json:"id,omitempty"`
	Type        MealType    `json:"type"`
	Time        string      `json:"time"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Cost        Cost        `json:"cost"`
	Coordinates Coordinates `json:"coordinates"`
}

type AccommodationOption struct {
	Name                   string `json:"name"`
	Description            string `json:"description"`
	Type                   string `json:"type"`
	CostPerNight           Cost   `json:"cost_per_night"`
	DistanceToNextActivity string `json:"distance_to_next_activity,omitempty"`
}

type Day struct {
	Date                 string                `json:"date"`
	Activities           []Activity            `json:"activities"`
	Meals                []Meal                `json:"meals"`
	AccommodationOptions []AccommodationOption `json:"accommodation_options,omitempty"`
	DailyTotal           float64               `json:"dailyTotal"`
}

type CostBreakdown struct {
	Activities     float64 `json:"activities"`
	Food           float64 `json:"food"`
	Transportation float64 `json:"transportation"`
	Accommodation  float64 `json:"accommodation"`
}

// Itinerary is the canonical multi-day plan document. All totals are
// recomputed server-side; the model's arithmetic is never trusted.
type Itinerary struct {
	Days           []Day         `json:"days"`
	PerPersonTotal float64       `json:"perPersonTotal"`
	GroupTotal     float64       `json:"groupTotal"`
	CostBreakdown  CostBreakdown `json:"costBreakdown"`
}

// MapPoint is a read-only projection of an activity or meal for map
// display. Slice order doubles as route order.
type MapPoint struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	Description string      `json:"description"`
}

type GenerateItineraryResponse struct {
	Itinerary *Itinerary `json:"itinerary"`
	Locations []MapPoint `json:"locations"`
}

// EventContext describes the event under revision, mirroring the
// client-side context block sent alongside a chat instruction.
type EventContext struct {
	Type           string          `json:"type"` // "activity" or "meal"
	CurrentDetails json.RawMessage `json:"currentDetails"`
}

type ReviseEventRequest struct {
	Instruction string       `json:"instruction"`
	Context     EventContext `json:"context"`
	Itinerary   *Itinerary   `json:"itinerary"`
	NumPeople   int          `json:"numPeople,omitempty"`
}

type ReviseEventResponse struct {
	Message      string          `json:"message"`
	UpdatedEvent json.RawMessage `json:"updatedEvent,omitempty"`
	Itinerary    *Itinerary      `json:"itinerary,omitempty"`
}
