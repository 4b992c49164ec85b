package itinerary

import (
	"fmt"
	"strings"

	"tripai/internal/types"
)

const systemPrompt = `You are a travel planning assistant. You must respond ONLY with valid JSON, no explanatory text. Your response must exactly follow the specified JSON format.`

func generateItineraryPrompt(trip *types.TripRequest) string {
	notes := trip.AdditionalNotes
	if notes == "" {
		notes = "None"
	}
	return fmt.Sprintf(`
        Generate a travel itinerary with these requirements:
        - Destination: %s
        - Duration: %d days, from %s to %s
        - Total budget: $%.2f for the whole group
        - Number of people: %d
        - Interests: %s
        - Additional notes: %s

        Return the response STRICTLY as a JSON object with:
        {
        "days": [
            {
            "date": "YYYY-MM-DD",
            "activities": [
                {
                "time": "HH:MM",
                "name": "Specific Location Name",
                "description": "Brief description",
                "cost": 100,
                "coordinates": { "lat": 40.4167, "lng": -3.7033 },
                "transport": { "method": "walk", "duration": "15 min", "cost": 0 }
                }
            ],
            "meals": [
                {
                "type": "breakfast",
                "time": "HH:MM",
                "name": "Specific Restaurant Name",
                "description": "Brief description",
                "cost": 15,
                "coordinates": { "lat": 40.4167, "lng": -3.7033 }
                }
            ],
            "accommodation_options": [
                {
                "name": "Hotel Name",
                "description": "Brief description",
                "type": "hotel",
                "cost_per_night": 80,
                "distance_to_next_activity": "1 km"
                }
            ]
            }
        ]
        }

        Rules:
        1. All costs are per person in USD, numbers without quotes.
        2. Never repeat an activity or meal name anywhere in the itinerary.
        3. Distribute activity types evenly across the days.
        4. Every location must lie within 50 km of the center of %s.
        5. Activity times must fall between 08:00 and 22:00.
        6. Format dates as YYYY-MM-DD and times as 24-hour HH:MM.
        7. Include breakfast, lunch and dinner for every day.
        8. Use real coordinates for actual locations.
        9. Respond only with the JSON, no additional text.`,
		trip.Destination, trip.Days(), trip.Dates.Start, trip.Dates.End,
		trip.Budget, trip.NumPeople, trip.Interests, notes, trip.Destination)
}

// appendAvoidList augments the original user prompt with an explicit
// exclusion instruction for the single uniqueness retry.
func appendAvoidList(userPrompt string, usedNames []string) string {
	return fmt.Sprintf(`%s

        IMPORTANT: your previous answer repeated some names. Generate a fresh itinerary and do NOT use any of these names again: [%s].
        Every activity and meal name must be unique across the whole itinerary.`,
		userPrompt, strings.Join(usedNames, "; "))
}

func generateRevisionPrompt(instruction string, eventCtx types.EventContext) string {
	kind := "activity"
	if eventCtx.Type == "meal" {
		kind = "meal"
	}
	return fmt.Sprintf(`
        The user wants to modify this %s in their travel itinerary:
        %s

        The requested change is: "%s"

        Return the response STRICTLY as a JSON object with:
        {
        "message": "A short conversational reply describing what you changed or why you could not.",
        "updatedEvent": { the full replacement %s object with the same fields as the current one, or null if no change applies }
        }

        Rules:
        1. Keep the "id" field of the %s unchanged if present.
        2. All costs are per person in USD, numbers without quotes.
        3. Format times as 24-hour HH:MM.
        4. Respond only with the JSON, no additional text.`,
		kind, string(eventCtx.CurrentDetails), instruction, kind, kind)
}
