package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"aidj/internal/core"
)

const systemPrompt = `# Role
You are a DJ assistant. Turn the listener's request into a time schedule of
Spotify search intents. Each entry has a start time, an end time, 3-5 search
queries and a one sentence "thought" explaining the choice.

# Rules
1. Times are 24-hour HH:MM. A range ending before it starts crosses midnight.
2. If the request says "from now on" or "future only", do not change slots that already ended.
3. Output raw JSON only. No prose, no markdown.

# Output Format
[{"start":"00:00","end":"14:00","queries":["chill instrumental","artist:\"Bill Evans\"","genre:jazz"],"priorityTrack":"artist:\"Bill Evans\" Waltz for Debby","thought":"Quiet jazz for the morning."},
 {"start":"14:00","end":"23:59","queries":["upbeat dance","genre:house","artist:\"Daft Punk\""],"thought":"Afternoon energy."}]

# Search Syntax
- genre:  "genre:jazz"
- year:   "year:1980-1989"
- artist: "artist:\"Queen\"" (always quote multi-word names)

# Query Guidance
- Use English keywords for genres, moods and eras; they match best on Spotify.
- Use the native spelling for specific artists and song titles (e.g. "宇多田ヒカル").
- Mix specific artist or song queries with broader genre or mood queries. Do not repeat queries.
- If the listener names an artist, every query must include that artist.
- Prefer songs with a strong cultural association to the request.
- priorityTrack is optional: set it to a query for the one song that best captures the request,
  using the song's exact native title.
- Write "thought" in the language of the request.`

const mergeRules = `# Task: Merge Request into Schedule
1. The new request wins: overwrite the time ranges it covers.
2. Keep existing entries that do not conflict.
3. Split entries when the request covers part of them
   (e.g. 14:00-16:00 and a request at 15:00 becomes 14:00-15:00 old, 15:00-16:00 new).
4. Return the COMPLETE updated schedule.`

// BuildUserPrompt renders the per-request context: the local date and time,
// the request, the listener's standing preferences and the schedule to merge
// into.
func BuildUserPrompt(now time.Time, request string, current []core.ScheduleItem, preference string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current Context: %s (%s) %s\n", now.Format("2006-01-02"), now.Weekday(), now.Format("15:04"))
	fmt.Fprintf(&b, "User Request: %s", request)

	if preference = strings.TrimSpace(preference); preference != "" {
		fmt.Fprintf(&b, "\n\n# Preferences (Strict)\n%s", preference)
	}

	if len(current) > 0 {
		existing, err := json.Marshal(current)
		if err == nil {
			fmt.Fprintf(&b, "\n\nExisting Schedule:\n%s\n\n%s", existing, mergeRules)
		}
	}

	return b.String()
}
