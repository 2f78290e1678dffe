package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// Schedule is an ordered list of intents. The zero value is an empty schedule.
type Schedule struct {
	items []ScheduleItem
}

// NewSchedule copies items into a schedule.
func NewSchedule(items []ScheduleItem) Schedule {
	return Schedule{items: cloneItems(items)}
}

// Items returns a copy of the schedule entries.
func (s Schedule) Items() []ScheduleItem {
	return cloneItems(s.items)
}

func (s Schedule) Len() int {
	return len(s.items)
}

// Without returns a schedule with the entry at index removed.
func (s Schedule) Without(index int) (Schedule, error) {
	if index < 0 || index >= len(s.items) {
		return s, fmt.Errorf("remove schedule item %d of %d: %w", index, len(s.items), ErrIndexOutOfRange)
	}

	items := make([]ScheduleItem, 0, len(s.items)-1)
	items = append(items, s.items[:index]...)
	items = append(items, s.items[index+1:]...)
	return Schedule{items: items}, nil
}

// MatchAt returns the first item whose range contains the wall clock minute of
// t. A single-item schedule is treated as always active. The returned pointer
// refers to a copy.
func (s Schedule) MatchAt(t time.Time) *ScheduleItem {
	minute := t.Hour()*60 + t.Minute()

	for i := range s.items {
		if itemContains(s.items[i], minute) {
			item := cloneItem(s.items[i])
			return &item
		}
	}

	if len(s.items) == 1 {
		item := cloneItem(s.items[0])
		return &item
	}
	return nil
}

func itemContains(item ScheduleItem, minute int) bool {
	start, ok := ParseClock(item.Start)
	if !ok {
		return false
	}
	end, ok := ParseClock(item.End)
	if !ok {
		return false
	}

	if start <= end {
		return minute >= start && minute < end
	}
	// Crosses midnight.
	return minute >= start || minute < end
}

// ParseClock parses an H:MM or HH:MM wall clock time into minutes after
// midnight. "24:00" is accepted as the end of the day.
func ParseClock(value string) (int, bool) {
	hours, minutes, found := strings.Cut(strings.TrimSpace(value), ":")
	if !found || len(minutes) != 2 || hours == "" || len(hours) > 2 {
		return 0, false
	}

	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, false
	}

	if h < 0 || m < 0 || m > 59 {
		return 0, false
	}
	total := h*60 + m
	if total > minutesPerDay {
		return 0, false
	}
	return total, true
}

// FormatClock renders minutes after midnight as zero-padded HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeItem trims queries, drops empty ones and zero-pads the times. It
// reports false when the item cannot be used.
func NormalizeItem(item ScheduleItem) (ScheduleItem, bool) {
	start, ok := ParseClock(item.Start)
	if !ok {
		return ScheduleItem{}, false
	}
	end, ok := ParseClock(item.End)
	if !ok {
		return ScheduleItem{}, false
	}

	queries := make([]string, 0, len(item.Queries))
	for _, q := range item.Queries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return ScheduleItem{}, false
	}

	return ScheduleItem{
		Start:         FormatClock(start),
		End:           FormatClock(end),
		Queries:       queries,
		PriorityTrack: strings.TrimSpace(item.PriorityTrack),
		Thought:       strings.TrimSpace(item.Thought),
	}, true
}

func cloneItem(item ScheduleItem) ScheduleItem {
	item.Queries = append([]string(nil), item.Queries...)
	return item
}

func cloneItems(items []ScheduleItem) []ScheduleItem {
	if items == nil {
		return nil
	}
	out := make([]ScheduleItem, len(items))
	for i := range items {
		out[i] = cloneItem(items[i])
	}
	return out
}
