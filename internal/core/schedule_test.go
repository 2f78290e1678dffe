package core

import (
	"errors"
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 5, 1, hour, minute, 30, 0, time.Local)
}

func TestSchedule_MatchAt(t *testing.T) {
	schedule := NewSchedule([]ScheduleItem{
		{Start: "06:00", End: "09:00", Queries: []string{"morning jazz"}},
		{Start: "09:00", End: "12:00", Queries: []string{"focus piano"}},
		{Start: "23:00", End: "01:00", Queries: []string{"late night ambient"}},
	})

	tests := []struct {
		name string
		time time.Time
		want string
	}{
		{"start is inclusive", at(6, 0), "morning jazz"},
		{"inside first", at(8, 59), "morning jazz"},
		{"end is exclusive", at(9, 0), "focus piano"},
		{"gap returns nothing", at(13, 0), ""},
		{"wraparound before midnight", at(23, 30), "late night ambient"},
		{"wraparound after midnight", at(0, 30), "late night ambient"},
		{"wraparound end exclusive", at(1, 0), ""},
		{"wraparound does not match noon", at(12, 0), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := schedule.MatchAt(tt.time)
			if tt.want == "" {
				if got != nil {
					t.Errorf("MatchAt(%s) = %v, want nil", tt.time.Format("15:04"), got.Queries)
				}
				return
			}
			if got == nil {
				t.Fatalf("MatchAt(%s) = nil, want %q", tt.time.Format("15:04"), tt.want)
			}
			if got.Queries[0] != tt.want {
				t.Errorf("MatchAt(%s) = %q, want %q", tt.time.Format("15:04"), got.Queries[0], tt.want)
			}
		})
	}
}

func TestSchedule_SingleItemAlwaysActive(t *testing.T) {
	schedule := NewSchedule([]ScheduleItem{
		{Start: "10:00", End: "11:00", Queries: []string{"only"}},
	})

	for _, hour := range []int{0, 5, 10, 15, 23} {
		got := schedule.MatchAt(at(hour, 17))
		if got == nil || got.Queries[0] != "only" {
			t.Errorf("single item schedule should match at %02d:17, got %v", hour, got)
		}
	}
}

func TestSchedule_FirstMatchWins(t *testing.T) {
	schedule := NewSchedule([]ScheduleItem{
		{Start: "10:00", End: "12:00", Queries: []string{"first"}},
		{Start: "11:00", End: "13:00", Queries: []string{"second"}},
	})

	got := schedule.MatchAt(at(11, 30))
	if got == nil || got.Queries[0] != "first" {
		t.Errorf("expected first overlapping item, got %v", got)
	}
}

func TestSchedule_EmptyAndInvalid(t *testing.T) {
	var empty Schedule
	if empty.MatchAt(at(12, 0)) != nil {
		t.Error("empty schedule should not match")
	}

	broken := NewSchedule([]ScheduleItem{
		{Start: "noon", End: "13:00", Queries: []string{"broken"}},
		{Start: "14:00", End: "15:00", Queries: []string{"fine"}},
	})
	if broken.MatchAt(at(12, 30)) != nil {
		t.Error("item with invalid time should never match")
	}
}

func TestSchedule_MatchReturnsCopy(t *testing.T) {
	schedule := NewSchedule([]ScheduleItem{{Start: "00:00", End: "23:59", Queries: []string{"a"}}})

	got := schedule.MatchAt(at(1, 0))
	got.Queries[0] = "mutated"

	if schedule.Items()[0].Queries[0] != "a" {
		t.Error("MatchAt must not expose internal state")
	}
}

func TestSchedule_Without(t *testing.T) {
	schedule := NewSchedule([]ScheduleItem{
		{Start: "00:00", End: "08:00", Queries: []string{"a"}},
		{Start: "08:00", End: "16:00", Queries: []string{"b"}},
		{Start: "16:00", End: "00:00", Queries: []string{"c"}},
	})

	updated, err := schedule.Without(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Len() != 2 || updated.Items()[1].Queries[0] != "c" {
		t.Errorf("unexpected schedule after removal: %+v", updated.Items())
	}
	if schedule.Len() != 3 {
		t.Error("Without must not modify the original schedule")
	}

	for _, index := range []int{-1, 3} {
		same, err := schedule.Without(index)
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Without(%d) error = %v, want ErrIndexOutOfRange", index, err)
		}
		if same.Len() != 3 {
			t.Errorf("Without(%d) should leave the schedule untouched", index)
		}
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"00:00", 0, true},
		{"9:05", 545, true},
		{"23:59", 1439, true},
		{"24:00", 1440, true},
		{" 12:30 ", 750, true},
		{"24:01", 0, false},
		{"12:60", 0, false},
		{"12", 0, false},
		{"ab:cd", 0, false},
		{"12:5", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseClock(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseClock(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNormalizeItem(t *testing.T) {
	item, ok := NormalizeItem(ScheduleItem{
		Start:         "7:00",
		End:           "9:30",
		Queries:       []string{" morning jazz ", "", "bossa nova"},
		PriorityTrack: " Take Five ",
	})
	if !ok {
		t.Fatal("expected item to be valid")
	}
	if item.Start != "07:00" || item.End != "09:30" {
		t.Errorf("times not normalized: %s-%s", item.Start, item.End)
	}
	if len(item.Queries) != 2 || item.Queries[0] != "morning jazz" {
		t.Errorf("queries not cleaned: %v", item.Queries)
	}
	if item.PriorityTrack != "Take Five" {
		t.Errorf("priority track not trimmed: %q", item.PriorityTrack)
	}

	if _, ok := NormalizeItem(ScheduleItem{Start: "07:00", End: "08:00", Queries: []string{" "}}); ok {
		t.Error("item without queries should be rejected")
	}
	if _, ok := NormalizeItem(ScheduleItem{Start: "7", End: "08:00", Queries: []string{"x"}}); ok {
		t.Error("item with invalid start should be rejected")
	}
}

func TestScheduleItem_Signature(t *testing.T) {
	tests := []struct {
		name string
		item ScheduleItem
		want string
	}{
		{"single query", ScheduleItem{Queries: []string{"jazz"}}, `{"q":["jazz"]}`},
		{"multiple queries", ScheduleItem{Queries: []string{"jazz", "soul"}}, `{"q":["jazz","soul"]}`},
		{"with priority", ScheduleItem{Queries: []string{"jazz"}, PriorityTrack: "So What"}, `{"q":["jazz"],"p":"So What"}`},
		{"no queries", ScheduleItem{}, ""},
		{"priority without queries", ScheduleItem{PriorityTrack: "So What"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.Signature(); got != tt.want {
				t.Errorf("Signature() = %q, want %q", got, tt.want)
			}
		})
	}

	a := ScheduleItem{Queries: []string{"jazz"}, Thought: "calm", Start: "01:00"}
	b := ScheduleItem{Queries: []string{"jazz"}, Thought: "different", Start: "05:00"}
	if a.Signature() != b.Signature() {
		t.Error("signature must only depend on queries and priority track")
	}
}

func TestScheduleItem_SignatureDistinguishesIntents(t *testing.T) {
	tests := []struct {
		name string
		a, b ScheduleItem
	}{
		{
			name: "priority track vs extra query",
			a:    ScheduleItem{Queries: []string{"jazz", "So What"}},
			b:    ScheduleItem{Queries: []string{"jazz"}, PriorityTrack: "So What"},
		},
		{
			name: "separator inside a query",
			a:    ScheduleItem{Queries: []string{"a|b"}},
			b:    ScheduleItem{Queries: []string{"a", "b"}},
		},
		{
			name: "query order",
			a:    ScheduleItem{Queries: []string{"jazz", "soul"}},
			b:    ScheduleItem{Queries: []string{"soul", "jazz"}},
		},
		{
			name: "priority track changed",
			a:    ScheduleItem{Queries: []string{"jazz"}, PriorityTrack: "So What"},
			b:    ScheduleItem{Queries: []string{"jazz"}, PriorityTrack: "Blue in Green"},
		},
		{
			name: "quotes and commas",
			a:    ScheduleItem{Queries: []string{`a","b`}},
			b:    ScheduleItem{Queries: []string{"a", "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a.Signature() == tt.b.Signature() {
				t.Errorf("different intents share signature %q", tt.a.Signature())
			}
		})
	}
}
