package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"aidj/internal/core"
)

// listFields are the object keys checked, in order, for the schedule when
// the model wraps it in an object.
var listFields = []string{"schedule", "items", "list"}

var errNoList = errors.New("no schedule list in response")

type rawItem struct {
	Start         string     `json:"start"`
	End           string     `json:"end"`
	Query         string     `json:"query"`
	Queries       stringList `json:"queries"`
	PriorityTrack string     `json:"priorityTrack"`
	Thought       string     `json:"thought"`
}

// stringList accepts either a JSON array of strings or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = nil
		if single != "" {
			*l = stringList{single}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// ParseSchedule extracts schedule items from a model response. Malformed
// output yields an empty schedule; individual unusable entries are dropped.
func ParseSchedule(raw string, logger *zap.Logger) []core.ScheduleItem {
	payload := extractJSON(raw)
	if payload == "" {
		logger.Warn("Model response contains no JSON", zap.String("content", raw))
		return []core.ScheduleItem{}
	}

	entries, err := scheduleEntries([]byte(payload))
	if err != nil {
		logger.Warn("Failed to parse model response", zap.Error(err), zap.String("content", raw))
		return []core.ScheduleItem{}
	}

	items := make([]core.ScheduleItem, 0, len(entries))
	for i, entry := range entries {
		var item rawItem
		if err := json.Unmarshal(entry, &item); err != nil {
			logger.Debug("Skipping undecodable schedule entry", zap.Int("index", i), zap.Error(err))
			continue
		}

		queries := []string(item.Queries)
		if len(queries) == 0 && item.Query != "" {
			queries = []string{item.Query}
		}

		normalized, ok := core.NormalizeItem(core.ScheduleItem{
			Start:         item.Start,
			End:           item.End,
			Queries:       queries,
			PriorityTrack: item.PriorityTrack,
			Thought:       item.Thought,
		})
		if !ok {
			logger.Debug("Skipping invalid schedule entry",
				zap.Int("index", i),
				zap.String("start", item.Start),
				zap.String("end", item.End))
			continue
		}
		items = append(items, normalized)
	}

	return items
}

// extractJSON strips markdown fences and surrounding prose, returning the
// outermost JSON array or object.
func extractJSON(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.IndexAny(cleaned, "[{")
	if start < 0 {
		return ""
	}
	closing := "]"
	if cleaned[start] == '{' {
		closing = "}"
	}
	end := strings.LastIndex(cleaned, closing)
	if end < start {
		return ""
	}
	return cleaned[start : end+1]
}

func scheduleEntries(payload []byte) ([]json.RawMessage, error) {
	if payload[0] == '[' {
		var entries []json.RawMessage
		if err := json.Unmarshal(payload, &entries); err != nil {
			return nil, fmt.Errorf("decode schedule array: %w", err)
		}
		return entries, nil
	}

	fields, order, err := objectFields(payload)
	if err != nil {
		return nil, err
	}

	for _, name := range listFields {
		if value, ok := fields[name]; ok && isArray(value) {
			return decodeArray(value)
		}
	}
	for _, name := range order {
		if isArray(fields[name]) {
			return decodeArray(fields[name])
		}
	}
	return nil, errNoList
}

// objectFields decodes a JSON object and also returns its keys in document order.
func objectFields(payload []byte) (map[string]json.RawMessage, []string, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	if _, err := decoder.Token(); err != nil {
		return nil, nil, fmt.Errorf("decode schedule object: %w", err)
	}

	fields := make(map[string]json.RawMessage)
	var order []string
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decode schedule object: %w", err)
		}
		key, ok := token.(string)
		if !ok {
			return nil, nil, fmt.Errorf("decode schedule object: unexpected key %v", token)
		}

		var value json.RawMessage
		if err := decoder.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("decode schedule field %q: %w", key, err)
		}
		if _, seen := fields[key]; !seen {
			order = append(order, key)
		}
		fields[key] = value
	}
	return fields, order, nil
}

func isArray(value json.RawMessage) bool {
	trimmed := bytes.TrimSpace(value)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func decodeArray(value json.RawMessage) ([]json.RawMessage, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(value, &entries); err != nil {
		return nil, fmt.Errorf("decode schedule list: %w", err)
	}
	return entries, nil
}
