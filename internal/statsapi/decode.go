package statsapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Walk a JSON object calling fn for every member, in document order.
// A null or empty document is treated as an empty object
func decodeOrdered(data []byte, fn func(key string, value json.RawMessage) error) error {

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	token, err := dec.Token()
	if err != nil {
		return err
	}
	if token == nil {
		return nil
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected a JSON object, got %v", token)
	}
	for dec.More() {
		token, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("expected an object key, got %v", token)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	// closing brace
	_, err = dec.Token()
	return err
}

// Render a scalar JSON value the way it should appear in an embed.
// Numbers keep their literal form and null renders as an empty string
func renderValue(raw json.RawMessage) (string, error) {

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return "", err
	}
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("value %s is not a scalar", string(raw))
	}
}

// A value that cannot be rendered leaves the field empty, so the row is
// dropped. It means the service changed its format, not that data is missing
func reportValue(metric string, field string, raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	value, err := renderValue(raw)
	if err != nil {
		log.Warn().Err(err).Str("metric", metric).Str("field", field).Msg("Unexpected value in report")
		return ""
	}
	return value
}

func DecodeReport(data []byte) (Report, error) {

	var envelope struct {
		Report json.RawMessage `json:"report"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	report := Report{}
	err := decodeOrdered(envelope.Report, func(metric string, value json.RawMessage) error {
		var fields struct {
			MaxValue json.RawMessage `json:"Max Value"`
			Name     json.RawMessage `json:"Name"`
		}
		// A row that is not an object has neither value nor name
		if json.Unmarshal(value, &fields) != nil {
			report = append(report, ReportRow{Metric: metric})
			return nil
		}
		row := ReportRow{Metric: metric}
		row.TopValue = reportValue(metric, "Max Value", fields.MaxValue)
		row.TopName = reportValue(metric, "Name", fields.Name)
		report = append(report, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func DecodeStats(data []byte) ([]Stat, error) {

	var envelope struct {
		Stats json.RawMessage `json:"stats"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	var stats []Stat
	err := decodeOrdered(envelope.Stats, func(name string, raw json.RawMessage) error {
		value, err := renderValue(raw)
		if err != nil {
			return err
		}
		stats = append(stats, Stat{Name: name, Value: value})
		return nil
	})
	return stats, err
}

func DecodeRankings(data []byte) ([]Ranking, error) {

	var envelope struct {
		Rankings json.RawMessage `json:"rankings"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	var rankings []Ranking
	err := decodeOrdered(envelope.Rankings, func(stat string, raw json.RawMessage) error {
		var entries []struct {
			Value json.RawMessage `json:"value"`
			Name  string          `json:"name"`
		}
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("rankings for %s: %w", stat, err)
		}
		ranking := Ranking{Stat: stat}
		for _, entry := range entries {
			value := ""
			if len(entry.Value) > 0 {
				rendered, err := renderValue(entry.Value)
				if err != nil {
					log.Warn().Err(err).Str("stat", stat).Msg("Unexpected value in rankings")
				}
				value = rendered
			}
			ranking.Entries = append(ranking.Entries, RankingEntry{Value: value, Name: entry.Name})
		}
		rankings = append(rankings, ranking)
		return nil
	})
	return rankings, err
}
