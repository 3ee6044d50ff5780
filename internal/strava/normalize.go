package strava

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	metersPerKilometer = 1000
	secondsPerMinute   = 60
	mpsToKmph          = 3.6
)

// ActivityHeaders are the column names of the activity table, in order.
var ActivityHeaders = []string{
	"id", "name", "sport_type", "start_date",
	"distance_km", "moving_time_min", "elapsed_time_min",
	"average_speed_kmph", "max_speed_kmph",
	"total_elevation_gain_m", "average_heartrate", "max_heartrate", "calories",
	"trainer", "commute",
}

// Optional is a measurement that may be absent from the source record.
// An absent value renders as the empty string, never as zero.
type Optional struct {
	Value float64
	Valid bool
}

// Some returns a present [Optional].
func Some(v float64) Optional { return Optional{Value: v, Valid: true} }

func (o Optional) String() string {
	if !o.Valid {
		return ""
	}
	return strconv.FormatFloat(o.Value, 'f', -1, 64)
}

func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte(`""`), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == `""` || s == "null" {
		*o = Optional{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// ActivityRow is a normalized activity. Every row has the same fields regardless of which optional
// fields the source record carried.
type ActivityRow struct {
	ID                  int64    `json:"id"`
	Name                string   `json:"name"`
	SportType           string   `json:"sport_type"`
	StartDate           string   `json:"start_date"`
	DistanceKM          float64  `json:"distance_km"`
	MovingTimeMin       float64  `json:"moving_time_min"`
	ElapsedTimeMin      float64  `json:"elapsed_time_min"`
	AverageSpeedKMPH    float64  `json:"average_speed_kmph"`
	MaxSpeedKMPH        float64  `json:"max_speed_kmph"`
	TotalElevationGainM Optional `json:"total_elevation_gain_m"`
	AverageHeartrate    Optional `json:"average_heartrate"`
	MaxHeartrate        Optional `json:"max_heartrate"`
	Calories            Optional `json:"calories"`
	Trainer             bool     `json:"trainer"`
	Commute             bool     `json:"commute"`
}

// Fields returns the row rendered as strings in [ActivityHeaders] order.
func (r ActivityRow) Fields() []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Name,
		r.SportType,
		r.StartDate,
		formatFloat(r.DistanceKM),
		formatFloat(r.MovingTimeMin),
		formatFloat(r.ElapsedTimeMin),
		formatFloat(r.AverageSpeedKMPH),
		formatFloat(r.MaxSpeedKMPH),
		r.TotalElevationGainM.String(),
		r.AverageHeartrate.String(),
		r.MaxHeartrate.String(),
		r.Calories.String(),
		strconv.FormatBool(r.Trainer),
		strconv.FormatBool(r.Commute),
	}
}

// Normalize flattens the record at position index of the fetched sequence.
//
// id, name and start_date_local are mandatory; a record lacking one fails with *[MissingFieldError].
// Every other field is optional.
func Normalize(raw RawRecord, index int) (ActivityRow, error) {
	id, ok := toInt64(raw["id"])
	if !ok {
		return ActivityRow{}, &MissingFieldError{Field: "id", Index: index}
	}
	name, ok := raw["name"]
	if !ok || name == nil {
		return ActivityRow{}, &MissingFieldError{Field: "name", Index: index}
	}
	start, ok := raw["start_date_local"]
	if !ok || start == nil {
		return ActivityRow{}, &MissingFieldError{Field: "start_date_local", Index: index}
	}

	return ActivityRow{
		ID:                  id,
		Name:                toString(name),
		SportType:           sportType(raw),
		StartDate:           toString(start),
		DistanceKM:          round(number(raw, "distance")/metersPerKilometer, 2),
		MovingTimeMin:       round(number(raw, "moving_time")/secondsPerMinute, 1),
		ElapsedTimeMin:      round(number(raw, "elapsed_time")/secondsPerMinute, 1),
		AverageSpeedKMPH:    round(number(raw, "average_speed")*mpsToKmph, 2),
		MaxSpeedKMPH:        round(number(raw, "max_speed")*mpsToKmph, 2),
		TotalElevationGainM: optional(raw, "total_elevation_gain"),
		AverageHeartrate:    optional(raw, "average_heartrate"),
		MaxHeartrate:        optional(raw, "max_heartrate"),
		Calories:            optional(raw, "calories"),
		Trainer:             flag(raw, "trainer"),
		Commute:             flag(raw, "commute"),
	}, nil
}

// NormalizeAll normalizes records in order, aborting at the first malformed record.
func NormalizeAll(records []RawRecord) ([]ActivityRow, error) {
	rows := make([]ActivityRow, 0, len(records))
	for i, r := range records {
		row, err := Normalize(r, i)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sportType prefers sport_type and falls back to the legacy type field.
func sportType(raw RawRecord) string {
	for _, key := range []string{"sport_type", "type"} {
		if v, ok := raw[key]; ok && v != nil {
			if s := toString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func number(raw RawRecord, key string) float64 {
	f, _ := toFloat(raw[key])
	return f
}

func optional(raw RawRecord, key string) Optional {
	if f, ok := toFloat(raw[key]); ok {
		return Some(f)
	}
	return Optional{}
}

func flag(raw RawRecord, key string) bool {
	switch v := raw[key].(type) {
	case bool:
		return v
	case nil:
		return false
	default:
		f, ok := toFloat(v)
		return ok && f != 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		return int64(f), err == nil
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
