package timeutils

import (
	"fmt"
	"time"

	"github.com/imishinist/mlflow-runs/internal/models"
)

// TimestampLayout is how run and metric timestamps are printed.
const TimestampLayout = "2006-01-02 15:04:05"

// FromMillis converts a tracking-server timestamp (ms since epoch).
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// FormatMillis prints a timestamp in local time. Zero means unset and
// prints as an empty string.
func FormatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return FromMillis(ms).Format(TimestampLayout)
}

// FormatDuration prints the time between start and end the way the run
// table does: seconds, minutes, hours or days with one decimal.
func FormatDuration(startMs, endMs int64) string {
	if startMs == 0 || endMs == 0 || endMs < startMs {
		return ""
	}
	d := FromMillis(endMs).Sub(FromMillis(startMs))
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fmin", d.Minutes())
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	default:
		return fmt.Sprintf("%.1fd", d.Hours()/24)
	}
}

// AlignTimestamp aligns timestamp to the specified resolution and alignment
func AlignTimestamp(t time.Time, resolution string, alignment string) (time.Time, error) {
	var duration time.Duration

	switch resolution {
	case "1m":
		duration = time.Minute
	case "5m":
		duration = 5 * time.Minute
	case "1h":
		duration = time.Hour
	default:
		return t, fmt.Errorf("unsupported resolution: %s", resolution)
	}

	aligned := t.Truncate(duration)

	switch alignment {
	case "floor":
		return aligned, nil
	case "ceil":
		if t.After(aligned) {
			return aligned.Add(duration), nil
		}
		return aligned, nil
	case "round":
		if t.Sub(aligned) >= duration/2 {
			return aligned.Add(duration), nil
		}
		return aligned, nil
	default:
		return t, fmt.Errorf("unsupported alignment: %s", alignment)
	}
}

// AlignHistory buckets the timestamps of a metric history. An empty
// resolution leaves the history untouched.
func AlignHistory(history []models.Metric, resolution, alignment string) ([]models.Metric, error) {
	if resolution == "" {
		return history, nil
	}
	out := make([]models.Metric, len(history))
	for i, m := range history {
		aligned, err := AlignTimestamp(FromMillis(m.Timestamp), resolution, alignment)
		if err != nil {
			return nil, err
		}
		m.Timestamp = aligned.UnixMilli()
		out[i] = m
	}
	return out, nil
}

// CompareByStepAndTimestamp orders history points by step, then timestamp.
func CompareByStepAndTimestamp(a, b models.Metric) int {
	switch {
	case a.Step < b.Step:
		return -1
	case a.Step > b.Step:
		return 1
	}
	return CompareByTimestamp(a, b)
}

// CompareByTimestamp orders history points by wall-clock time.
func CompareByTimestamp(a, b models.Metric) int {
	switch {
	case a.Timestamp < b.Timestamp:
		return -1
	case a.Timestamp > b.Timestamp:
		return 1
	}
	return 0
}

// RelativeSeconds is the offset of ts from the earliest timestamp of a
// history, in seconds.
func RelativeSeconds(ts, minTs int64) float64 {
	return float64(ts-minTs) / 1000
}
