// Package history implements the status-history engine: worst-of-day
// reduction, the trailing 90-day window projection, and window backfill.
// All functions are pure: they take an immutable snapshot of a service's
// day buckets and return new values, so callers decide when and where the
// projection is computed.
package history

import (
	"math"
	"time"

	"github.com/mashkov/statusdeck/internal/domain"
)

// WindowDays is the fixed timeline window: today plus the 89 days before it.
const WindowDays = 90

// DateFormat is the bucket key format, a UTC calendar date.
const DateFormat = "2006-01-02"

// DayKey returns the UTC calendar-date key for a timestamp.
func DayKey(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// MidnightUTC truncates a timestamp to UTC midnight.
func MidnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// WorstOfDay reduces a day bucket to its single most severe status under
// the order down > degraded > operational. A bucket with no samples
// reduces to no_data, exactly like an absent bucket.
func WorstOfDay(bucket domain.DayBucket) domain.DailyStatus {
	worst := 0
	var label domain.DailyStatus = domain.DailyStatusNoData
	for _, sample := range bucket.Statuses {
		if rank := sample.Value.Severity(); rank > worst {
			worst = rank
			label = domain.DailyStatus(sample.Value)
		}
	}
	return label
}

// ProjectWindow maps the buckets onto the trailing window ending at today:
// exactly WindowDays entries, one per UTC calendar day, oldest first.
// Days without a matching bucket project as no_data.
func ProjectWindow(buckets []domain.DayBucket, today time.Time) []domain.DailyWorstStatus {
	byDay := make(map[string]domain.DayBucket, len(buckets))
	for _, b := range buckets {
		byDay[DayKey(b.Date)] = b
	}

	end := MidnightUTC(today)
	projected := make([]domain.DailyWorstStatus, 0, WindowDays)
	for i := WindowDays - 1; i >= 0; i-- {
		day := end.AddDate(0, 0, -i)
		key := DayKey(day)
		status := domain.DailyStatusNoData
		if bucket, ok := byDay[key]; ok {
			status = WorstOfDay(bucket)
		}
		projected = append(projected, domain.DailyWorstStatus{Date: key, Status: status})
	}
	return projected
}

// UptimeRatio returns the share of projected days labeled operational as a
// percentage rounded to two decimals. Degraded, down and no_data days all
// count against uptime the same way.
func UptimeRatio(projected []domain.DailyWorstStatus) float64 {
	if len(projected) == 0 {
		return 0
	}
	operational := 0
	for _, day := range projected {
		if day.Status == domain.DailyStatusOperational {
			operational++
		}
	}
	pct := float64(operational) / float64(len(projected)) * 100
	return math.Round(pct*100) / 100
}

// SeedWindow builds the initial history for a new service: 89 explicitly
// empty prior days plus today with one synthetic sample of the declared
// initial status. Creation asserts a known-good state; passing days with
// no activity stay "no data" instead.
func SeedWindow(now time.Time, initial domain.ServiceStatus) []domain.DayBucket {
	today := MidnightUTC(now)
	buckets := make([]domain.DayBucket, 0, WindowDays)
	for i := WindowDays - 1; i >= 1; i-- {
		buckets = append(buckets, domain.DayBucket{
			Date:     today.AddDate(0, 0, -i),
			Statuses: []domain.StatusSample{},
		})
	}
	buckets = append(buckets, domain.DayBucket{
		Date:     today,
		Statuses: []domain.StatusSample{{Value: initial, Timestamp: now.UTC()}},
	})
	return buckets
}

// Backfill inserts empty buckets for every day of the trailing window that
// has none, keeping the history contiguous as time advances. Existing
// buckets are never touched and the second call for the same day is a
// no-op, so the repair is idempotent. Returns the (possibly new) slice and
// whether anything was inserted.
func Backfill(buckets []domain.DayBucket, today time.Time) ([]domain.DayBucket, bool) {
	seen := make(map[string]struct{}, len(buckets))
	for _, b := range buckets {
		seen[DayKey(b.Date)] = struct{}{}
	}

	end := MidnightUTC(today)
	changed := false
	for i := WindowDays - 1; i >= 0; i-- {
		day := end.AddDate(0, 0, -i)
		if _, ok := seen[DayKey(day)]; ok {
			continue
		}
		buckets = append(buckets, domain.DayBucket{Date: day, Statuses: []domain.StatusSample{}})
		changed = true
	}
	return buckets, changed
}

// AppendSample records a status transition: it finds or creates the bucket
// for now's UTC day and appends one sample. Past buckets are never
// modified; samples keep insertion order within their day.
func AppendSample(buckets []domain.DayBucket, value domain.ServiceStatus, now time.Time) []domain.DayBucket {
	key := DayKey(now)
	sample := domain.StatusSample{Value: value, Timestamp: now.UTC()}

	out := make([]domain.DayBucket, len(buckets))
	copy(out, buckets)
	for i := range out {
		if DayKey(out[i].Date) == key {
			statuses := make([]domain.StatusSample, len(out[i].Statuses), len(out[i].Statuses)+1)
			copy(statuses, out[i].Statuses)
			out[i].Statuses = append(statuses, sample)
			return out
		}
	}
	return append(out, domain.DayBucket{
		Date:     MidnightUTC(now),
		Statuses: []domain.StatusSample{sample},
	})
}

// TrailingWindow returns the buckets that fall inside the window ending at
// today, preserving order. Used when a deleted service's last 90 days are
// reported one final time.
func TrailingWindow(buckets []domain.DayBucket, today time.Time) []domain.DayBucket {
	start := MidnightUTC(today).AddDate(0, 0, -(WindowDays - 1))
	out := make([]domain.DayBucket, 0, WindowDays)
	for _, b := range buckets {
		if !MidnightUTC(b.Date).Before(start) {
			out = append(out, b)
		}
	}
	return out
}
