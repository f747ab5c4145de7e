package tracks

import (
	"slices"
	"time"
)

const (
	DefaultGoalKm = 365.0

	// doneShare is the share of the cumulative plan the total distance must
	// exceed for a planned day to count as done.
	doneShare = 0.9

	scheduleHorizon = (31*4 - 4) * 24 * time.Hour
)

// DefaultPlanStart is the Monday the training plan starts on.
var DefaultPlanStart = time.Date(2016, time.May, 30, 0, 0, 0, 0, time.UTC)

type DayStatus int

const (
	StatusRest DayStatus = iota
	StatusDone
	StatusMissed
	StatusUpcoming
)

func (s DayStatus) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusMissed:
		return "missed"
	case StatusUpcoming:
		return "upcoming"
	default:
		return "rest"
	}
}

// Day is one calendar day of the training plan.
type Day struct {
	When       time.Time
	DistanceKm float64
	Status     DayStatus
	Today      bool
}

// lerp moves from start to end as value goes from 0 to max, then holds end.
func lerp(start, end, value, max float64) float64 {
	p := value / max
	if p > 1 {
		p = 1
	}
	return start + (end-start)*p
}

// PlannedKm is the distance planned for day. Tuesday and Thursday ramp up
// over two weeks, Saturday over five and the Sunday long run over sixteen.
func PlannedKm(start, day time.Time) float64 {
	if day.Before(start) {
		return 0
	}

	weeks := float64(int(day.Sub(start).Hours() / 24 / 7))
	switch day.Weekday() {
	case time.Tuesday, time.Thursday:
		return lerp(4, 7, weeks, 2)
	case time.Saturday:
		return lerp(6, 10, weeks, 5)
	case time.Sunday:
		return lerp(7, 25, weeks, 16)
	default:
		return 0
	}
}

// Schedule lays out the plan from start until about four months after now.
// A planned day is done while totalKm stays above 90% of the distance planned
// up to and including that day.
func Schedule(start time.Time, totalKm float64, now time.Time) []Day {
	start = midnight(start)
	today := midnight(now)
	end := now.Add(scheduleHorizon)

	var days []Day
	var planned float64
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		d := Day{
			When:       day,
			DistanceKm: PlannedKm(start, day),
			Today:      day.Equal(today),
		}
		planned += d.DistanceKm

		switch {
		case d.DistanceKm == 0:
			d.Status = StatusRest
		case totalKm > planned*doneShare:
			d.Status = StatusDone
		case now.After(day):
			d.Status = StatusMissed
		default:
			d.Status = StatusUpcoming
		}
		days = append(days, d)
	}
	return days
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GoalShare is the share of goalKm covered, capped at 1.
func (s Summary) GoalShare(goalKm float64) float64 {
	if goalKm <= 0 {
		return 0
	}
	return min(s.TotalKm/goalKm, 1)
}

// NewestFirst sorts runs by date, latest first. Runs on the same day keep
// their file order reversed, so the last appended comes first.
func NewestFirst(runs []Run) []Run {
	out := slices.Clone(runs)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b Run) int {
		return b.Date.Compare(a.Date)
	})
	return out
}
