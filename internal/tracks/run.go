package tracks

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const kmPerMile = 1.60934

var (
	dateLayouts = []string{
		"1/2/2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"Mon, Jan 2, 2006",
		"2006-01-02",
	}

	reDistance = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*([a-z]*)$`)
)

// Run is a record with its display text parsed into values.
type Run struct {
	ID         string
	Date       time.Time
	DistanceKm float64
	Duration   time.Duration
}

// Pace is the time per kilometer, zero when the distance is unknown.
func (r Run) Pace() time.Duration {
	if r.DistanceKm <= 0 {
		return 0
	}
	return time.Duration(float64(r.Duration) / r.DistanceKm)
}

// Line is one line of the output file, split on commas.
type Line struct {
	Num    int
	Fields []string
}

// ReadLines splits an output file into lines. The field count may vary
// between lines because raw records are not escaped. Each line is parsed on
// its own so a stray quote cannot spill into the lines after it.
func ReadLines(r io.Reader) ([]Line, error) {
	sc := bufio.NewScanner(r)

	var out []Line
	num := 0
	for sc.Scan() {
		num++
		text := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		cr := csv.NewReader(strings.NewReader(text))
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true

		fields, err := cr.Read()
		if err != nil {
			return out, fmt.Errorf("line %d: %w", num, err)
		}
		out = append(out, Line{Num: num, Fields: fields})
	}

	return out, sc.Err()
}

func ReadFile(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	return ReadLines(f)
}

// ParseRun parses one line. Lines with more than four fields come from raw
// records whose date contained a comma; the extra fields are joined back into
// the date.
func ParseRun(fields []string) (Run, error) {
	if len(fields) < 4 {
		return Run{}, fmt.Errorf("want at least 4 fields, got %d", len(fields))
	}

	n := len(fields)
	dateStr := strings.Join(fields[1:n-2], ",")

	date, err := parseDate(dateStr)
	if err != nil {
		return Run{}, err
	}

	dist, err := parseDistanceKm(fields[n-2])
	if err != nil {
		return Run{}, err
	}

	dur, err := parseDuration(fields[n-1])
	if err != nil {
		return Run{}, err
	}

	return Run{
		ID:         strings.TrimSpace(fields[0]),
		Date:       date,
		DistanceKm: dist,
		Duration:   dur,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseDistanceKm(s string) (float64, error) {
	m := reDistance.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return 0, fmt.Errorf("unrecognized distance %q", s)
	}

	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("distance %q: %w", s, err)
	}

	switch m[2] {
	case "mi", "mile", "miles":
		return n * kmPerMile, nil
	case "km", "kms", "kilometer", "kilometers":
		return n, nil
	default:
		return 0, fmt.Errorf("wrong unit in distance %q", s)
	}
}

func parseDuration(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("unrecognized duration %q", s)
	}

	var total time.Duration
	units := []time.Duration{time.Second, time.Minute, time.Hour}
	for i := range parts {
		p := parts[len(parts)-1-i]
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("unrecognized duration %q", s)
		}
		total += time.Duration(v) * units[i]
	}

	return total, nil
}

type Summary struct {
	Count         int
	TotalKm       float64
	TotalDuration time.Duration
	Longest       Run
	First         time.Time
	Last          time.Time
}

func Summarize(runs []Run) Summary {
	var s Summary
	for _, r := range runs {
		s.Count++
		s.TotalKm += r.DistanceKm
		s.TotalDuration += r.Duration

		if r.DistanceKm > s.Longest.DistanceKm {
			s.Longest = r
		}
		if s.First.IsZero() || r.Date.Before(s.First) {
			s.First = r.Date
		}
		if r.Date.After(s.Last) {
			s.Last = r.Date
		}
	}
	return s
}
