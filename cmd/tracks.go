package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mlinder314/runscrape/internal/config"
	"github.com/mlinder314/runscrape/internal/tracks"
	"github.com/mlinder314/runscrape/internal/ui"
	"github.com/mlinder314/runscrape/internal/util"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	flagTracksFile      string
	flagTracksSummary   bool
	flagTracksGoal      float64
	flagTracksSchedule  bool
	flagTracksPlanStart string
	flagTracksWeeks     int
)

// now is replaced in tests.
var now = time.Now

func init() {
	tracksCmd := &cobra.Command{
		Use:   "tracks",
		Short: "Show the tracks collected in the output file",
		Args:  cobra.NoArgs,
		RunE:  runTracks,
	}

	tracksCmd.Flags().StringVar(&flagTracksFile, "file", "", "track file to read (default: output from config)")
	tracksCmd.Flags().BoolVar(&flagTracksSummary, "summary", false, "print only the totals")
	tracksCmd.Flags().Float64Var(&flagTracksGoal, "goal", 0, "yearly distance goal in km (default 365)")
	tracksCmd.Flags().BoolVar(&flagTracksSchedule, "schedule", false, "show the training schedule instead of the runs")
	tracksCmd.Flags().StringVar(&flagTracksPlanStart, "plan-start", "", "first day of the training schedule, YYYY-MM-DD (default 2016-05-30)")
	tracksCmd.Flags().IntVar(&flagTracksWeeks, "weeks", 4, "past weeks shown in the schedule")

	rootCmd.AddCommand(tracksCmd)
}

func runTracks(cmd *cobra.Command, _ []string) error {
	cfg, _, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Output:       flagTracksFile,
		GoalKm:       flagTracksGoal,
		PlanStart:    flagTracksPlanStart,
	})
	if err != nil {
		return err
	}
	path := cfg.Output

	lines, err := tracks.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no tracks yet: %s does not exist, run `runscrape scrape` first", path)
	}
	if err != nil {
		return err
	}

	runs, bad := parseRuns(lines)
	for _, b := range bad {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s:%d: %v\n", path, b.line, b.err)
	}

	out := cmd.OutOrStdout()
	s := tracks.Summarize(runs)
	renderGoal(out, s, cfg.GoalKm)

	if flagTracksSchedule {
		start, err := cfg.PlanStartDate()
		if err != nil {
			return err
		}
		renderSchedule(out, tracks.Schedule(start, s.TotalKm, now()), now(), flagTracksWeeks)
		return nil
	}

	renderTracks(out, tracks.NewestFirst(runs), !flagTracksSummary)
	return nil
}

type badLine struct {
	line int
	err  error
}

func parseRuns(lines []tracks.Line) ([]tracks.Run, []badLine) {
	runs := make([]tracks.Run, 0, len(lines))
	var bad []badLine

	for _, l := range lines {
		run, err := tracks.ParseRun(l.Fields)
		if err != nil {
			bad = append(bad, badLine{line: l.Num, err: err})
			continue
		}
		runs = append(runs, run)
	}
	return runs, bad
}

func renderTracks(out io.Writer, runs []tracks.Run, rows bool) {
	s := tracks.Summarize(runs)

	t := ui.NewTable(out)
	t.AppendHeader(table.Row{"ID", "Date", "Distance", "Duration", "Pace"})

	if rows {
		for _, r := range runs {
			t.AppendRow(table.Row{
				r.ID,
				r.Date.Format("2006-01-02"),
				fmt.Sprintf("%.2f km", r.DistanceKm),
				util.Clock(r.Duration),
				util.Clock(r.Pace()) + " /km",
			})
		}
		t.AppendSeparator()
	}

	var pace string
	if s.TotalKm > 0 {
		pace = util.Clock(tracks.Run{DistanceKm: s.TotalKm, Duration: s.TotalDuration}.Pace()) + " /km"
	}

	var span string
	if s.Count > 0 {
		span = s.First.Format("2006-01-02") + " .. " + s.Last.Format("2006-01-02")
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d runs", s.Count),
		span,
		fmt.Sprintf("%.2f km", s.TotalKm),
		util.Clock(s.TotalDuration),
		pace,
	})
	t.Render()

	if s.Count > 0 {
		_, _ = fmt.Fprintf(out, "Longest: %.2f km on %s (%s)\n",
			s.Longest.DistanceKm, s.Longest.Date.Format("2006-01-02"), s.Longest.ID)
	}
}

const goalBarWidth = 40

func renderGoal(out io.Writer, s tracks.Summary, goalKm float64) {
	share := s.GoalShare(goalKm)
	filled := int(share * goalBarWidth)

	_, _ = fmt.Fprintf(out, "[%s%s] %3.0f%%\n",
		strings.Repeat("#", filled), strings.Repeat(".", goalBarWidth-filled), share*100)
	_, _ = fmt.Fprintf(out, "So far, you ran %.1f km of %.0f km\n\n", s.TotalKm, goalKm)
}

// renderSchedule prints one row per week, Monday first, from pastWeeks
// before the current week to the end of the plan.
func renderSchedule(out io.Writer, days []tracks.Day, at time.Time, pastWeeks int) {
	from := monday(at).AddDate(0, 0, -7*max(pastWeeks, 0))

	t := ui.NewTable(out)
	t.AppendHeader(table.Row{"Week", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"})

	var row table.Row
	var week time.Time
	flush := func() {
		if row != nil {
			t.AppendRow(row)
		}
	}

	for _, d := range days {
		m := monday(d.When)
		if m.Before(from) {
			continue
		}
		if !m.Equal(week) {
			flush()
			week = m
			row = make(table.Row, 8)
			row[0] = m.Format("2006-01-02")
			for i := 1; i < len(row); i++ {
				row[i] = ""
			}
		}
		row[weekdayColumn(d.When)] = dayCell(d)
	}
	flush()

	t.Render()
	_, _ = fmt.Fprintln(out, "x done  ! missed  - rest  [ ] today")
}

func dayCell(d tracks.Day) string {
	var cell string
	switch d.Status {
	case tracks.StatusRest:
		cell = "-"
	case tracks.StatusDone:
		cell = fmt.Sprintf("%.1f x", d.DistanceKm)
	case tracks.StatusMissed:
		cell = fmt.Sprintf("%.1f !", d.DistanceKm)
	default:
		cell = fmt.Sprintf("%.1f", d.DistanceKm)
	}
	if d.Today {
		cell = "[" + cell + "]"
	}
	return cell
}

func weekdayColumn(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}

func monday(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, 1-weekdayColumn(day))
}
