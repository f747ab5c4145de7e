package extractor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mlinder314/runscrape/internal/tracks"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	html        string
	navigateErr error
	visited     []string
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.visited = append(f.visited, url)
	return f.navigateErr
}

func (f *fakeSession) HTML(context.Context) (string, error) {
	return f.html, nil
}

type failingAppender struct {
	after int
	n     int
}

func (a *failingAppender) Append(tracks.Record) error {
	if a.n == a.after {
		return errors.New("disk full")
	}
	a.n++
	return nil
}

type countingProgress struct {
	total int
	done  int
}

func (p *countingProgress) SetTotal(total int) { p.total = total }
func (p *countingProgress) Increment()         { p.done++ }

func row(id, date, distance, duration string) string {
	return `<tr id="` + id + `">` +
		`<td class="date">` + date + `</td>` +
		`<td class="distance">` + distance + `</td>` +
		`<td class="duration">` + duration + `</td>` +
		`</tr>`
}

func page(rows ...string) string {
	return `<html><body>
<table class="run-data">
<thead><tr><th>Date</th><th>Distance</th><th>Duration</th></tr></thead>
<tbody>` + strings.Join(rows, "\n") + `</tbody>
</table>
</body></html>`
}

func runOnce(t *testing.T, html, path string) (Result, error) {
	t.Helper()

	out, err := tracks.OpenAppender(path, tracks.FormatRaw)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, out.Close())
	}()

	ex := New(&fakeSession{html: html}, out, Options{Logger: zerolog.Nop()})
	return ex.Run(context.Background())
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	s := strings.TrimSuffix(string(b), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestRun_AppendsOneLinePerRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")
	html := page(
		row("101", "5/30/2016", "3.1 mi", "28:10"),
		row("102", "5/31/2016", "4.0 mi", "36:02"),
		row("103", "6/2/2016", "6.2 mi", "58:40"),
	)

	res, err := runOnce(t, html, path)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, []string{
		"101,5/30/2016,3.1 mi,28:10",
		"102,5/31/2016,4.0 mi,36:02",
		"103,6/2/2016,6.2 mi,58:40",
	}, readLines(t, path))
}

func TestRun_ZeroRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")

	res, err := runOnce(t, page(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rows)
	assert.Empty(t, readLines(t, path))
}

func TestRun_TwiceDoublesOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")
	html := page(
		row("101", "5/30/2016", "3.1 mi", "28:10"),
		row("102", "5/31/2016", "4.0 mi", "36:02"),
	)

	for i := 0; i < 2; i++ {
		_, err := runOnce(t, html, path)
		require.NoError(t, err)
	}

	lines := readLines(t, path)
	require.Len(t, lines, 4)
	assert.Equal(t, lines[:2], lines[2:])
}

func TestRun_MissingFieldStopsBeforeRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")
	html := page(
		row("101", "5/30/2016", "3.1 mi", "28:10"),
		`<tr id="102"><td class="date">5/31/2016</td><td class="duration">36:02</td></tr>`,
		row("103", "6/2/2016", "6.2 mi", "58:40"),
	)

	res, err := runOnce(t, html, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingElement)

	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, KindMissingElement, exErr.Kind)
	assert.Equal(t, 1, exErr.Row)
	assert.Equal(t, ".distance", exErr.Selector)

	assert.Equal(t, 1, res.Rows)
	assert.Equal(t, []string{"101,5/30/2016,3.1 mi,28:10"}, readLines(t, path))
}

func TestRun_CommaInFieldIsWrittenVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")

	_, err := runOnce(t, page(row("12345", "Jan 1, 2016", "5.2 mi", "45:00")), path)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "12345,Jan 1, 2016,5.2 mi,45:00\n", string(b))

	lines, err := tracks.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Len(t, lines[0].Fields, 5)
}

func TestRun_MissingContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")

	_, err := runOnce(t, `<html><body><p>Please log in</p></body></html>`, path)
	assert.ErrorIs(t, err, ErrMissingElement)

	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, ".run-data", exErr.Selector)
	assert.Equal(t, -1, exErr.Row)
}

func TestRun_LoginPageIsReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")
	html := `<html><body><form><input name="user"><input type="password" name="pw"></form></body></html>`

	_, err := runOnce(t, html, path)
	assert.ErrorIs(t, err, ErrMissingElement)
	assert.Contains(t, err.Error(), "login")
	assert.Empty(t, readLines(t, path))
}

func TestRun_MissingBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")

	_, err := runOnce(t, `<html><body><div class="run-data"></div></body></html>`, path)

	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "tbody", exErr.Selector)
}

func TestRun_NavigationFailure(t *testing.T) {
	sess := &fakeSession{navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	ex := New(sess, &failingAppender{after: -1}, Options{Logger: zerolog.Nop()})

	_, err := ex.Run(context.Background())
	assert.ErrorIs(t, err, ErrNavigation)
	assert.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
	assert.Equal(t, []string{DefaultURL}, sess.visited)
}

func TestRun_WriteFailure(t *testing.T) {
	html := page(
		row("101", "5/30/2016", "3.1 mi", "28:10"),
		row("102", "5/31/2016", "4.0 mi", "36:02"),
	)
	out := &failingAppender{after: 1}
	ex := New(&fakeSession{html: html}, out, Options{Logger: zerolog.Nop()})

	res, err := ex.Run(context.Background())
	assert.ErrorIs(t, err, ErrWrite)
	assert.Equal(t, 1, res.Rows)
}

func TestRun_CustomSelectorsAndProgress(t *testing.T) {
	html := `<div class="activities"><table><tbody>
<tr data-run="9"><td><span class="when">6/5/2016</span></td><td class="km">21.1 km</td><td><b class="time">1:52:03</b></td></tr>
</tbody></table></div>`

	path := filepath.Join(t.TempDir(), "tracks.csv")
	out, err := tracks.OpenAppender(path, tracks.FormatRaw)
	require.NoError(t, err)

	progress := &countingProgress{}
	ex := New(&fakeSession{html: html}, out, Options{
		URL: "https://example.test/list",
		Selectors: Selectors{
			ContainerClass: "activities",
			IDAttr:         "data-run",
			DateClass:      "when",
			DistanceClass:  "km",
			DurationClass:  "time",
		},
		Logger:   zerolog.Nop(),
		Progress: progress,
	})

	res, err := ex.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, out.Close())

	assert.Equal(t, 1, res.Rows)
	assert.Equal(t, 1, progress.total)
	assert.Equal(t, 1, progress.done)
	assert.Equal(t, []string{"9,6/5/2016,21.1 km,1:52:03"}, readLines(t, path))
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := New(&fakeSession{html: page(row("1", "d", "1 mi", "1:00"))}, &failingAppender{after: -1}, Options{Logger: zerolog.Nop()})
	res, err := ex.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Rows)
}

func TestVisibleText(t *testing.T) {
	html := page(row("1", "\n   Jan  1,\n 2016  ", " 5.2 mi ", "45:00"))
	path := filepath.Join(t.TempDir(), "tracks.csv")

	_, err := runOnce(t, html, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1,Jan 1, 2016,5.2 mi,45:00"}, readLines(t, path))
}

func TestRun_LogsEachTrackAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.InfoLevel)

	html := page(
		row("101", "5/30/2016", "3.1 mi", "28:10"),
		row("102", "5/31/2016", "4.0 mi", "36:02"),
	)
	ex := New(&fakeSession{html: html}, &failingAppender{after: -1}, Options{Logger: log})

	_, err := ex.Run(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, `"message":"reading track"`))
	assert.Contains(t, out, `"id":"102"`)
	assert.Contains(t, out, `"distance":"4.0 mi"`)
}

func TestRows_OnePass(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page(
		row("1", "d", "1 mi", "1:00"),
		row("2", "d", "2 mi", "2:00"),
	)))
	require.NoError(t, err)

	seq := Rows(doc.Find("tbody tr"))

	var first []string
	for _, r := range seq {
		id, _ := r.Attr("id")
		first = append(first, id)
	}
	assert.Equal(t, []string{"1", "2"}, first)

	again := 0
	for range seq {
		again++
	}
	assert.Zero(t, again)
}
