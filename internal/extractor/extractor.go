package extractor

import (
	"context"
	"iter"
	"strings"

	"github.com/mlinder314/runscrape/internal/tracks"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// Session is a page source: something that can be pointed at a URL and
// report the HTML it rendered.
type Session interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
}

type Appender interface {
	Append(r tracks.Record) error
}

// Progress receives row counts while a run appends records.
type Progress interface {
	SetTotal(total int)
	Increment()
}

type Options struct {
	URL       string
	Selectors Selectors
	Logger    zerolog.Logger
	Progress  Progress
}

type Extractor struct {
	session  Session
	out      Appender
	url      string
	sel      Selectors
	log      zerolog.Logger
	progress Progress
}

type Result struct {
	// Rows is the number of records appended, including on failure.
	Rows int
}

func New(session Session, out Appender, opts Options) *Extractor {
	url := opts.URL
	if url == "" {
		url = DefaultURL
	}

	return &Extractor{
		session:  session,
		out:      out,
		url:      url,
		sel:      opts.Selectors.WithDefaults(),
		log:      opts.Logger,
		progress: opts.Progress,
	}
}

func (e *Extractor) URL() string { return e.url }

func (e *Extractor) Run(ctx context.Context) (Result, error) {
	var res Result

	e.log.Info().Str("url", e.url).Msg("fetching webpage")
	if err := e.session.Navigate(ctx, e.url); err != nil {
		return res, &Error{Kind: KindNavigation, Op: "navigate to " + e.url, Row: -1, Err: err}
	}

	html, err := e.session.HTML(ctx)
	if err != nil {
		return res, &Error{Kind: KindNavigation, Op: "read page", Row: -1, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return res, &Error{Kind: KindNavigation, Op: "parse page", Row: -1, Err: err}
	}

	e.log.Info().Msg("scraping results")
	body, err := e.locateBody(doc)
	if err != nil {
		return res, err
	}

	rows := body.Find(e.sel.RowTag)
	if e.progress != nil {
		e.progress.SetTotal(rows.Length())
	}

	for i, row := range Rows(rows) {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rec, err := e.readRow(i, row)
		if err != nil {
			return res, err
		}
		e.log.Info().
			Int("row", i+1).
			Str("id", rec.ID).
			Str("date", rec.Date).
			Str("distance", rec.Distance).
			Str("duration", rec.Duration).
			Msg("reading track")

		if err := e.out.Append(rec); err != nil {
			return res, &Error{Kind: KindWrite, Op: "append record " + rec.ID, Row: i, Err: err}
		}
		res.Rows++

		if e.progress != nil {
			e.progress.Increment()
		}
	}

	e.log.Info().Int("rows", res.Rows).Msg("scraping finished")
	return res, nil
}

func (e *Extractor) locateBody(doc *goquery.Document) (*goquery.Selection, error) {
	container := doc.Find(byClass(e.sel.ContainerClass)).First()
	if container.Length() == 0 {
		op := "locate results table"
		if LooksLikeLogin(doc) {
			op += " (page asks for a login)"
		}
		return nil, &Error{Kind: KindMissingElement, Op: op, Selector: byClass(e.sel.ContainerClass), Row: -1}
	}

	body := container.Find(e.sel.BodyTag).First()
	if body.Length() == 0 {
		return nil, &Error{Kind: KindMissingElement, Op: "locate table body", Selector: e.sel.BodyTag, Row: -1}
	}

	return body, nil
}

// LooksLikeLogin reports whether the page carries a password field, which is
// what a private listing serves to an anonymous visitor.
func LooksLikeLogin(doc *goquery.Document) bool {
	return doc.Find(`input[type="password"]`).Length() > 0
}

// Rows yields each element of sel in document order, with its index. The
// sequence is one pass: ranging over it again yields nothing.
func Rows(sel *goquery.Selection) iter.Seq2[int, *goquery.Selection] {
	used := false
	return func(yield func(int, *goquery.Selection) bool) {
		if used {
			return
		}
		used = true
		for i := range sel.Length() {
			if !yield(i, sel.Eq(i)) {
				return
			}
		}
	}
}

func (e *Extractor) readRow(i int, row *goquery.Selection) (tracks.Record, error) {
	id, _ := row.Attr(e.sel.IDAttr)

	rec := tracks.Record{ID: id}
	fields := []struct {
		name  string
		class string
		dst   *string
	}{
		{"Date", e.sel.DateClass, &rec.Date},
		{"Distance", e.sel.DistanceClass, &rec.Distance},
		{"Duration", e.sel.DurationClass, &rec.Duration},
	}

	for _, f := range fields {
		el := row.Find(byClass(f.class)).First()
		if el.Length() == 0 {
			return tracks.Record{}, &Error{
				Kind:     KindMissingElement,
				Op:       "read " + strings.ToLower(f.name),
				Selector: byClass(f.class),
				Row:      i,
			}
		}

		*f.dst = visibleText(el)
	}

	return rec, nil
}

// visibleText approximates rendered text: trimmed, with whitespace runs
// collapsed to one space.
func visibleText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
