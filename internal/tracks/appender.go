package tracks

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

type Format string

const (
	// FormatRaw joins fields with commas and never escapes them.
	FormatRaw Format = "raw"
	// FormatCSV quotes fields the way encoding/csv does.
	FormatCSV Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatRaw:
		return FormatRaw, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want raw or csv)", s)
	}
}

// countingWriter counts bytes written. The count may be read from another
// goroutine, e.g. a progress bar renderer.
type countingWriter struct {
	w io.Writer
	n atomic.Int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n.Add(int64(n))
	return n, err
}

// Appender appends records to one output. A file output is opened once and
// every record is flushed as soon as it is written.
type Appender struct {
	path   string
	format Format
	closer io.Closer
	closed bool
	cw     *countingWriter
	csv    *csv.Writer
	count  int
}

func OpenAppender(path string, format Format) (*Appender, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	a := NewAppender(f, path, format)
	a.closer = f
	return a, nil
}

// NewAppender writes records to w, which the Appender does not close. name
// only labels errors.
func NewAppender(w io.Writer, name string, format Format) *Appender {
	if format == "" {
		format = FormatRaw
	}

	cw := &countingWriter{w: w}
	a := &Appender{
		path:   name,
		format: format,
		cw:     cw,
	}
	if format == FormatCSV {
		a.csv = csv.NewWriter(cw)
	}
	return a
}

func (a *Appender) Append(r Record) error {
	if a.closed {
		return fmt.Errorf("append to %s: %w", a.path, os.ErrClosed)
	}

	switch a.format {
	case FormatCSV:
		if err := a.csv.Write(r.Fields()); err != nil {
			return fmt.Errorf("append to %s: %w", a.path, err)
		}
		a.csv.Flush()
		if err := a.csv.Error(); err != nil {
			return fmt.Errorf("append to %s: %w", a.path, err)
		}
	default:
		line := strings.Join(r.Fields(), ",") + "\n"
		if _, err := io.WriteString(a.cw, line); err != nil {
			return fmt.Errorf("append to %s: %w", a.path, err)
		}
	}

	a.count++
	return nil
}

// Count is the number of records appended through this Appender.
func (a *Appender) Count() int { return a.count }

// Bytes is the number of bytes appended through this Appender.
func (a *Appender) Bytes() int64 { return a.cw.n.Load() }

func (a *Appender) Path() string { return a.path }

func (a *Appender) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
