package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/mlinder314/runscrape/internal/util"
)

type Stats struct {
	URL    string
	Output string
	Rows   int
	Bytes  int64
	Start  time.Time
}

func (s Stats) Elapsed() time.Duration {
	return time.Since(s.Start).Round(time.Millisecond)
}

func (s Stats) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\n%d tracks appended to %s (%s) in %s\n",
		s.Rows, s.Output, util.Human(s.Bytes), s.Elapsed())
}
