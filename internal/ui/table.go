package ui

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

func NewTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}
