package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/mlinder314/runscrape/internal/util"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

type ProgressManager struct {
	p *mpb.Progress
}

func NewProgressManager(out io.Writer) *ProgressManager {
	p := mpb.New(
		mpb.WithWidth(52),
		mpb.WithOutput(out),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	return &ProgressManager{p: p}
}

// Close waits for every registered bar to finish rendering. Bars that were
// never marked done are aborted first so Close cannot hang.
func (pm *ProgressManager) Close(handles ...*ProgressHandle) {
	for _, h := range handles {
		h.abort()
	}
	pm.p.Wait()
}

// Register adds a bar counting rows. bytes, when set, is shown next to the
// counters.
func (pm *ProgressManager) Register(prefix string, bytes func() int64) *ProgressHandle {
	h := &ProgressHandle{
		pm:     pm,
		prefix: prefix,
		bytes:  bytes,
	}
	h.initBar()
	return h
}

type ProgressHandle struct {
	pm     *ProgressManager
	prefix string
	bar    *mpb.Bar
	bytes  func() int64

	total atomic.Int64

	start   time.Time
	elapsed atomic.Int64

	final atomic.Bool
}

func (h *ProgressHandle) initBar() {
	h.start = time.Now()

	h.bar = h.pm.p.New(
		0,
		mpb.BarStyle().Rbound("]"),

		mpb.PrependDecorators(
			decor.Name(h.prefix+"  "),
		),

		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.CountersNoUnit(" | %d/%d rows", decor.WCSyncWidth),
			decor.Any(func(_ decor.Statistics) string {
				if h.bytes == nil {
					return ""
				}
				return " | " + util.Human(h.bytes())
			}),

			decor.Any(func(_ decor.Statistics) string {
				if h.final.Load() {
					return fmt.Sprintf(" | %ds", h.elapsed.Load())
				}
				return fmt.Sprintf(" | %ds", int(time.Since(h.start).Seconds()))
			}),
		),
	)
}

func (h *ProgressHandle) SetTotal(total int) {
	if h.final.Load() {
		return
	}

	h.total.Store(int64(total))
	h.bar.SetTotal(int64(total), false)
}

func (h *ProgressHandle) Increment() {
	if h.final.Load() {
		return
	}
	h.bar.Increment()
}

func (h *ProgressHandle) MarkDone() {
	if h.final.Swap(true) {
		return
	}

	h.elapsed.Store(int64(time.Since(h.start).Seconds()))
	h.bar.SetCurrent(h.total.Load())
	h.bar.SetTotal(h.total.Load(), true)
}

func (h *ProgressHandle) abort() {
	if h.final.Swap(true) {
		return
	}
	h.elapsed.Store(int64(time.Since(h.start).Seconds()))
	h.bar.Abort(false)
}
