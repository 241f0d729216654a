package presenter

import (
	"io"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/olekukonko/ts"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ReplayProgress shows a progress bar of replayed navigations
type ReplayProgress struct {
	progress *mpb.Progress
	bar      *mpb.Bar
}

// terminalWidth returns half the terminal width, or 0 when unknown
func terminalWidth() int {
	size, err := ts.GetSize()
	if err != nil {
		return 0
	}
	return size.Col() / 2
}

// NewReplayProgress creates a bar for total navigations rendered to out
func NewReplayProgress(total int, out io.Writer) *ReplayProgress {
	opts := []mpb.ContainerOption{mpb.WithOutput(out)}
	if width := terminalWidth(); width > 0 {
		opts = append(opts, mpb.WithWidth(width))
	}

	p := mpb.New(opts...)
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("classified "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
		),
	)

	return &ReplayProgress{progress: p, bar: bar}
}

// OnMetricsUpdate implements application.MetricsObserver
func (r *ReplayProgress) OnMetricsUpdate(*entity.Metrics) {}

// AddResult implements application.MetricsObserver
func (r *ReplayProgress) AddResult(entity.Domain, entity.ClassificationResult) {
	r.bar.Increment()
}

// Finish completes the bar, since navigations to non-web pages never
// produce a result, and waits for the final render
func (r *ReplayProgress) Finish() {
	r.bar.SetTotal(-1, true)
	r.progress.Wait()
}
