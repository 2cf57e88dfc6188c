package engine

import (
	"barsim/internal/data"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// backtester is the single forward pass over a prepared frame.
type backtester struct {
	frame     *data.Frame
	strategy  Strategy
	portfolio *Portfolio
	progress  *progressbar.ProgressBar
}

func newBacktester(frame *data.Frame, strat Strategy, portfolio *Portfolio, progress io.Writer) *backtester {
	b := &backtester{
		frame:     frame,
		strategy:  strat,
		portfolio: portfolio,
	}
	if progress != nil {
		b.progress = initProgressBar(frame.Len(), progress)
	}
	return b
}

// run evaluates the strategy once per bar on the history ending at that bar
// and hands the signal to the portfolio.
func (b *backtester) run() error {
	for i := 0; i < b.frame.Len(); i++ {
		bar := b.frame.Bar(i)
		signal, err := b.strategy.GenerateSignal(b.frame.History(i))
		if err != nil {
			return fmt.Errorf("%w: %s at %s: %w", ErrStrategyFailed, b.strategy.Name(), bar.Timestamp.Format(time.RFC3339), err)
		}
		if err := b.portfolio.Update(bar, signal); err != nil {
			return fmt.Errorf("apply signal at %s: %w", bar.Timestamp.Format(time.RFC3339), err)
		}
		if b.progress != nil {
			_ = b.progress.Add(1)
		}
	}
	if b.progress != nil {
		_ = b.progress.Finish()
	}
	return nil
}

func initProgressBar(maxTicks int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
