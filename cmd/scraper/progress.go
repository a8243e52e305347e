package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"telegram-channel-scraper/internal/domain"
	"telegram-channel-scraper/internal/ports"
)

var _ ports.ProgressReporter = (*barProgress)(nil)

// barProgress показывает ход обработки каждого канала полосой прогресса.
type barProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newBarProgress(out io.Writer) *barProgress {
	return &barProgress{out: out}
}

func (p *barProgress) ChannelStarted(channel domain.Channel, limit int) {
	p.bar = progressbar.NewOptions(limit,
		progressbar.OptionSetDescription(fmt.Sprintf("@%s", channel.Username)),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionFullWidth(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.out)
		}),
	)
}

func (p *barProgress) MessageProcessed() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

// ChannelFinished закрывает полосу, даже если канал оказался короче лимита.
func (p *barProgress) ChannelFinished() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
