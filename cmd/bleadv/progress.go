package main

import (
	"fmt"
	"time"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// countdownPrinter displays a scan progress line with the remaining time, or
// the elapsed time when the scan is unbounded. It is single-use: Start at
// most once, Stop exactly once.
type countdownPrinter struct {
	prefix   string
	duration time.Duration
	start    time.Time
	stop     chan struct{}
	done     chan struct{}
}

func newCountdownPrinter(prefix string, duration time.Duration) *countdownPrinter {
	return &countdownPrinter{
		prefix:   prefix,
		duration: duration,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (p *countdownPrinter) Start() {
	p.start = time.Now()
	go p.loop()
}

func (p *countdownPrinter) Stop() {
	close(p.stop)
	<-p.done
}

func (p *countdownPrinter) loop() {
	defer close(p.done)
	ticker := time.NewTicker(progressUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			fmt.Print(clearLineSequence)
			return
		case <-ticker.C:
			p.print()
		}
	}
}

func (p *countdownPrinter) print() {
	if p.duration > 0 {
		remaining := p.duration - time.Since(p.start)
		if remaining < 0 {
			remaining = 0
		}
		fmt.Printf("%s%s... %s remaining", clearLineSequence, p.prefix, remaining.Truncate(time.Second))
		return
	}
	fmt.Printf("%s%s... %s elapsed", clearLineSequence, p.prefix, time.Since(p.start).Truncate(time.Second))
}
