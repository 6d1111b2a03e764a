package client

import (
	"context"
	"time"
)

const DefaultPollInterval = 30 * time.Second

// UnreadCounter is the part of NotificationClient the poller needs.
type UnreadCounter interface {
	UnreadCount(ctx context.Context) (int, error)
}

// Poller fetches the unread notification count immediately and then on a
// fixed interval. Errors go to OnError and never slow the cadence.
type Poller struct {
	Source   UnreadCounter
	Interval time.Duration
	OnCount  func(int)
	OnError  func(error)
}

func NewPoller(source UnreadCounter, onCount func(int), onError func(error)) *Poller {
	return &Poller{Source: source, Interval: DefaultPollInterval, OnCount: onCount, OnError: onError}
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p.poll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	count, err := p.Source.UnreadCount(ctx)
	if err != nil {
		if ctx.Err() == nil && p.OnError != nil {
			p.OnError(err)
		}
		return
	}
	if p.OnCount != nil {
		p.OnCount(count)
	}
}
