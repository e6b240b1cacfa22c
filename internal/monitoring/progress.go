package monitoring

import (
	"time"
)

// Progress logs ingestion throughput every Every hits.
type Progress struct {
	Label string
	Every uint64

	start    time.Time
	hits     uint64
	batches  uint64
	nextMark uint64
	now      func() time.Time
}

// NewProgress starts a progress tracker. every <= 0 disables periodic
// lines; Done still logs the totals.
func NewProgress(label string, every uint64) *Progress {
	p := &Progress{Label: label, Every: every, now: time.Now}
	p.start = p.now()
	p.nextMark = every
	return p
}

// Add records a processed batch of n hits.
func (p *Progress) Add(n int) {
	p.batches++
	p.hits += uint64(n)
	if p.Every == 0 || p.hits < p.nextMark {
		return
	}
	for p.nextMark <= p.hits {
		p.nextMark += p.Every
	}
	Logf("%s: %d hits in %d batches (%.0f hits/s)", p.Label, p.hits, p.batches, p.rate())
}

// Hits returns the number of hits recorded so far.
func (p *Progress) Hits() uint64 { return p.hits }

// Done logs the final totals and returns the elapsed time.
func (p *Progress) Done() time.Duration {
	elapsed := p.now().Sub(p.start)
	Logf("%s: done, %d hits in %d batches, %s", p.Label, p.hits, p.batches, elapsed.Round(time.Millisecond))
	return elapsed
}

func (p *Progress) rate() float64 {
	secs := p.now().Sub(p.start).Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(p.hits) / secs
}
