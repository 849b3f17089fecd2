package watch

import (
	"strings"
	"time"
)

// Ticker rotates once per engine.tick event, so a frozen engine shows a
// frozen glyph.
type Ticker struct {
	frames   []string
	index    int
	lastTick time.Time
}

func NewTicker() Ticker {
	return Ticker{frames: []string{"◐", "◓", "◑", "◒"}}
}

func (t *Ticker) Tick(at time.Time) {
	t.index = (t.index + 1) % len(t.frames)
	t.lastTick = at
}

func (t Ticker) Current() string {
	return t.frames[t.index]
}

// Stale reports whether no tick arrived within d of now.
func (t Ticker) Stale(now time.Time, d time.Duration) bool {
	return t.lastTick.IsZero() || now.Sub(t.lastTick) > d
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Sparkline keeps the last few FPS samples.
type Sparkline struct {
	samples []float64
	size    int
}

func NewSparkline(size int) Sparkline {
	return Sparkline{size: size}
}

func (s *Sparkline) Push(v float64) {
	s.samples = append(s.samples, v)
	if len(s.samples) > s.size {
		s.samples = s.samples[len(s.samples)-s.size:]
	}
}

func (s Sparkline) Last() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	return s.samples[len(s.samples)-1]
}

// Render scales samples between their min and max.
func (s Sparkline) Render(theme Theme) string {
	if len(s.samples) == 0 {
		return theme.Dim.Render("no samples")
	}
	lo, hi := s.samples[0], s.samples[0]
	for _, v := range s.samples {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	var b strings.Builder
	for _, v := range s.samples {
		idx := len(sparkLevels) - 1
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkLevels)-1))
		}
		b.WriteRune(sparkLevels[idx])
	}
	return theme.Spark.Render(b.String())
}
