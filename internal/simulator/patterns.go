package simulator

import (
	"math"
	"math/rand"
	"time"
)

// Pattern shapes a cluster's base demand over time. Demand is expressed in
// CKU-equivalents: a demand of 1.5 saturates one and a half CKUs.
type Pattern interface {
	Apply(base float64, at time.Time) float64
	Name() string
}

var (
	PatternSteady Pattern = &SteadyPattern{}
	PatternDaily  Pattern = &DailyPattern{}
	PatternWeekly Pattern = &WeeklyPattern{}
	PatternRandom Pattern = &RandomPattern{}
)

// ParsePattern resolves a pattern by name, anchoring time-relative patterns at start.
func ParsePattern(name string, start time.Time) Pattern {
	switch name {
	case "daily":
		return PatternDaily
	case "weekly":
		return PatternWeekly
	case "random":
		return PatternRandom
	case "gradual_rise":
		return &GradualRisePattern{Start: start}
	case "sine_wave":
		return &SineWavePattern{}
	default:
		return PatternSteady
	}
}

type SteadyPattern struct{}

func (p *SteadyPattern) Apply(base float64, _ time.Time) float64 {
	return base
}

func (p *SteadyPattern) Name() string {
	return "steady"
}

// DailyPattern peaks during business hours and drops overnight.
type DailyPattern struct{}

func dailyModifier(hour int) float64 {
	switch {
	case hour >= 9 && hour <= 11:
		return 1.4
	case hour >= 14 && hour <= 16:
		return 1.3
	case hour >= 17 && hour <= 20:
		return 1.1
	case hour >= 0 && hour <= 6:
		return 0.6
	default:
		return 1.0
	}
}

func (p *DailyPattern) Apply(base float64, at time.Time) float64 {
	return base * dailyModifier(at.UTC().Hour())
}

func (p *DailyPattern) Name() string {
	return "daily"
}

// WeeklyPattern is the daily cycle on weekdays and half load at weekends.
type WeeklyPattern struct{}

func (p *WeeklyPattern) Apply(base float64, at time.Time) float64 {
	at = at.UTC()
	if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return base * 0.5
	}
	return base * dailyModifier(at.Hour())
}

func (p *WeeklyPattern) Name() string {
	return "weekly"
}

type RandomPattern struct{}

func (p *RandomPattern) Apply(base float64, _ time.Time) float64 {
	return base * (0.5 + rand.Float64())
}

func (p *RandomPattern) Name() string {
	return "random"
}

// GradualRisePattern adds 10% of base per hour since Start, up to double.
type GradualRisePattern struct {
	Start time.Time
}

func (p *GradualRisePattern) Apply(base float64, at time.Time) float64 {
	hours := at.Sub(p.Start).Hours()
	if hours < 0 {
		hours = 0
	}
	return base * (1.0 + math.Min(hours*0.1, 1.0))
}

func (p *GradualRisePattern) Name() string {
	return "gradual_rise"
}

// SineWavePattern oscillates around base by Amplitude (a fraction of base).
type SineWavePattern struct {
	Period    time.Duration
	Amplitude float64
}

func (p *SineWavePattern) Apply(base float64, at time.Time) float64 {
	period := p.Period
	if period == 0 {
		period = 6 * time.Hour
	}
	amplitude := p.Amplitude
	if amplitude == 0 {
		amplitude = 0.3
	}

	phase := float64(at.UnixNano()) / float64(period.Nanoseconds()) * 2 * math.Pi
	return base * (1 + math.Sin(phase)*amplitude)
}

func (p *SineWavePattern) Name() string {
	return "sine_wave"
}
