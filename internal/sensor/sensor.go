// Package sensor reads the analog water-level sensor with hardware
// abstraction. The real implementation samples an ADS1115 ADC over I2C;
// the fake implementations allow testing without hardware.
package sensor

import "time"

// Reading is a single smoothed water-level sample.
type Reading struct {
	Valid      bool
	LevelCm    float64
	Millivolts float64
	Time       time.Time
}

// Reader produces one reading per poll tick.
type Reader interface {
	Read() Reading
	Close() error
}

// MaxLevelCm is the sensor's full-scale range.
const MaxLevelCm = 100

// maxVoltageMv is the ADC reading at full scale.
const maxVoltageMv = 4096

// errorMarginMv is how far below the zero point a reading may sit before
// it is declared invalid (disconnected or shorted sensor).
const errorMarginMv = 100

// Calibration converts sensor millivolts to centimeters of water.
// Single-point mode maps the zero voltage linearly up to MaxLevelCm at
// full ADC scale; two-point mode interpolates between the zero point and
// a second measured point.
type Calibration struct {
	ZeroMv      int     `json:"zero_mv"`
	SpanMv      int     `json:"span_mv"`
	SpanLevelCm float64 `json:"span_level_cm"`
	TwoPoint    bool    `json:"two_point"`
}

// DefaultCalibration matches the typical zero reading of the deployed
// pressure sensor.
func DefaultCalibration() Calibration {
	return Calibration{ZeroMv: 590}
}

// LevelCm converts a millivolt reading to centimeters.
func (c Calibration) LevelCm(mv float64) float64 {
	if c.TwoPoint && c.SpanMv != c.ZeroMv {
		return (mv - float64(c.ZeroMv)) * (c.SpanLevelCm / float64(c.SpanMv-c.ZeroMv))
	}
	mvPerCm := float64(maxVoltageMv-c.ZeroMv) / MaxLevelCm
	return (mv - float64(c.ZeroMv)) / mvPerCm
}

// Valid reports whether a millivolt reading is trustworthy.
func (c Calibration) Valid(mv float64) bool {
	return mv >= float64(c.ZeroMv-errorMarginMv)
}

// smoother keeps the last readings and returns their median. Invalid
// readings occupy a slot (so a flaky sensor ages out of the window) but
// do not contribute to the median.
type smoother struct {
	buf  []Reading
	next int
}

const smootherSize = 10

func newSmoother() *smoother {
	return &smoother{buf: make([]Reading, smootherSize)}
}

func (s *smoother) push(r Reading) {
	s.buf[s.next] = r
	s.next = (s.next + 1) % len(s.buf)
}

// median returns the median level of the valid buffered readings, or 0
// when none are valid.
func (s *smoother) median() float64 {
	levels := make([]float64, 0, len(s.buf))
	for _, r := range s.buf {
		if r.Valid {
			levels = append(levels, r.LevelCm)
		}
	}
	if len(levels) == 0 {
		return 0
	}
	// Insertion sort: the window is tiny.
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && levels[j] < levels[j-1]; j-- {
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
	if len(levels)%2 == 1 {
		return levels[len(levels)/2]
	}
	return (levels[len(levels)/2-1] + levels[len(levels)/2]) / 2
}
