//go:build linux

package sensor

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// ADS1115Reader samples channel 0 of an ADS1115 ADC over I2C and converts
// the voltage to a water level using the live calibration.
type ADS1115Reader struct {
	bus i2c.BusCloser
	pin ads1x15.PinADC

	// cal is re-read on every sample so portal calibration changes take
	// effect without a restart.
	cal func() Calibration

	mu     sync.Mutex
	smooth *smoother
}

// NewADS1115Reader opens the given I2C bus ("" for the first available)
// and configures the ADC for single-ended reads on channel 0.
func NewADS1115Reader(busName string, cal func() Calibration) (*ADS1115Reader, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	adc, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("init ads1115: %w", err)
	}

	pin, err := adc.PinForChannel(ads1x15.Channel0, 5*physic.Volt, 32*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("configure adc channel: %w", err)
	}

	return &ADS1115Reader{
		bus:    bus,
		pin:    pin,
		cal:    cal,
		smooth: newSmoother(),
	}, nil
}

// Read samples the ADC once and returns the median-smoothed level. A
// failed or out-of-range sample yields Valid=false; it still enters the
// smoothing window so a dead sensor ages out the stale good readings.
func (r *ADS1115Reader) Read() Reading {
	now := time.Now()
	cal := r.cal()

	reading := Reading{Time: now}
	if sample, err := r.pin.Read(); err == nil {
		reading.Millivolts = float64(sample.V) / float64(physic.MilliVolt)
		reading.LevelCm = cal.LevelCm(reading.Millivolts)
		reading.Valid = cal.Valid(reading.Millivolts)
	}

	r.mu.Lock()
	r.smooth.push(reading)
	reading.LevelCm = r.smooth.median()
	r.mu.Unlock()

	return reading
}

// Close halts the ADC pin and releases the I2C bus.
func (r *ADS1115Reader) Close() error {
	var errs []error
	if err := r.pin.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt adc pin: %w", err))
	}
	if err := r.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close i2c bus: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
