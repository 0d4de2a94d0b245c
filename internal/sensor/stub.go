//go:build !linux

package sensor

import "errors"

// ADS1115Reader is not available on non-Linux platforms.
type ADS1115Reader struct{}

// NewADS1115Reader returns an error on non-Linux platforms.
func NewADS1115Reader(busName string, cal func() Calibration) (*ADS1115Reader, error) {
	return nil, errors.New("sensor: ads1115 not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (r *ADS1115Reader) Read() Reading {
	return Reading{}
}

// Close is not implemented on non-Linux platforms.
func (r *ADS1115Reader) Close() error { return nil }
