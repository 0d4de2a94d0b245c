package sensor

// FakeReader is a test double that returns scripted readings.
type FakeReader struct {
	// Samples contains scripted readings to return. Each call to Read
	// consumes the next sample; the last one repeats when exhausted.
	Samples []Reading

	index int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Reading) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeReader) Read() Reading {
	if len(f.Samples) == 0 {
		return Reading{}
	}
	r := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return r
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the reader to the beginning of its samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}

// StaticReader always reports the same valid level. It backs the
// -mock-level flag for bench testing without a sensor attached.
type StaticReader struct {
	LevelCm float64
}

// Read returns a valid reading at the fixed level.
func (s *StaticReader) Read() Reading {
	return Reading{Valid: true, LevelCm: s.LevelCm}
}

// Close is a no-op.
func (s *StaticReader) Close() error { return nil }
