package resp

import "runtime"

// DefaultTolerance is the relative sensitivity discrepancy accepted by
// Normalize before a response is flagged.
const DefaultTolerance = 0.05

// Config holds engine settings shared by Normalize and Evaluate.
type Config struct {
	// Workers bounds the goroutines used to evaluate a frequency array.
	Workers int
	// Tolerance is the accepted relative deviation between declared and
	// computed gains.
	Tolerance float64
	// CorrectA0 makes Normalize rewrite discrepant A0 factors in place.
	CorrectA0 bool
	// ReferenceFrequency overrides the sensitivity frequency (Hz) when > 0.
	ReferenceFrequency float64
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns one worker per available CPU and a 5% tolerance.
func DefaultConfig() Config {
	return Config{
		Workers:   runtime.GOMAXPROCS(0),
		Tolerance: DefaultTolerance,
	}
}

// WithWorkers sets the evaluation worker count.
func WithWorkers(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.Workers = n
		}
	}
}

// WithTolerance sets the relative gain tolerance.
func WithTolerance(tol float64) Option {
	return func(cfg *Config) {
		if tol > 0 {
			cfg.Tolerance = tol
		}
	}
}

// WithA0Correction enables in-place A0 correction during Normalize.
func WithA0Correction() Option {
	return func(cfg *Config) {
		cfg.CorrectA0 = true
	}
}

// WithReferenceFrequency overrides the frequency sensitivity is matched at.
func WithReferenceFrequency(f float64) Option {
	return func(cfg *Config) {
		if f > 0 {
			cfg.ReferenceFrequency = f
		}
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
