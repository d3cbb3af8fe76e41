package service

import "time"

type options struct {
	now func() time.Time
}

// Option configures a ban service
type Option func(*options)

// WithClock replaces time.Now as the source of "now"
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
