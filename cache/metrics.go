package cache

import "time"

// NoopMetrics is a drop-in Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                      {}
func (NoopMetrics) Miss()                     {}
func (NoopMetrics) Load(time.Duration, error) {}
func (NoopMetrics) Size(int)                  {}

var _ Metrics = NoopMetrics{}
