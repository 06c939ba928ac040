package telemetry

// Batcher returns the output batcher, nil when no renderer is attached.
func (s *OTelSpan) Batcher() *LogBatcher {
	return s.batcher
}
