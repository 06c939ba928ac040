package detector

// DetectForTest exposes the pure detection rule.
func DetectForTest(stdinTTY, stdoutTTY bool, ci string) OutputMode {
	return detect(stdinTTY, stdoutTTY, ci)
}
