package nix

// WithSystemForTest pins the platform the resolver answers for.
func (r *Resolver) WithSystemForTest(system string) *Resolver {
	r.system = system
	return r
}

// PinKeyForTest exposes the pin file naming.
func PinKeyForTest(name, version string) string {
	return pinKey(name, version)
}
