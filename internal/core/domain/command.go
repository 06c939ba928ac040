package domain

// Command describes an external process started by an installer.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env holds extra variables in KEY=VALUE form, appended to the allow-listed system environment.
	Env []string
}

// PackageRequest describes one package-manager operation.
type PackageRequest struct {
	Label      string
	Packages   []string
	Repository string
	Files      []string
}
