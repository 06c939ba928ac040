// Package shell runs installer processes under a pseudo-terminal.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/creack/pty"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/zerr"
)

// waitDelay bounds how long Run waits for output pipes after the process is killed.
const waitDelay = 2 * time.Second

// Runner implements ports.CommandRunner using os/exec and pty.
type Runner struct {
	logger  ports.Logger
	usePTY  bool
	environ func() []string
}

var _ ports.CommandRunner = (*Runner)(nil)

// Option configures a Runner.
type Option func(*Runner)

// WithoutPTY runs processes on plain pipes, keeping stdout and stderr apart.
func WithoutPTY() Option {
	return func(r *Runner) {
		r.usePTY = false
	}
}

// NewRunner creates a Runner that mirrors process output into logger.
// A nil logger disables mirroring.
func NewRunner(logger ports.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger:  logger,
		usePTY:  true,
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts cmd and waits for it to exit.
func (r *Runner) Run(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error {
	if cmd.Name == "" {
		return domain.Tag(domain.ErrCommandFailed, "reason", "empty command")
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	var stdoutLog, stderrLog *logWriter
	if r.logger != nil {
		stdoutLog = &logWriter{logger: r.logger, level: "info"}
		stderrLog = &logWriter{logger: r.logger, level: "error"}
		stdout = io.MultiWriter(stdoutLog, stdout)
		stderr = io.MultiWriter(stderrLog, stderr)
		defer func() {
			_ = stdoutLog.Close()
			_ = stderrLog.Close()
		}()
	}

	env := resolveEnvironment(r.environ(), cmd.Env)

	executable := cmd.Name
	if !filepath.IsAbs(executable) && !strings.ContainsRune(executable, filepath.Separator) {
		lp, err := lookPath(executable, env)
		if err != nil {
			return domain.Because(domain.ErrCommandFailed, err, "command", cmd.Name, "exit_code", -1)
		}
		executable = lp
	}

	c := exec.CommandContext(ctx, executable, cmd.Args...) //nolint:gosec // installer commands come from the resource file
	c.Args[0] = cmd.Name
	c.Dir = cmd.Dir
	c.Env = env
	c.WaitDelay = waitDelay

	var err error
	if r.usePTY {
		err = runPTY(c, stdout)
	} else {
		c.Stdout = stdout
		c.Stderr = stderr
		err = c.Run()
	}

	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return domain.Because(domain.ErrCommandFailed, err, "command", cmd.Name, "exit_code", exitCode)
	}
	return nil
}

// runPTY runs c on a pseudo-terminal. The terminal merges both streams into out.
func runPTY(c *exec.Cmd, out io.Writer) error {
	ptmx, err := pty.Start(c)
	if err != nil {
		return zerr.Wrap(err, "failed to start pty")
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		_, _ = io.Copy(out, ptmx)
	}()

	err = c.Wait()
	_ = ptmx.Close()
	<-ioDone
	return err
}

type logWriter struct {
	logger ports.Logger
	level  string
	buf    []byte
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)

	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

func (w *logWriter) Close() error {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *logWriter) logLine(line []byte) {
	// PTYs may introduce \r.
	msg := strings.TrimSuffix(string(line), "\r")
	if msg == "" {
		return
	}

	if w.level == "info" {
		w.logger.Info(msg)
	} else {
		w.logger.Warn(msg)
	}
}

// allowListedEnvVars are the system variables an installer inherits.
var allowListedEnvVars = map[string]struct{}{
	"HOME":   {},
	"TERM":   {},
	"USER":   {},
	"PATH":   {},
	"LANG":   {},
	"TMPDIR": {},
}

// resolveEnvironment keeps the allow-listed system variables and applies overrides on top.
// The result is sorted by key.
func resolveEnvironment(sysEnv, overrides []string) []string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			if _, allowed := allowListedEnvVars[k]; allowed {
				envMap[k] = v
			}
		}
	}
	for _, entry := range overrides {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// lookPath searches for an executable in the PATH found in env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if v, ok := strings.CutPrefix(e, "PATH="); ok {
			path = v
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
