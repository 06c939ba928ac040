package shell_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stall/internal/adapters/shell"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestRunner_Run_Pipes(t *testing.T) {
	runner := shell.NewRunner(nil, shell.WithoutPTY())

	var stdout, stderr bytes.Buffer
	err := runner.Run(context.Background(), domain.Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err 1>&2"},
	}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
}

func TestRunner_Run_PTY(t *testing.T) {
	runner := shell.NewRunner(nil)

	var stdout bytes.Buffer
	err := runner.Run(context.Background(), domain.Command{
		Name: "sh",
		Args: []string{"-c", "echo line1; echo line2 1>&2"},
	}, &stdout, nil)

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "line1")
	assert.Contains(t, stdout.String(), "line2")
}

func TestRunner_Run_EnvAndDir(t *testing.T) {
	dir := t.TempDir()
	runner := shell.NewRunner(nil, shell.WithoutPTY())

	var stdout bytes.Buffer
	err := runner.Run(context.Background(), domain.Command{
		Name: "sh",
		Args: []string{"-c", "echo $STALL_TEST_VAR; pwd"},
		Dir:  dir,
		Env:  []string{"STALL_TEST_VAR=value-123"},
	}, &stdout, nil)

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "value-123")
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), resolved)
}

func TestRunner_Run_ExitCode(t *testing.T) {
	runner := shell.NewRunner(nil, shell.WithoutPTY())

	err := runner.Run(context.Background(), domain.Command{
		Name: "sh",
		Args: []string{"-c", "exit 3"},
	}, nil, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrCommandFailed.Error())
	assert.Equal(t, 3, domain.Metadata(err)["exit_code"])
	assert.Equal(t, "sh", domain.Metadata(err)["command"])
}

func TestRunner_Run_NotFound(t *testing.T) {
	runner := shell.NewRunner(nil, shell.WithoutPTY())

	err := runner.Run(context.Background(), domain.Command{Name: "stall-definitely-missing"}, nil, nil)

	require.Error(t, err)
	assert.Equal(t, -1, domain.Metadata(err)["exit_code"])
}

func TestRunner_Run_EmptyCommand(t *testing.T) {
	err := shell.NewRunner(nil).Run(context.Background(), domain.Command{}, nil, nil)
	require.ErrorIs(t, err, domain.ErrCommandFailed)
}

func TestRunner_Run_AbsolutePath(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "setup.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho installed \"$1\"\n"), 0o700))

	var stdout bytes.Buffer
	err := shell.NewRunner(nil, shell.WithoutPTY()).Run(context.Background(), domain.Command{
		Name: script,
		Args: []string{"/S"},
	}, &stdout, nil)

	require.NoError(t, err)
	assert.Equal(t, "installed /S\n", stdout.String())
}

func TestRunner_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := shell.NewRunner(nil, shell.WithoutPTY()).Run(ctx, domain.Command{
		Name: "sh",
		Args: []string{"-c", "sleep 5"},
	}, nil, nil)

	require.Error(t, err)
}

func TestRunner_Run_MirrorsToLogger(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info("hello")
	log.EXPECT().Warn("careful")

	err := shell.NewRunner(log, shell.WithoutPTY()).Run(context.Background(), domain.Command{
		Name: "sh",
		Args: []string{"-c", "echo hello; echo careful 1>&2"},
	}, nil, nil)

	require.NoError(t, err)
}
