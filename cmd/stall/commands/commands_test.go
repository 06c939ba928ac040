package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stall/cmd/stall/commands"
	"go.trai.ch/stall/internal/app"
	"go.trai.ch/stall/internal/build"
	"go.trai.ch/stall/internal/core/domain"
)

type mockApp struct {
	buildFunc   func(ctx context.Context, opts app.BuildOptions) (*domain.OutcomeReport, error)
	planFunc    func(ctx context.Context, opts app.PlanOptions) error
	catalogFunc func(ctx context.Context) error
	cleanFunc   func(ctx context.Context, opts app.CleanOptions) error
	jsonLogs    bool
}

func (m *mockApp) Build(ctx context.Context, opts app.BuildOptions) (*domain.OutcomeReport, error) {
	if m.buildFunc != nil {
		return m.buildFunc(ctx, opts)
	}
	return domain.NewOutcomeReport(nil, false), nil
}

func (m *mockApp) Plan(ctx context.Context, opts app.PlanOptions) error {
	if m.planFunc != nil {
		return m.planFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) ListCatalog(ctx context.Context) error {
	if m.catalogFunc != nil {
		return m.catalogFunc(ctx)
	}
	return nil
}

func (m *mockApp) Clean(ctx context.Context, opts app.CleanOptions) error {
	if m.cleanFunc != nil {
		return m.cleanFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) SetJSONLogs(enable bool) {
	m.jsonLogs = enable
}

func execute(t *testing.T, a commands.Application, args ...string) (string, error) {
	t.Helper()
	cli := commands.New(a)
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return buf.String(), err
}

func TestCommands_Build(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var captured app.BuildOptions
		mock := &mockApp{
			buildFunc: func(_ context.Context, opts app.BuildOptions) (*domain.OutcomeReport, error) {
				captured = opts
				return domain.NewOutcomeReport(nil, false), nil
			},
		}

		_, err := execute(t, mock, "build", "extra.yml",
			"-f", "base.yml", "--file", "dev.hcl",
			"--catalog", "git,micro",
			"--accept", "steam", "--accept-all",
			"-j", "3", "--timeout", "10m", "--retries", "2",
			"--force", "--download-dir", "/tmp/dl", "--ci", "--json-logs",
		)
		require.NoError(t, err)

		assert.Equal(t, []string{"base.yml", "dev.hcl", "extra.yml"}, captured.Files)
		assert.Equal(t, []string{"git", "micro"}, captured.Catalog)
		assert.Equal(t, []string{"steam"}, captured.Accept)
		assert.True(t, captured.AcceptAll)
		assert.Equal(t, 3, captured.Jobs)
		assert.Equal(t, 10*time.Minute, captured.Timeout)
		assert.Equal(t, 2, captured.Retries)
		assert.True(t, captured.Force)
		assert.Equal(t, "/tmp/dl", captured.DownloadDir)
		assert.Equal(t, "linear", captured.OutputMode)
		assert.True(t, mock.jsonLogs)
	})

	t.Run("defaults", func(t *testing.T) {
		var captured app.BuildOptions
		mock := &mockApp{
			buildFunc: func(_ context.Context, opts app.BuildOptions) (*domain.OutcomeReport, error) {
				captured = opts
				return domain.NewOutcomeReport(nil, false), nil
			},
		}

		_, err := execute(t, mock, "build", "resources.yml")
		require.NoError(t, err)
		assert.Equal(t, "auto", captured.OutputMode)
		assert.Zero(t, captured.Jobs)
		assert.False(t, captured.Force)
		assert.False(t, mock.jsonLogs)
	})

	t.Run("returns error on build failure", func(t *testing.T) {
		mock := &mockApp{
			buildFunc: func(_ context.Context, _ app.BuildOptions) (*domain.OutcomeReport, error) {
				return nil, domain.ErrBuildIncomplete
			},
		}

		_, err := execute(t, mock, "build", "resources.yml")
		require.ErrorIs(t, err, domain.ErrBuildIncomplete)
	})

	t.Run("shows usage when nothing to build", func(t *testing.T) {
		mock := &mockApp{
			buildFunc: func(_ context.Context, _ app.BuildOptions) (*domain.OutcomeReport, error) {
				panic("should not be called")
			},
		}

		out, err := execute(t, mock, "build")
		require.NoError(t, err)
		assert.Contains(t, out, "Usage:")
	})
}

func TestCommands_Plan(t *testing.T) {
	var captured app.PlanOptions
	mock := &mockApp{
		planFunc: func(_ context.Context, opts app.PlanOptions) error {
			captured = opts
			return nil
		},
	}

	_, err := execute(t, mock, "plan", "-f", "resources.yml", "--format", "mermaid")
	require.NoError(t, err)
	assert.Equal(t, []string{"resources.yml"}, captured.Files)
	assert.Equal(t, "mermaid", captured.Format)

	_, err = execute(t, mock, "plan", "--catalog", "git")
	require.NoError(t, err)
	assert.Equal(t, "text", captured.Format)
	assert.Equal(t, []string{"git"}, captured.Catalog)
}

func TestCommands_Catalog(t *testing.T) {
	called := false
	mock := &mockApp{
		catalogFunc: func(context.Context) error {
			called = true
			return nil
		},
	}

	_, err := execute(t, mock, "catalog")
	require.NoError(t, err)
	assert.True(t, called)

	_, err = execute(t, mock, "catalog", "extra")
	require.Error(t, err)
}

func TestCommands_Clean(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want app.CleanOptions
	}{
		{"default removes receipts", nil, app.CleanOptions{Receipts: true}},
		{"cache only", []string{"--cache"}, app.CleanOptions{Cache: true}},
		{"receipts and cache", []string{"-r", "-c"}, app.CleanOptions{Receipts: true, Cache: true}},
		{"all", []string{"--all"}, app.CleanOptions{Receipts: true, Cache: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured app.CleanOptions
			mock := &mockApp{
				cleanFunc: func(_ context.Context, opts app.CleanOptions) error {
					captured = opts
					return nil
				},
			}

			_, err := execute(t, mock, append([]string{"clean"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, captured)
		})
	}

	t.Run("propagates errors", func(t *testing.T) {
		mock := &mockApp{
			cleanFunc: func(context.Context, app.CleanOptions) error {
				return errors.New("permission denied")
			},
		}
		_, err := execute(t, mock, "clean")
		require.EqualError(t, err, "permission denied")
	})
}

func TestCommands_Version(t *testing.T) {
	out, err := execute(t, &mockApp{}, "version")
	require.NoError(t, err)

	assert.Contains(t, out, "stall version "+build.Version)
	assert.Contains(t, out, build.Commit)
}
