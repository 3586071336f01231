package scaffold

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/srcguard/packages/core/config"
	"github.com/abdul-hamid-achik/srcguard/packages/core/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
	dir  string
	env  map[string]string
}

type stubRunner struct {
	calls    []call
	exitCode map[string]int
	stderr   string
	err      error
}

func (s *stubRunner) Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error) {
	s.calls = append(s.calls, call{name: name, args: args, dir: opts.Dir, env: opts.Env})
	if s.err != nil {
		return CmdResult{}, s.err
	}
	return CmdResult{ExitCode: s.exitCode[name], Stderr: s.stderr}, nil
}

func TestBanner(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Banner(&buf, "petapp", "1.2.0"))
	assert.Equal(t, "srcguard 1.2.0: bootstrapping petapp\n", buf.String())

	buf.Reset()
	require.NoError(t, Banner(&buf, "", ""))
	assert.Equal(t, "srcguard dev: bootstrapping project\n", buf.String())
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestRun_StepsInOrder(t *testing.T) {
	dir := t.TempDir()
	runner := &stubRunner{}
	var out bytes.Buffer

	b := New(WithRunner(runner), WithOutput(&out))
	report, err := b.Run(context.Background(), Options{
		Name:    "petapp",
		Version: "1.0.0",
		Dir:     dir,
		Steps: []config.Step{
			{Name: "create app", Command: "npx", Args: []string{"create-expo-app", "{name}"}},
			{Name: "install", Command: "npm", Args: []string{"install"}, Dir: "petapp", Env: map[string]string{"CI": "1"}},
		},
	})
	require.NoError(t, err)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, "npx", runner.calls[0].name)
	assert.Equal(t, []string{"create-expo-app", "petapp"}, runner.calls[0].args)
	assert.Equal(t, dir, runner.calls[0].dir)
	assert.Equal(t, filepath.Join(dir, "petapp"), runner.calls[1].dir)
	assert.Equal(t, "1", runner.calls[1].env["CI"])

	require.Len(t, report.Steps, 2)
	assert.Equal(t, "npx create-expo-app petapp", report.Steps[0].Command)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "srcguard 1.0.0: bootstrapping petapp", lines[0])

	assert.FileExists(t, filepath.Join(dir, ".srcguard.yaml"))
	assert.FileExists(t, filepath.Join(dir, "guards", "petapp.guard.yaml"))
	assert.Len(t, report.Created, 2)
}

func TestRun_StepFailureAborts(t *testing.T) {
	dir := t.TempDir()
	runner := &stubRunner{exitCode: map[string]int{"npx": 3}, stderr: "network unreachable\n"}

	b := New(WithRunner(runner), WithOutput(&bytes.Buffer{}))
	_, err := b.Run(context.Background(), Options{
		Dir: dir,
		Steps: []config.Step{
			{Name: "create app", Command: "npx", Args: []string{"create-expo-app"}},
			{Name: "never", Command: "npm"},
		},
	})

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "create app", stepErr.Step)
	assert.Equal(t, 3, stepErr.ExitCode)
	assert.Contains(t, err.Error(), "network unreachable")
	assert.Len(t, runner.calls, 1)
	assert.NoFileExists(t, filepath.Join(dir, ".srcguard.yaml"))
}

func TestRun_StepCannotStart(t *testing.T) {
	runner := &stubRunner{err: errors.New("executable file not found")}

	b := New(WithRunner(runner), WithOutput(&bytes.Buffer{}))
	_, err := b.Run(context.Background(), Options{
		Dir:   t.TempDir(),
		Steps: []config.Step{{Command: "missing-tool"}},
	})

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "step 1", stepErr.Step)
	assert.Equal(t, -1, stepErr.ExitCode)
	assert.ErrorIs(t, err, runner.err)
}

func TestRun_DryRun(t *testing.T) {
	dir := t.TempDir()
	runner := &stubRunner{}
	var out bytes.Buffer

	b := New(WithRunner(runner), WithOutput(&out))
	report, err := b.Run(context.Background(), Options{
		Name:   "petapp",
		Dir:    dir,
		DryRun: true,
		Steps:  []config.Step{{Name: "create app", Command: "npx", Args: []string{"create-expo-app", "{name}"}}},
	})
	require.NoError(t, err)

	assert.Empty(t, runner.calls)
	assert.Contains(t, out.String(), "would run create app: npx create-expo-app petapp")
	require.Len(t, report.Steps, 1)
	assert.True(t, report.Steps[0].DryRun)
	assert.Empty(t, report.Created)
	assert.NoFileExists(t, filepath.Join(dir, ".srcguard.yaml"))
}

func TestRun_SkipScaffold(t *testing.T) {
	runner := &stubRunner{}
	b := New(WithRunner(runner), WithOutput(&bytes.Buffer{}))
	report, err := b.Run(context.Background(), Options{
		Dir:          t.TempDir(),
		SkipScaffold: true,
		Steps:        []config.Step{{Command: "npx"}},
	})
	require.NoError(t, err)
	assert.Empty(t, runner.calls)
	assert.Len(t, report.Created, 2)
}

func TestRun_KeepsExistingFilesUnlessForced(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ".srcguard.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("output: json\n"), 0644))

	b := New(WithRunner(&stubRunner{}), WithOutput(&bytes.Buffer{}))

	report, err := b.Run(context.Background(), Options{Name: "app", Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{configPath}, report.Kept)
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "output: json\n", string(data))

	report, err = b.Run(context.Background(), Options{Name: "app", Dir: dir, Force: true})
	require.NoError(t, err)
	assert.Empty(t, report.Kept)
	assert.Len(t, report.Created, 2)

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, []string{SuitesDir}, cfg.Suites)
}

func TestRun_CustomBanner(t *testing.T) {
	var out bytes.Buffer
	b := New(WithRunner(&stubRunner{}), WithOutput(&out))
	_, err := b.Run(context.Background(), Options{
		Name:    "petapp",
		Version: "2.0.0",
		Dir:     t.TempDir(),
		Banner:  "Creating {name} ({version})",
		DryRun:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Creating petapp (2.0.0)\n", out.String())
}

func TestStarterSuite_ParsesAndPasses(t *testing.T) {
	dir := t.TempDir()
	b := New(WithRunner(&stubRunner{}), WithOutput(&bytes.Buffer{}))
	_, err := b.Run(context.Background(), Options{Name: "my: app", Dir: dir})
	require.NoError(t, err)

	suitePath := filepath.Join(dir, "guards", "my: app.guard.yaml")
	suite, err := parser.ParseFile(suitePath)
	require.NoError(t, err)
	assert.Equal(t, "my: app guards", suite.Name)
	assert.Equal(t, "..", suite.Root)
	require.Len(t, suite.Cases, 1)
	assert.Equal(t, ".srcguard.yaml", suite.Cases[0].File)

	data, err := os.ReadFile(filepath.Join(dir, ".srcguard.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), suite.Cases[0].Expected)
}

func TestStepError(t *testing.T) {
	err := &StepError{Step: "install", Command: "npm install", ExitCode: 1, Stderr: "  boom \n"}
	assert.Equal(t, `step "install" (npm install) exited with code 1: boom`, err.Error())
	assert.Nil(t, err.Unwrap())
}
