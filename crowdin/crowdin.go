// Package crowdin drives the Crowdin command line client.
package crowdin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrCLINotFound is returned when the Crowdin executable is not installed.
var ErrCLINotFound = errors.New("crowdin CLI not found")

// Runner executes external commands.
type Runner interface {
	// Run executes name with args in dir and returns its standard output.
	// A non-zero exit status is an error that includes standard error.
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
	// LookPath resolves an executable name.
	LookPath(name string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return stdout.Bytes(), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return stdout.Bytes(), nil
}

// LookPath implements Runner.
func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Project is one Crowdin configuration.
type Project struct {
	Name string
	// Config is the crowdin.yml path, relative to the CLI's working directory.
	Config string
	// Identity is an optional credentials file.
	Identity string
}

// CLI wraps the Crowdin executable.
type CLI struct {
	path   string
	dir    string
	runner Runner
	log    *logrus.Entry
}

// New returns a client that runs path in dir.
func New(path, dir string, runner Runner, log *logrus.Entry) *CLI {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &CLI{path: path, dir: dir, runner: runner, log: log}
}

// Check verifies that the executable is installed.
func (c *CLI) Check() error {
	if _, err := c.runner.LookPath(c.path); err != nil {
		return fmt.Errorf("%w: %s", ErrCLINotFound, c.path)
	}
	return nil
}

func (c *CLI) run(ctx context.Context, p Project, branch string, args ...string) ([]byte, error) {
	args = append(args, "--config="+p.Config)
	if p.Identity != "" {
		args = append(args, "--identity="+p.Identity)
	}
	if branch != "" {
		args = append(args, "--branch="+branch)
	}
	c.log.WithFields(logrus.Fields{"config": p.Name, "branch": branch}).
		Debugf("running %s %s", c.path, strings.Join(args, " "))
	out, err := c.runner.Run(ctx, c.dir, c.path, args...)
	if err != nil {
		return out, fmt.Errorf("crowdin %s (%s): %w", args[0], p.Name, err)
	}
	return out, nil
}

// Upload uploads the source files of p.
func (c *CLI) Upload(ctx context.Context, p Project, branch string) error {
	_, err := c.run(ctx, p, branch, "upload", "sources")
	return err
}

// Download downloads the translations of p and returns the written files,
// relative to the working directory, in the order the CLI printed them.
func (c *CLI) Download(ctx context.Context, p Project, branch string) ([]string, error) {
	out, err := c.run(ctx, p, branch, "download", "--plain")
	if err != nil {
		return nil, err
	}
	return plainList(out, ""), nil
}

// ListSources returns the source files of p. The branch directory Crowdin
// prepends to every path is removed.
func (c *CLI) ListSources(ctx context.Context, p Project, branch string) ([]string, error) {
	out, err := c.run(ctx, p, branch, "list", "sources", "--plain")
	if err != nil {
		return nil, err
	}
	return plainList(out, branch), nil
}

// plainList splits --plain output into paths, dropping blank lines and
// the "/branch" segment when branch is set.
func plainList(out []byte, branch string) []string {
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if branch != "" {
			line = strings.Replace(line, "/"+branch+"/", "/", 1)
			line = strings.TrimPrefix(line, branch+"/")
		}
		paths = append(paths, strings.TrimPrefix(line, "/"))
	}
	return paths
}
