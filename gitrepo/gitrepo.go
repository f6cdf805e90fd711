// Package gitrepo commits translation files to the repositories of the work
// tree and pushes them for review.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/minios-linux/crowdsync/project"
)

// Git runs git subcommands.
type Git interface {
	// Run executes git with args inside dir and returns standard output.
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecGit runs the git executable.
type ExecGit struct{}

// Run implements Git.
func (ExecGit) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// BackupDir replaces the first "res" path element of backed up files.
const BackupDir = "res_backup"

// timestampLayout is appended to backup file names.
const timestampLayout = "20060102_150405"

// Repo is one repository of the work tree.
type Repo struct {
	// Root is the work tree root; Path is the repository path below it.
	Root string
	Path string

	git Git
	log *logrus.Entry
	now func() time.Time
}

// Open returns the repository at treeRoot/projectPath.
func Open(treeRoot, projectPath string, git Git, log *logrus.Entry) *Repo {
	if git == nil {
		git = ExecGit{}
	}
	return &Repo{
		Root: treeRoot,
		Path: strings.Trim(filepath.ToSlash(projectPath), "/"),
		git:  git,
		log:  log.WithField("project", projectPath),
		now:  time.Now,
	}
}

// Dir returns the absolute repository directory.
func (r *Repo) Dir() string {
	return filepath.Join(r.Root, filepath.FromSlash(r.Path))
}

// rel converts a tree-relative path to a repository-relative one.
func (r *Repo) rel(treePath string) (string, bool) {
	treePath = strings.Trim(filepath.ToSlash(treePath), "/")
	if !strings.HasPrefix(treePath, r.Path+"/") {
		return "", false
	}
	return strings.TrimPrefix(treePath, r.Path+"/"), true
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	return r.git.Run(ctx, r.Dir(), args...)
}

// Stage adds or removes the files among treeFiles that git reports as
// modified, untracked or deleted. Other changes in the repository are left
// alone. It returns the number of staged paths.
func (r *Repo) Stage(ctx context.Context, treeFiles []string) (int, error) {
	want := make(map[string]bool, len(treeFiles))
	for _, f := range treeFiles {
		if rel, ok := r.rel(f); ok {
			want[rel] = true
		}
	}

	count := 0
	changed, err := r.run(ctx, "ls-files", "-m", "-o", "--exclude-standard")
	if err != nil {
		return 0, err
	}
	for _, f := range splitLines(changed) {
		if !want[f] {
			continue
		}
		if _, err := r.run(ctx, "add", "--", f); err != nil {
			return count, err
		}
		count++
	}

	deleted, err := r.run(ctx, "ls-files", "-d")
	if err != nil {
		return count, err
	}
	for _, f := range splitLines(deleted) {
		if !want[f] {
			continue
		}
		if _, err := r.run(ctx, "rm", "--quiet", "--", f); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Commit records the staged changes.
func (r *Repo) Commit(ctx context.Context, message string) error {
	_, err := r.run(ctx, "commit", "-m", message)
	return err
}

// Push pushes HEAD for review on branch.
func (r *Repo) Push(ctx context.Context, url, branch, topic string) error {
	ref := "HEAD:refs/for/" + branch
	if topic != "" {
		ref += "%topic=" + topic
	}
	_, err := r.run(ctx, "push", url, ref)
	return err
}

// ResetFile copies a tree-relative file to its backup location (the first
// "res" element replaced by res_backup, a timestamp appended to the name)
// and restores the committed version. A file git does not track is removed
// after the backup. It returns the backup path.
func (r *Repo) ResetFile(ctx context.Context, treeFile string) (string, error) {
	rel, ok := r.rel(treeFile)
	if !ok {
		return "", fmt.Errorf("%s is not inside %s", treeFile, r.Path)
	}
	abs := filepath.Join(r.Dir(), filepath.FromSlash(rel))
	backup := filepath.Join(r.Root, filepath.FromSlash(BackupPath(path.Join(r.Path, rel), r.now())))

	if err := copyFile(abs, backup); err != nil {
		return "", err
	}

	tracked, err := r.run(ctx, "ls-files", "--", rel)
	if err != nil {
		return backup, err
	}
	if strings.TrimSpace(tracked) == "" {
		r.log.WithField("file", treeFile).Warn("untracked file removed after backup")
		if err := os.Remove(abs); err != nil {
			return backup, fmt.Errorf("removing %s: %w", abs, err)
		}
		return backup, nil
	}
	if _, err := r.run(ctx, "checkout", "--", rel); err != nil {
		return backup, err
	}
	return backup, nil
}

// BackupPath returns the backup location of a slash-separated file path.
func BackupPath(file string, at time.Time) string {
	parts := strings.Split(file, "/")
	for i, p := range parts[:len(parts)-1] {
		if p == "res" {
			parts[i] = BackupDir
			break
		}
	}
	parts[len(parts)-1] += "_" + at.Format(timestampLayout)
	return strings.Join(parts, "/")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Pushing work units
// ---------------------------------------------------------------------------

// PushOptions configures a Pusher.
type PushOptions struct {
	Root    string
	Message string
	Topic   string
	// URL returns the push URL of a repository name.
	URL func(name string) string
	// NoPush commits without pushing.
	NoPush bool
}

// PushResult is the outcome of PushUnit.
type PushResult struct {
	Unit   *project.WorkUnit
	Staged int
	// Committed and Pushed report what happened; Err holds the failure.
	Committed bool
	Pushed    bool
	Err       error
}

// Pusher commits and pushes work units.
type Pusher struct {
	opts PushOptions
	git  Git
	log  *logrus.Entry
}

// NewPusher returns a pusher.
func NewPusher(opts PushOptions, git Git, log *logrus.Entry) *Pusher {
	return &Pusher{opts: opts, git: git, log: log}
}

// Repo opens the repository of u.
func (p *Pusher) Repo(u *project.WorkUnit) *Repo {
	return Open(p.opts.Root, u.Path, p.git, p.log)
}

// PushUnit stages the unit's files, commits them and pushes the commit to
// the unit's branch. Nothing to stage is not an error.
func (p *Pusher) PushUnit(ctx context.Context, u *project.WorkUnit) PushResult {
	res := PushResult{Unit: u}
	repo := p.Repo(u)
	log := repo.log.WithField("branch", u.Branch)

	res.Staged, res.Err = repo.Stage(ctx, u.Files)
	if res.Err != nil {
		return res
	}
	if res.Staged == 0 {
		log.Info("nothing to commit")
		return res
	}

	if res.Err = repo.Commit(ctx, p.opts.Message); res.Err != nil {
		return res
	}
	res.Committed = true
	log.Infof("committed %d files", res.Staged)

	if p.opts.NoPush {
		return res
	}
	if res.Err = repo.Push(ctx, p.opts.URL(u.Name), u.Branch, p.opts.Topic); res.Err != nil {
		return res
	}
	res.Pushed = true
	log.Info("pushed for review")
	return res
}
