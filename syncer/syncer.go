// Package syncer orchestrates translation sync runs: preparing and uploading
// sources, downloading and cleaning translations, and committing them to the
// repositories that own them.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/minios-linux/crowdsync/android"
	"github.com/minios-linux/crowdsync/config"
	"github.com/minios-linux/crowdsync/crowdin"
	"github.com/minios-linux/crowdsync/gitrepo"
	"github.com/minios-linux/crowdsync/lockfile"
	"github.com/minios-linux/crowdsync/project"
)

// Translator is the translation service client.
type Translator interface {
	Upload(ctx context.Context, p crowdin.Project, branch string) error
	Download(ctx context.Context, p crowdin.Project, branch string) ([]string, error)
	ListSources(ctx context.Context, p crowdin.Project, branch string) ([]string, error)
}

// Fetcher retrieves baseline files by URL.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Deps are the external collaborators of a Syncer.
type Deps struct {
	Translator Translator
	Fetcher    Fetcher
	Git        gitrepo.Git
	Log        *logrus.Entry
}

// Options change what a run is allowed to do.
type Options struct {
	// DryRun computes everything but writes no files, uploads nothing and
	// creates no commits.
	DryRun bool
	// NoPush creates commits without pushing them.
	NoPush bool
}

// ErrPendingPurges is returned by Upload when an earlier run left purged
// files behind.
var ErrPendingPurges = errors.New("purged files from an earlier run are pending; run revert first")

// Syncer runs sync operations over one work tree.
type Syncer struct {
	cfg      *config.Config
	resolver *project.Resolver
	deps     Deps
	opts     Options
	lock     *lockfile.LockFile
	log      *logrus.Entry

	baseMu    sync.Mutex
	baselines map[string]*android.File
}

// New returns a syncer for the tree described by cfg with the given projects.
func New(cfg *config.Config, projects []project.Descriptor, deps Deps, opts Options) (*Syncer, error) {
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if deps.Git == nil {
		deps.Git = gitrepo.ExecGit{}
	}
	lock, err := lockfile.Load(cfg.Root())
	if err != nil {
		return nil, err
	}
	return &Syncer{
		cfg:       cfg,
		resolver:  project.NewResolver(projects, cfg.Branch),
		deps:      deps,
		opts:      opts,
		lock:      lock,
		log:       deps.Log,
		baselines: make(map[string]*android.File),
	}, nil
}

// Resolver returns the project resolver of the tree.
func (s *Syncer) Resolver() *project.Resolver {
	return s.resolver
}

// Lock returns the purge lock file.
func (s *Syncer) Lock() *lockfile.LockFile {
	return s.lock
}

func crowdinProject(cc config.CrowdinConfig) crowdin.Project {
	return crowdin.Project{Name: cc.Name, Config: cc.Config, Identity: cc.Identity}
}

// loadBaseline returns the parsed upstream copy of bf, fetching it once per run.
func (s *Syncer) loadBaseline(ctx context.Context, bf config.BaselineFile) (*android.File, error) {
	key := bf.URL
	if key == "" {
		key = "file:" + bf.Local
	}

	s.baseMu.Lock()
	defer s.baseMu.Unlock()
	if f, ok := s.baselines[key]; ok {
		return f, nil
	}

	var (
		f   *android.File
		err error
	)
	if bf.Local != "" {
		f, err = android.LoadBaseline(s.cfg.Abs(bf.Local))
	} else {
		if s.deps.Fetcher == nil {
			return nil, fmt.Errorf("%s: no fetcher configured", bf.URL)
		}
		var data []byte
		data, err = s.deps.Fetcher.Get(ctx, bf.URL)
		if err == nil {
			f, err = android.Parse(data)
			if err != nil {
				err = fmt.Errorf("%s: %w", bf.URL, err)
			}
		}
	}
	if err != nil {
		return nil, err
	}
	s.baselines[key] = f
	return f, nil
}

// writeFile writes data to a tree-relative path unless this is a dry run.
func (s *Syncer) writeFile(rel string, data []byte) error {
	if s.opts.DryRun {
		return nil
	}
	abs := s.cfg.Abs(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(abs), err)
	}
	if err := os.WriteFile(abs, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", abs, err)
	}
	return nil
}
