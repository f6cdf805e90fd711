package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/minios-linux/crowdsync/android"
	"github.com/minios-linux/crowdsync/config"
	"github.com/minios-linux/crowdsync/gitrepo"
	"github.com/minios-linux/crowdsync/project"
)

// Download fetches the translations of every configuration, then cleans,
// commits and pushes them per repository. In a dry run nothing is
// downloaded.
func (s *Syncer) Download(ctx context.Context, configs []config.CrowdinConfig) (*Report, error) {
	rep := &Report{}
	if s.opts.DryRun {
		s.log.Info("dry run: download skipped")
		return rep, nil
	}
	if err := s.checkPush(s.cfg.Root()); err != nil {
		return rep, err
	}

	lists := make([][]string, len(configs))
	err := runParallel(ctx, lo.Range(len(configs)), s.cfg.MaxConcurrent, func(ctx context.Context, i int) error {
		cc := configs[i]
		log := s.log.WithField("config", cc.Name)
		log.Info("downloading translations")
		files, err := s.deps.Translator.Download(ctx, crowdinProject(cc), s.cfg.Branch)
		if err != nil {
			return fmt.Errorf("%s: %w", cc.Name, err)
		}
		log.Infof("downloaded %d files", len(files))
		lists[i] = files
		return nil
	})
	if err != nil {
		return rep, err
	}

	return rep, s.Process(ctx, lo.Uniq(lo.Flatten(lists)), rep)
}

// Sources lists the source files of every configuration, once each, in
// configuration order. Resolving them gives the repositories a download
// can commit to.
func (s *Syncer) Sources(ctx context.Context, configs []config.CrowdinConfig) ([]string, error) {
	var paths []string
	for _, cc := range configs {
		files, err := s.deps.Translator.ListSources(ctx, crowdinProject(cc), s.cfg.Branch)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cc.Name, err)
		}
		paths = append(paths, files...)
	}
	return lo.Uniq(paths), nil
}

// Process cleans tree-relative translation files already in the tree and
// commits them to the repositories that own them. Ignored paths are left
// alone; paths no repository owns are cleaned and reported.
func (s *Syncer) Process(ctx context.Context, files []string, rep *Report) error {
	return s.process(ctx, s.cfg.Root(), files, rep)
}

// process cleans files under root. Commits are only made when root is the
// work tree.
func (s *Syncer) process(ctx context.Context, root string, files []string, rep *Report) error {
	if err := s.checkPush(root); err != nil {
		return err
	}
	rep.Ignored = append(rep.Ignored, lo.Filter(files, func(f string, _ int) bool { return s.cfg.Ignored(f) })...)
	files = lo.Reject(files, func(f string, _ int) bool { return s.cfg.Ignored(f) })
	if n := len(rep.Ignored); n > 0 {
		s.log.Infof("ignoring %d files", n)
	}

	res := s.resolver.Resolve(files)
	rep.Warnings = append(rep.Warnings, res.Warnings...)
	rep.Resolved += res.Resolved
	for _, w := range res.Warnings {
		s.log.WithField("file", w.Path).Warn(w.Reason)
	}

	unresolved := lo.Map(res.Warnings, func(w project.Warning, _ int) string { return w.Path })
	for _, f := range unresolved {
		s.record(rep, CleanFile(ctx, root, f, nil, s.opts.DryRun, s.log))
	}

	pusher := gitrepo.NewPusher(gitrepo.PushOptions{
		Root:    s.cfg.Root(),
		Message: s.cfg.CommitMessage,
		Topic:   s.cfg.Topic,
		URL:     s.cfg.ReviewURL,
		NoPush:  s.opts.NoPush,
	}, s.deps.Git, s.log)
	commit := !s.opts.DryRun && root == s.cfg.Root()

	err := runParallel(ctx, res.Units, s.cfg.MaxConcurrent, func(ctx context.Context, u *project.WorkUnit) error {
		var repo *gitrepo.Repo
		if commit {
			repo = pusher.Repo(u)
		}
		for _, f := range u.Files {
			s.record(rep, CleanFile(ctx, root, f, repo, s.opts.DryRun, s.log))
		}
		if !commit {
			return nil
		}
		pr := pusher.PushUnit(ctx, u)
		if pr.Err != nil {
			s.log.WithField("project", u.Path).Errorf("commit failed: %v", pr.Err)
		}
		rep.addPush(pr)
		return nil
	})
	rep.sort()
	return err
}

// checkPush fails when a run over root would push without a review server
// to push to.
func (s *Syncer) checkPush(root string) error {
	if s.opts.DryRun || s.opts.NoPush || root != s.cfg.Root() {
		return nil
	}
	return s.cfg.CheckReview()
}

func (s *Syncer) record(rep *Report, fr FileResult) {
	rep.addFile(fr)
	if fr.Err != nil {
		rep.fail(fr.Path, fr.Err)
	}
}

// CleanFiles cleans tree-relative files under root in parallel, without
// touching git. Unparseable files are reported and left as they are.
func CleanFiles(ctx context.Context, root string, files []string, maxConcurrent int, dryRun bool, log *logrus.Entry) (*Report, error) {
	rep := &Report{}
	err := runParallel(ctx, files, maxConcurrent, func(ctx context.Context, f string) error {
		fr := CleanFile(ctx, root, f, nil, dryRun, log)
		rep.addFile(fr)
		if fr.Err != nil {
			rep.fail(fr.Path, fr.Err)
		}
		return nil
	})
	rep.sort()
	return rep, err
}

// CleanFile cleans the tree-relative file f under root and writes the
// outcome back: a cleaned document is rewritten when something was dropped,
// an empty one is removed together with its directory when that becomes
// empty, and an unparseable one is reset through repo when repo is not nil.
// A file that does not exist is skipped. With dryRun nothing is written.
func CleanFile(ctx context.Context, root, f string, repo *gitrepo.Repo, dryRun bool, log *logrus.Entry) FileResult {
	fr := FileResult{Path: f}
	log = log.WithField("file", f)
	abs := filepath.Join(root, filepath.FromSlash(f))

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("not found, skipped")
			fr.Skipped = true
			return fr
		}
		fr.Err = err
		return fr
	}

	res := android.CleanData(data)
	fr.Outcome, fr.Removed, fr.Comments = res.Outcome, res.Removed, res.Comments
	for _, rm := range res.Invalid() {
		log.WithField("name", rm.Name).Warnf("invalid string dropped: %s", rm.Text)
	}

	switch res.Outcome {
	case android.OutcomeUnparseable:
		log.Warnf("cannot parse: %v", res.Err)
		if dryRun || repo == nil {
			return fr
		}
		fr.Backup, fr.Err = repo.ResetFile(ctx, f)
		if fr.Err == nil {
			log.Infof("reset, backup in %s", fr.Backup)
		}
	case android.OutcomeDeleted:
		log.Debug("no translations left, removing")
		if !dryRun {
			fr.Err = removeWithDir(abs)
		}
	default:
		if len(res.Removed) == 0 && res.Comments == 0 {
			return fr
		}
		log.Debugf("dropped %d resources", len(res.Removed))
		if !dryRun {
			if err := os.WriteFile(abs, res.Bytes(), 0644); err != nil {
				fr.Err = fmt.Errorf("writing %s: %w", f, err)
			}
		}
	}
	return fr
}

// removeWithDir removes file and then its directory if nothing is left in it.
func removeWithDir(file string) error {
	if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
		return err
	}
	dir := filepath.Dir(file)
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return nil
	}
	return os.Remove(dir)
}
