package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/minios-linux/crowdsync/android"
	"github.com/minios-linux/crowdsync/config"
	"github.com/minios-linux/crowdsync/lockfile"
)

// AdditionsHeader is written at the top of generated vendor-delta documents.
const AdditionsHeader = "Generated by crowdsync from the vendor additions to this directory.\nDo not edit or commit this file."

// Upload uploads the sources of every configuration in order. For each one,
// vendor-delta documents are written and baseline targets are purged of
// vendor additions first when the configuration asks for it; both are
// undone after the upload, whether it succeeded or not. A configuration
// whose vendor additions cannot all be purged is not uploaded.
func (s *Syncer) Upload(ctx context.Context, configs []config.CrowdinConfig) (*Report, error) {
	rep := &Report{}
	if files := s.lock.Files(); len(files) > 0 {
		return rep, fmt.Errorf("%w (%d files)", ErrPendingPurges, len(files))
	}
	for _, cc := range configs {
		if err := s.uploadOne(ctx, cc, rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (s *Syncer) uploadOne(ctx context.Context, cc config.CrowdinConfig, rep *Report) (err error) {
	log := s.log.WithField("config", cc.Name)

	// Additions are read from the targets before they are purged.
	if cc.Additions {
		docs := s.WriteAdditions(ctx, rep)
		defer s.removeFiles(log, docs)
	}
	if cc.Purge {
		failed := len(rep.Failures)
		purged := s.PurgeBaselines(ctx, cc.Name, rep)
		defer func() {
			reverted, rerr := s.revertFiles(purged)
			rep.Reverted = append(rep.Reverted, reverted...)
			if rerr != nil && err == nil {
				err = rerr
			}
		}()
		incomplete := lo.Filter(rep.Failures[failed:], func(f Failure, _ int) bool {
			return errors.Is(f.Err, android.ErrPurgeIncomplete)
		})
		if len(incomplete) > 0 {
			return fmt.Errorf("%s: %w", incomplete[0].Path, android.ErrPurgeIncomplete)
		}
	}

	if s.opts.DryRun {
		log.Info("dry run: upload skipped")
		return nil
	}
	log.Info("uploading sources")
	if err := s.deps.Translator.Upload(ctx, crowdinProject(cc), s.cfg.Branch); err != nil {
		return err
	}
	log.Info("sources uploaded")
	return nil
}

// PurgeBaselines removes the vendor additions from every baseline target.
// Each purged file gets a backup and a lock file record before it is
// rewritten. Failures are recorded in rep and do not stop other files. It
// returns the purged files.
func (s *Syncer) PurgeBaselines(ctx context.Context, configName string, rep *Report) []string {
	var purged []string
	for _, b := range s.cfg.Baselines {
		for _, bf := range b.Files {
			target := b.Target(bf)
			log := s.log.WithField("file", target)

			base, err := s.loadBaseline(ctx, bf)
			if err != nil {
				rep.fail(target, err)
				continue
			}
			data, err := os.ReadFile(s.cfg.Abs(target))
			if err != nil {
				rep.fail(target, err)
				continue
			}
			res, err := android.NewDelta(base).Purge(data)
			if err != nil {
				rep.fail(target, fmt.Errorf("%s: %w", target, err))
				continue
			}
			if !res.Changed() {
				continue
			}

			if s.opts.DryRun {
				if diff, err := res.UnifiedDiff(target); err == nil {
					log.Debug(diff)
				}
				log.Infof("would purge %d resources", len(res.Removed))
				rep.Purged = append(rep.Purged, target)
				continue
			}
			if err := s.purgeFile(target, configName, res); err != nil {
				rep.fail(target, err)
				continue
			}
			log.Infof("purged %d resources", len(res.Removed))
			rep.Purged = append(rep.Purged, target)
			purged = append(purged, target)
		}
	}
	return purged
}

// purgeFile writes the backup, records it and replaces target with the
// purged text.
func (s *Syncer) purgeFile(target, configName string, res *android.PurgeResult) error {
	return PurgeFile(s.cfg.Root(), s.lock, target, configName, res)
}

// PurgeFile applies a purge result to a tree-relative file: the backup is
// written and recorded in lock (which is saved) before target is replaced.
func PurgeFile(root string, lock *lockfile.LockFile, target, configName string, res *android.PurgeResult) error {
	abs := filepath.Join(root, filepath.FromSlash(target))
	if err := os.WriteFile(lockfile.BackupPath(abs), res.Backup(), 0644); err != nil {
		return fmt.Errorf("writing backup of %s: %w", target, err)
	}
	lock.Record(target, configName, res.Backup(), res.Removed)
	if err := lock.Save(); err != nil {
		return err
	}
	if err := os.WriteFile(abs, res.Text, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}

// WriteAdditions writes one vendor-delta document per baseline directory
// that has additions. Failures are recorded in rep. It returns the written
// documents.
func (s *Syncer) WriteAdditions(ctx context.Context, rep *Report) []string {
	var docs []string
	for _, b := range s.cfg.Baselines {
		var entries []*android.Entry
		for _, bf := range b.Files {
			target := b.Target(bf)
			base, err := s.loadBaseline(ctx, bf)
			if err != nil {
				rep.fail(target, err)
				continue
			}
			derived, err := android.ParseFile(s.cfg.Abs(target))
			if err != nil {
				rep.fail(target, err)
				continue
			}
			entries = append(entries, android.NewDelta(base).Additions(derived)...)
		}
		if len(entries) == 0 {
			continue
		}

		doc := path.Join(b.Path, s.cfg.AdditionsFile)
		if err := s.writeFile(doc, android.BuildAdditionsFile(AdditionsHeader, entries)); err != nil {
			rep.fail(doc, err)
			continue
		}
		s.log.WithField("file", doc).Infof("wrote %d vendor additions", len(entries))
		rep.Additions = append(rep.Additions, doc)
		if !s.opts.DryRun {
			docs = append(docs, doc)
		}
	}
	return docs
}

func (s *Syncer) removeFiles(log *logrus.Entry, files []string) {
	for _, f := range files {
		if err := os.Remove(s.cfg.Abs(f)); err != nil && !os.IsNotExist(err) {
			log.WithField("file", f).Warnf("cannot remove: %v", err)
		}
	}
}

// Revert restores every file recorded in the lock file.
func (s *Syncer) Revert(ctx context.Context) (*Report, error) {
	rep := &Report{}
	reverted, err := s.revertFiles(s.lock.Files())
	rep.Reverted = reverted
	return rep, err
}

func (s *Syncer) revertFiles(files []string) ([]string, error) {
	return RevertFiles(s.cfg.Root(), s.lock, files, s.log)
}

// RevertFiles restores purged files from their backups. A backup whose
// checksum does not match the record is left in place and reported. The
// lock file is saved afterwards.
func RevertFiles(root string, lock *lockfile.LockFile, files []string, log *logrus.Entry) ([]string, error) {
	var (
		reverted []string
		firstErr error
	)
	for _, f := range files {
		p, ok := lock.Get(f)
		if !ok {
			continue
		}
		backup := filepath.Join(root, filepath.FromSlash(p.Backup))
		data, err := os.ReadFile(backup)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("reading backup of %s: %w", f, err)
			}
			continue
		}
		if !lock.Verify(f, data) {
			if firstErr == nil {
				firstErr = fmt.Errorf("backup of %s does not match its recorded checksum", f)
			}
			continue
		}
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(f)), data, 0644); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("restoring %s: %w", f, err)
			}
			continue
		}
		if err := os.Remove(backup); err != nil {
			log.WithField("file", f).Warnf("cannot remove backup: %v", err)
		}
		lock.Remove(f)
		log.WithField("file", f).Info("reverted purge")
		reverted = append(reverted, f)
	}
	if err := lock.Save(); err != nil && firstErr == nil {
		firstErr = err
	}
	return reverted, firstErr
}
