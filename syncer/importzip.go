package syncer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// ImportZip extracts translation archives into the work tree, then cleans,
// commits and pushes the extracted resource files like Download does. An
// archive that cannot be opened is reported and skipped. In a dry run the
// archives are extracted into a temporary directory and nothing is
// committed.
func (s *Syncer) ImportZip(ctx context.Context, archives []string) (*Report, error) {
	rep := &Report{}
	root := s.cfg.Root()
	if err := s.checkPush(root); err != nil {
		return rep, err
	}
	if s.opts.DryRun {
		tmp, err := os.MkdirTemp("", "crowdsync-import-")
		if err != nil {
			return rep, err
		}
		defer os.RemoveAll(tmp)
		root = tmp
	}

	var extracted []string
	for i, archive := range archives {
		log := s.log.WithField("archive", archive)
		log.Infof("extracting %d/%d", i+1, len(archives))
		files, err := ExtractZip(archive, root)
		if err != nil {
			log.Warnf("skipped: %v", err)
			rep.fail(archive, err)
			continue
		}
		extracted = append(extracted, files...)
	}

	xml := lo.Uniq(lo.Filter(extracted, func(f string, _ int) bool {
		return strings.HasSuffix(strings.ToLower(f), ".xml")
	}))
	return rep, s.process(ctx, root, xml, rep)
}

// ExtractZip extracts every file of archive under dest and returns their
// slash-separated paths relative to dest. Entries escaping dest are
// rejected.
func ExtractZip(archive, dest string) ([]string, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", archive, err)
	}
	defer zr.Close()

	var files []string
	for _, zf := range zr.File {
		name := path.Clean(strings.ReplaceAll(zf.Name, `\`, "/"))
		if name == "." || path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
			return files, fmt.Errorf("%s: illegal entry path %q", archive, zf.Name)
		}
		target := filepath.Join(dest, filepath.FromSlash(name))

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return files, err
			}
			continue
		}
		if err := extractEntry(zf, target); err != nil {
			return files, fmt.Errorf("%s: %w", archive, err)
		}
		files = append(files, name)
	}
	return files, nil
}

func extractEntry(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", zf.Name, err)
	}
	return out.Close()
}
