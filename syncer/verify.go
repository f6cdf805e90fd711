package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
)

// ResourcePattern matches resource documents below a tree root.
const ResourcePattern = "**/*.xml"

// ErrVerifyFailed is returned by Verify when translations would be dropped
// as invalid or cannot be parsed.
var ErrVerifyFailed = errors.New("verification failed")

// FindResourceFiles returns the slash-separated paths below root matching
// pattern, sorted.
func FindResourceFiles(root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = ResourcePattern
	}
	files, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Verify cleans every resource document of target without writing
// anything. target is a directory or a zip archive of translations. The
// returned error wraps ErrVerifyFailed when invalid strings or unparseable
// documents were found.
func Verify(ctx context.Context, target string, maxConcurrent int, log *logrus.Entry) (*Report, error) {
	root := target
	if strings.HasSuffix(strings.ToLower(target), ".zip") {
		tmp, err := os.MkdirTemp("", "crowdsync-verify-")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(tmp)
		if _, err := ExtractZip(target, tmp); err != nil {
			return nil, err
		}
		root = tmp
	}

	files, err := FindResourceFiles(root, ResourcePattern)
	if err != nil {
		return nil, err
	}
	log.Infof("verifying %d files", len(files))

	rep, err := CleanFiles(ctx, root, files, maxConcurrent, true, log)
	if err != nil {
		return rep, err
	}
	invalid, broken := len(rep.InvalidStrings()), len(rep.Unparseable())
	if invalid > 0 || broken > 0 {
		return rep, fmt.Errorf("%w: %d invalid strings, %d unparseable files", ErrVerifyFailed, invalid, broken)
	}
	return rep, nil
}
