package syncer

import (
	"sort"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/text/language"

	"github.com/minios-linux/crowdsync/android"
	"github.com/minios-linux/crowdsync/gitrepo"
	"github.com/minios-linux/crowdsync/project"
)

// FileResult is the outcome of cleaning one downloaded file.
type FileResult struct {
	Path     string
	Outcome  android.Outcome
	Removed  []android.Removal
	Comments int
	// Backup is set when an unparseable file was reset.
	Backup string
	// Skipped is set for listed files that do not exist.
	Skipped bool
	Err     error
}

// Invalid returns the strings dropped for malformed placeholders.
func (r FileResult) Invalid() []android.Removal {
	return lo.Filter(r.Removed, func(rm android.Removal, _ int) bool {
		return rm.Reason == android.ReasonInvalidFormat
	})
}

// Failure is a per-file error that did not stop the run.
type Failure struct {
	Path string
	Err  error
}

// Report collects the outcome of a run. It is safe for concurrent use
// while the run is in progress.
type Report struct {
	mu sync.Mutex

	Files    []FileResult
	Pushes   []gitrepo.PushResult
	Warnings []project.Warning
	// Resolved counts the downloaded paths assigned to a repository.
	Resolved int
	Ignored  []string
	// Purged, Reverted and Additions list tree-relative files touched by
	// the upload preparation.
	Purged    []string
	Reverted  []string
	Additions []string
	Failures  []Failure
}

func (r *Report) addFile(fr FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Files = append(r.Files, fr)
}

func (r *Report) addPush(pr gitrepo.PushResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Pushes = append(r.Pushes, pr)
}

func (r *Report) fail(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, Failure{Path: path, Err: err})
}

// sort orders the per-file and per-unit results by path.
func (r *Report) sort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.SliceStable(r.Files, func(i, j int) bool { return r.Files[i].Path < r.Files[j].Path })
	sort.SliceStable(r.Pushes, func(i, j int) bool { return r.Pushes[i].Unit.Path < r.Pushes[j].Unit.Path })
}

// CommitsCreated reports whether at least one repository got a commit.
func (r *Report) CommitsCreated() bool {
	return lo.SomeBy(r.Pushes, func(p gitrepo.PushResult) bool { return p.Committed })
}

// PushFailures returns the units whose commit or push failed.
func (r *Report) PushFailures() []gitrepo.PushResult {
	return lo.Filter(r.Pushes, func(p gitrepo.PushResult, _ int) bool { return p.Err != nil })
}

// InvalidString is a string dropped for a malformed placeholder.
type InvalidString struct {
	Path string
	Name string
	Text string
}

// InvalidStrings returns every string dropped for a malformed placeholder.
func (r *Report) InvalidStrings() []InvalidString {
	return lo.FlatMap(r.Files, func(fr FileResult, _ int) []InvalidString {
		return lo.Map(fr.Invalid(), func(rm android.Removal, _ int) InvalidString {
			return InvalidString{Path: fr.Path, Name: rm.Name, Text: rm.Text}
		})
	})
}

// Unparseable returns the files that were not well-formed.
func (r *Report) Unparseable() []FileResult {
	return lo.Filter(r.Files, func(fr FileResult, _ int) bool {
		return fr.Outcome == android.OutcomeUnparseable && !fr.Skipped
	})
}

// Deleted returns the files removed because nothing was left.
func (r *Report) Deleted() []string {
	return lo.FilterMap(r.Files, func(fr FileResult, _ int) (string, bool) {
		return fr.Path, fr.Outcome == android.OutcomeDeleted && !fr.Skipped
	})
}

// Languages counts the processed files per language.
func (r *Report) Languages() map[language.Tag]int {
	tagged := lo.FilterMap(r.Files, func(fr FileResult, _ int) (language.Tag, bool) {
		if fr.Skipped {
			return language.Und, false
		}
		return android.LocaleOfPath(fr.Path)
	})
	return lo.CountValues(tagged)
}

// Failed reports whether anything went wrong.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0 || len(r.PushFailures()) > 0
}
