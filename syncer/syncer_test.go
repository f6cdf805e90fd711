package syncer

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/minios-linux/crowdsync/android"
	"github.com/minios-linux/crowdsync/config"
	"github.com/minios-linux/crowdsync/crowdin"
	"github.com/minios-linux/crowdsync/lockfile"
	"github.com/minios-linux/crowdsync/project"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeTranslator struct {
	mu        sync.Mutex
	uploads   []string
	onUpload  func(p crowdin.Project) error
	downloads map[string][]string
	sources   map[string][]string
}

func (f *fakeTranslator) Upload(ctx context.Context, p crowdin.Project, branch string) error {
	f.mu.Lock()
	f.uploads = append(f.uploads, p.Name+"@"+branch)
	f.mu.Unlock()
	if f.onUpload != nil {
		return f.onUpload(p)
	}
	return nil
}

func (f *fakeTranslator) Download(ctx context.Context, p crowdin.Project, branch string) ([]string, error) {
	return f.downloads[p.Name], nil
}

func (f *fakeTranslator) ListSources(ctx context.Context, p crowdin.Project, branch string) ([]string, error) {
	if src, ok := f.sources[p.Name]; ok {
		return src, nil
	}
	return nil, errors.New("no such project")
}

// fakeGit answers git subcommands from a table keyed by
// "<repository path>: <args>".
type fakeGit struct {
	mu    sync.Mutex
	root  string
	out   map[string]string
	calls []string
}

func (g *fakeGit) Run(ctx context.Context, dir string, args ...string) (string, error) {
	rel, _ := filepath.Rel(g.root, dir)
	key := filepath.ToSlash(rel) + ": " + strings.Join(args, " ")
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, key)
	return g.out[key], nil
}

func (g *fakeGit) called(prefix string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, c := range g.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
}

func readTree(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return string(data)
}

func exists(root, name string) bool {
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(name)))
	return err == nil
}

func testConfig(t *testing.T, root, yml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yml))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	cfg.SetRoot(root)
	return cfg
}

// ---------------------------------------------------------------------------
// Upload
// ---------------------------------------------------------------------------

const uploadYAML = `
branch: lts
crowdin:
  configs:
    - config: crowdin/base.yml
      purge: true
      additions: true
baselines:
  - path: frameworks/base/core/res/res/values
    files:
      - file: strings.xml
        local: upstream/strings.xml
`

const (
	baselineDoc = `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="ok">OK</string>
</resources>
`
	derivedDoc = `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="ok">OK</string>
    <string name="vendor_dock">Dock</string>
</resources>
`
	targetPath    = "frameworks/base/core/res/res/values/strings.xml"
	additionsPath = "frameworks/base/core/res/res/values/crowdsync_additions.xml"
)

func uploadTree(t *testing.T) string {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"upstream/strings.xml": baselineDoc,
		targetPath:             derivedDoc,
	})
	return root
}

func TestUpload_PurgesAndRestores(t *testing.T) {
	root := uploadTree(t)
	tr := &fakeTranslator{}
	tr.onUpload = func(p crowdin.Project) error {
		if got := readTree(t, root, targetPath); strings.Contains(got, "vendor_dock") {
			t.Errorf("target not purged during upload:\n%s", got)
		}
		if got := readTree(t, root, additionsPath); !strings.Contains(got, `name="vendor_dock"`) {
			t.Errorf("additions document missing entry:\n%s", got)
		}
		return nil
	}

	s, err := New(testConfig(t, root, uploadYAML), nil, Deps{Translator: tr, Log: quietLog()}, Options{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	rep, err := s.Upload(context.Background(), []config.CrowdinConfig{{Name: "base", Config: "crowdin/base.yml", Purge: true, Additions: true}})
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	if len(tr.uploads) != 1 || tr.uploads[0] != "base@lts" {
		t.Errorf("uploads = %v", tr.uploads)
	}
	if got := readTree(t, root, targetPath); got != derivedDoc {
		t.Errorf("target not restored:\n%s", got)
	}
	if exists(root, additionsPath) {
		t.Error("additions document left behind")
	}
	if exists(root, targetPath+".backup") {
		t.Error("backup left behind")
	}
	if exists(root, lockfile.LockFileName) {
		t.Error("lock file left behind")
	}
	if len(rep.Purged) != 1 || len(rep.Reverted) != 1 || len(rep.Additions) != 1 {
		t.Errorf("report = purged %v, reverted %v, additions %v", rep.Purged, rep.Reverted, rep.Additions)
	}
}

func TestUpload_FailureStillRestores(t *testing.T) {
	root := uploadTree(t)
	tr := &fakeTranslator{onUpload: func(crowdin.Project) error { return errors.New("401 unauthorized") }}
	s, err := New(testConfig(t, root, uploadYAML), nil, Deps{Translator: tr, Log: quietLog()}, Options{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	cfgs, _ := s.cfg.SelectConfigs(nil)
	if _, err := s.Upload(context.Background(), cfgs); err == nil {
		t.Fatal("expected upload error")
	}
	if got := readTree(t, root, targetPath); got != derivedDoc {
		t.Errorf("target not restored after failure:\n%s", got)
	}
	if len(s.Lock().Files()) != 0 {
		t.Errorf("pending purges = %v", s.Lock().Files())
	}
}

func TestUpload_UnlocatedAdditionSkipsUpload(t *testing.T) {
	root := t.TempDir()
	derived := "<resources>\n    <string name=\"ok\">OK</string>\n    <string name=\"a&amp;b\">AB</string>\n</resources>\n"
	writeTree(t, root, map[string]string{
		"upstream/strings.xml": baselineDoc,
		targetPath:             derived,
	})
	tr := &fakeTranslator{}
	s, err := New(testConfig(t, root, uploadYAML), nil, Deps{Translator: tr, Log: quietLog()}, Options{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	cfgs, _ := s.cfg.SelectConfigs(nil)
	rep, err := s.Upload(context.Background(), cfgs)
	if !errors.Is(err, android.ErrPurgeIncomplete) {
		t.Fatalf("Upload error = %v, want ErrPurgeIncomplete", err)
	}
	if len(tr.uploads) != 0 {
		t.Errorf("uploaded unpurged sources: %v", tr.uploads)
	}
	if len(rep.Failures) != 1 || rep.Failures[0].Path != targetPath {
		t.Errorf("Failures = %v", rep.Failures)
	}
	if got := readTree(t, root, targetPath); got != derived {
		t.Errorf("target changed:\n%s", got)
	}
	if exists(root, additionsPath) {
		t.Error("additions document left behind")
	}
}

func TestUpload_PendingPurges(t *testing.T) {
	root := uploadTree(t)
	lf, err := lockfile.Load(root)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	lf.Record(targetPath, "base", []byte(derivedDoc), []string{"string/vendor_dock"})
	if err := lf.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	tr := &fakeTranslator{}
	s, err := New(testConfig(t, root, uploadYAML), nil, Deps{Translator: tr, Log: quietLog()}, Options{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	cfgs, _ := s.cfg.SelectConfigs(nil)
	if _, err := s.Upload(context.Background(), cfgs); !errors.Is(err, ErrPendingPurges) {
		t.Errorf("err = %v, want ErrPendingPurges", err)
	}
	if len(tr.uploads) != 0 {
		t.Errorf("uploaded with pending purges: %v", tr.uploads)
	}
}

func TestUpload_DryRun(t *testing.T) {
	root := uploadTree(t)
	tr := &fakeTranslator{}
	s, err := New(testConfig(t, root, uploadYAML), nil, Deps{Translator: tr, Log: quietLog()}, Options{DryRun: true})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	cfgs, _ := s.cfg.SelectConfigs(nil)
	rep, err := s.Upload(context.Background(), cfgs)
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if len(tr.uploads) != 0 {
		t.Errorf("dry run uploaded: %v", tr.uploads)
	}
	if len(rep.Purged) != 1 || len(rep.Additions) != 1 {
		t.Errorf("report = purged %v, additions %v", rep.Purged, rep.Additions)
	}
	if got := readTree(t, root, targetPath); got != derivedDoc {
		t.Errorf("dry run changed target:\n%s", got)
	}
	if exists(root, additionsPath) || exists(root, lockfile.LockFileName) {
		t.Error("dry run wrote files")
	}
}

func TestRevert(t *testing.T) {
	root := uploadTree(t)
	s, err := New(testConfig(t, root, uploadYAML), nil, Deps{Translator: &fakeTranslator{}, Log: quietLog()}, Options{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	purged := s.PurgeBaselines(context.Background(), "base", &Report{})
	if len(purged) != 1 {
		t.Fatalf("purged = %v", purged)
	}

	// A reloaded lock file sees the interrupted purge.
	s2, err := New(testConfig(t, root, uploadYAML), nil, Deps{Translator: &fakeTranslator{}, Log: quietLog()}, Options{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	rep, err := s2.Revert(context.Background())
	if err != nil {
		t.Fatalf("Revert error: %v", err)
	}
	if len(rep.Reverted) != 1 {
		t.Errorf("reverted = %v", rep.Reverted)
	}
	if got := readTree(t, root, targetPath); got != derivedDoc {
		t.Errorf("target not restored:\n%s", got)
	}
}

func TestRevert_ChecksumMismatch(t *testing.T) {
	root := uploadTree(t)
	s, err := New(testConfig(t, root, uploadYAML), nil, Deps{Translator: &fakeTranslator{}, Log: quietLog()}, Options{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	s.PurgeBaselines(context.Background(), "base", &Report{})
	writeTree(t, root, map[string]string{targetPath + ".backup": "tampered"})

	if _, err := s.Revert(context.Background()); err == nil {
		t.Fatal("expected checksum error")
	}
	if len(s.Lock().Files()) != 1 {
		t.Error("record dropped despite mismatch")
	}
	if !exists(root, targetPath+".backup") {
		t.Error("backup removed despite mismatch")
	}
}

// ---------------------------------------------------------------------------
// Download
// ---------------------------------------------------------------------------

const downloadYAML = `
username: bot
review_host: review.minios.dev
crowdin:
  configs:
    - config: crowdin/settings.yml
    - config: crowdin/base.yml
ignore:
  - "**/values-eo/*.xml"
`

var downloadProjects = []project.Descriptor{
	{Path: "packages/apps/Settings", Name: "minios/Settings"},
	{Path: "frameworks/base", Name: "minios/base", Revision: "lts"},
}

const (
	settingsDE = "packages/apps/Settings/res/values-de/strings.xml"
	settingsFR = "packages/apps/Settings/res/values-fr/strings.xml"
	settingsEO = "packages/apps/Settings/res/values-eo/strings.xml"
	settingsJA = "packages/apps/Settings/res/values-ja/strings.xml"
	baseDE     = "frameworks/base/core/res/res/values-de/strings.xml"
	baseIT     = "frameworks/base/core/res/res/values-it/strings.xml"
	vendorDE   = "vendor/foo/res/values-de/strings.xml"
)

func downloadTree(t *testing.T) string {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		settingsDE: `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <!-- translator note -->
    <string name="title">Einstellungen</string>
    <string name="build" translatable="false">x</string>
</resources>
`,
		settingsFR: `<resources>
    <string name="empty"></string>
</resources>
`,
		settingsEO: `<resources>
    <!-- kept -->
    <string name="title">Agordoj</string>
</resources>
`,
		baseDE: `<resources>
    <string name="ok">Gut</string>
    <string name="bad">%1$s% kaputt</string>
</resources>
`,
		baseIT: `<resources><string name="x">`,
		vendorDE: `<resources>
    <string name="v">V</string>
</resources>
`,
	})
	return root
}

func TestDownload(t *testing.T) {
	root := downloadTree(t)
	tr := &fakeTranslator{downloads: map[string][]string{
		"settings": {settingsDE, settingsFR, settingsEO, settingsJA, settingsDE},
		"base":     {baseDE, baseIT, vendorDE},
	}}
	g := &fakeGit{root: root, out: map[string]string{
		"packages/apps/Settings: ls-files -m -o --exclude-standard":       "res/values-de/strings.xml\n",
		"packages/apps/Settings: ls-files -d":                             "res/values-fr/strings.xml\n",
		"frameworks/base: ls-files -m -o --exclude-standard":              "core/res/res/values-de/strings.xml\n",
		"frameworks/base: ls-files -- core/res/res/values-it/strings.xml": "core/res/res/values-it/strings.xml\n",
	}}

	cfg := testConfig(t, root, downloadYAML)
	s, err := New(cfg, downloadProjects, Deps{Translator: tr, Git: g, Log: quietLog()}, Options{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	cfgs, _ := cfg.SelectConfigs(nil)
	rep, err := s.Download(context.Background(), cfgs)
	if err != nil {
		t.Fatalf("Download error: %v", err)
	}

	t.Run("resolution", func(t *testing.T) {
		if rep.Resolved != 5 {
			t.Errorf("Resolved = %d, want 5", rep.Resolved)
		}
		if len(rep.Warnings) != 1 || rep.Warnings[0].Path != vendorDE {
			t.Errorf("Warnings = %v", rep.Warnings)
		}
		if len(rep.Ignored) != 1 || rep.Ignored[0] != settingsEO {
			t.Errorf("Ignored = %v", rep.Ignored)
		}
		if got := readTree(t, root, settingsEO); !strings.Contains(got, "<!-- kept -->") {
			t.Error("ignored file was cleaned")
		}
	})

	t.Run("cleaning", func(t *testing.T) {
		de := readTree(t, root, settingsDE)
		if strings.Contains(de, "translator note") || strings.Contains(de, `name="build"`) || !strings.Contains(de, "Einstellungen") {
			t.Errorf("settings de not cleaned:\n%s", de)
		}
		if exists(root, settingsFR) || exists(root, filepath.Dir(settingsFR)) {
			t.Error("empty document or its directory left behind")
		}
		inv := rep.InvalidStrings()
		if len(inv) != 1 || inv[0].Name != "bad" || inv[0].Path != baseDE {
			t.Errorf("InvalidStrings = %+v", inv)
		}
		if u := rep.Unparseable(); len(u) != 1 || u[0].Path != baseIT || u[0].Backup == "" {
			t.Errorf("Unparseable = %+v", u)
		}
		if len(g.called("frameworks/base: checkout -- core/res/res/values-it/strings.xml")) != 1 {
			t.Error("unparseable file not checked out")
		}
		if d := rep.Deleted(); len(d) != 1 || d[0] != settingsFR {
			t.Errorf("Deleted = %v", d)
		}
		var skipped int
		for _, fr := range rep.Files {
			if fr.Skipped {
				skipped++
			}
		}
		if skipped != 1 {
			t.Errorf("skipped = %d, want 1", skipped)
		}
	})

	t.Run("commits", func(t *testing.T) {
		if !rep.CommitsCreated() || rep.Failed() {
			t.Errorf("commits created %v, failed %v: %+v", rep.CommitsCreated(), rep.Failed(), rep.Failures)
		}
		if len(rep.Pushes) != 2 {
			t.Fatalf("pushes = %d, want 2", len(rep.Pushes))
		}
		if rep.Pushes[0].Unit.Path != "frameworks/base" || rep.Pushes[0].Staged != 1 {
			t.Errorf("first push = %+v", rep.Pushes[0])
		}
		if rep.Pushes[1].Staged != 2 {
			t.Errorf("settings staged %d, want 2", rep.Pushes[1].Staged)
		}
		want := "frameworks/base: push ssh://bot@review.minios.dev:29418/minios/base HEAD:refs/for/lts%topic=translation"
		if p := g.called("frameworks/base: push"); len(p) != 1 || p[0] != want {
			t.Errorf("push calls = %v", p)
		}
	})

	t.Run("languages", func(t *testing.T) {
		langs := rep.Languages()
		if langs[language.German] != 3 || langs[language.Italian] != 1 {
			t.Errorf("Languages = %v", langs)
		}
	})
}

func TestSources(t *testing.T) {
	root := t.TempDir()
	tr := &fakeTranslator{sources: map[string][]string{
		"settings": {settingsDE, "packages/apps/Settings/res/values/strings.xml"},
		"base":     {baseDE, settingsDE},
	}}
	cfg := testConfig(t, root, downloadYAML)
	s, err := New(cfg, downloadProjects, Deps{Translator: tr, Log: quietLog()}, Options{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	cfgs, _ := cfg.SelectConfigs(nil)

	paths, err := s.Sources(context.Background(), cfgs)
	if err != nil {
		t.Fatalf("Sources error: %v", err)
	}
	want := []string{settingsDE, "packages/apps/Settings/res/values/strings.xml", baseDE}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("Sources = %v, want %v", paths, want)
	}
	if res := s.Resolver().Resolve(paths); len(res.Units) != 2 {
		t.Errorf("units = %d, want 2", len(res.Units))
	}

	tr.sources = nil
	if _, err := s.Sources(context.Background(), cfgs); err == nil || !strings.Contains(err.Error(), "settings") {
		t.Errorf("Sources error = %v, want one naming the config", err)
	}
}

func TestDownload_NoReviewServer(t *testing.T) {
	t.Setenv(config.EnvUsername, "")
	root := downloadTree(t)
	before := readTree(t, root, settingsDE)
	tr := &fakeTranslator{downloads: map[string][]string{"settings": {settingsDE}}}
	g := &fakeGit{root: root}
	cfg := testConfig(t, root, "crowdin:\n  configs:\n    - config: crowdin/settings.yml\n")

	s, err := New(cfg, downloadProjects, Deps{Translator: tr, Git: g, Log: quietLog()}, Options{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	cfgs, _ := cfg.SelectConfigs(nil)
	if _, err := s.Download(context.Background(), cfgs); !errors.Is(err, config.ErrNoReviewServer) {
		t.Fatalf("Download error = %v, want ErrNoReviewServer", err)
	}
	if _, err := s.ImportZip(context.Background(), nil); !errors.Is(err, config.ErrNoReviewServer) {
		t.Fatalf("ImportZip error = %v, want ErrNoReviewServer", err)
	}
	if len(g.calls) != 0 {
		t.Errorf("git called: %v", g.calls)
	}
	if got := readTree(t, root, settingsDE); got != before {
		t.Errorf("file cleaned before the check:\n%s", got)
	}

	t.Run("no push", func(t *testing.T) {
		s, err := New(cfg, downloadProjects, Deps{Translator: tr, Git: g, Log: quietLog()}, Options{NoPush: true})
		if err != nil {
			t.Fatalf("New error: %v", err)
		}
		if _, err := s.Download(context.Background(), cfgs); err != nil {
			t.Fatalf("Download error: %v", err)
		}
	})
}

func TestDownload_DryRun(t *testing.T) {
	root := downloadTree(t)
	tr := &fakeTranslator{downloads: map[string][]string{"settings": {settingsDE}}}
	g := &fakeGit{root: root}
	s, err := New(testConfig(t, root, downloadYAML), downloadProjects, Deps{Translator: tr, Git: g, Log: quietLog()}, Options{DryRun: true})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	cfgs, _ := s.cfg.SelectConfigs(nil)
	if _, err := s.Download(context.Background(), cfgs); err != nil {
		t.Fatalf("Download error: %v", err)
	}
	if len(g.calls) != 0 {
		t.Errorf("git called in dry run: %v", g.calls)
	}
}

// ---------------------------------------------------------------------------
// Zip import
// ---------------------------------------------------------------------------

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip Create: %v", err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestImportZip(t *testing.T) {
	root := t.TempDir()
	archive := filepath.Join(t.TempDir(), "export.zip")
	writeZip(t, archive, map[string]string{
		settingsDE: "<resources>\n    <!-- note -->\n    <string name=\"title\">Einstellungen</string>\n</resources>\n",
		"packages/apps/Settings/README.md": "readme",
	})
	notZip := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(notZip, []byte("not a zip"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	g := &fakeGit{root: root, out: map[string]string{
		"packages/apps/Settings: ls-files -m -o --exclude-standard": "README.md\nres/values-de/strings.xml\n",
	}}
	s, err := New(testConfig(t, root, downloadYAML), downloadProjects, Deps{Git: g, Log: quietLog()}, Options{NoPush: true})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	rep, err := s.ImportZip(context.Background(), []string{notZip, archive})
	if err != nil {
		t.Fatalf("ImportZip error: %v", err)
	}

	if len(rep.Failures) != 1 || rep.Failures[0].Path != notZip {
		t.Errorf("Failures = %+v", rep.Failures)
	}
	if got := readTree(t, root, settingsDE); strings.Contains(got, "note") {
		t.Errorf("imported file not cleaned:\n%s", got)
	}
	if !exists(root, "packages/apps/Settings/README.md") {
		t.Error("non-resource entry not extracted")
	}
	if len(rep.Files) != 1 {
		t.Errorf("processed %d files, want 1", len(rep.Files))
	}
	if adds := g.called("packages/apps/Settings: add"); len(adds) != 1 {
		t.Errorf("add calls = %v", adds)
	}
	if len(g.called("packages/apps/Settings: push")) != 0 {
		t.Error("pushed despite NoPush")
	}
}

func TestExtractZip_RejectsEscapingEntries(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "evil.zip")
	writeZip(t, archive, map[string]string{"../escape.xml": "<resources/>"})
	dest := t.TempDir()
	if _, err := ExtractZip(archive, dest); err == nil {
		t.Fatal("expected error for escaping entry")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dest), "escape.xml")); !os.IsNotExist(err) {
		t.Error("entry written outside destination")
	}
}

// ---------------------------------------------------------------------------
// Verify
// ---------------------------------------------------------------------------

func TestVerify(t *testing.T) {
	t.Run("clean tree passes", func(t *testing.T) {
		dir := t.TempDir()
		doc := "<resources>\n    <!-- c -->\n    <string name=\"a\">%1$s files</string>\n</resources>\n"
		writeTree(t, dir, map[string]string{"res/values-de/strings.xml": doc})
		rep, err := Verify(context.Background(), dir, 2, quietLog())
		if err != nil {
			t.Fatalf("Verify error: %v", err)
		}
		if len(rep.Files) != 1 {
			t.Errorf("verified %d files", len(rep.Files))
		}
		if got := readTree(t, dir, "res/values-de/strings.xml"); got != doc {
			t.Error("Verify modified the tree")
		}
	})

	t.Run("invalid strings fail", func(t *testing.T) {
		dir := t.TempDir()
		writeTree(t, dir, map[string]string{
			"a/res/values-de/strings.xml": "<resources><string name=\"a\">50 % off</string></resources>",
			"b/res/values-fr/strings.xml": "<resources><string",
		})
		rep, err := Verify(context.Background(), dir, 2, quietLog())
		if !errors.Is(err, ErrVerifyFailed) {
			t.Fatalf("err = %v, want ErrVerifyFailed", err)
		}
		if len(rep.InvalidStrings()) != 1 || len(rep.Unparseable()) != 1 {
			t.Errorf("invalid %d, unparseable %d", len(rep.InvalidStrings()), len(rep.Unparseable()))
		}
	})

	t.Run("zip archive", func(t *testing.T) {
		archive := filepath.Join(t.TempDir(), "build.zip")
		writeZip(t, archive, map[string]string{
			"main/res/values-it/strings.xml": "<resources><string name=\"a\">%d% in più</string></resources>",
		})
		if _, err := Verify(context.Background(), archive, 1, quietLog()); !errors.Is(err, ErrVerifyFailed) {
			t.Errorf("err = %v, want ErrVerifyFailed", err)
		}
	})
}

func TestFindResourceFiles(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"b/res/values-de/strings.xml": "",
		"a/res/values/strings.xml":    "",
		"a/README.md":                 "",
	})
	files, err := FindResourceFiles(dir, "")
	if err != nil {
		t.Fatalf("FindResourceFiles error: %v", err)
	}
	if got := strings.Join(files, ","); got != "a/res/values/strings.xml,b/res/values-de/strings.xml" {
		t.Errorf("files = %s", got)
	}
}
