// crowdsync: Crowdin translation sync for Android source trees.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/text/language"

	"github.com/minios-linux/crowdsync/android"
	"github.com/minios-linux/crowdsync/config"
	"github.com/minios-linux/crowdsync/crowdin"
	"github.com/minios-linux/crowdsync/fetch"
	"github.com/minios-linux/crowdsync/gitrepo"
	"github.com/minios-linux/crowdsync/i18n"
	"github.com/minios-linux/crowdsync/langmeta"
	"github.com/minios-linux/crowdsync/lockfile"
	"github.com/minios-linux/crowdsync/manifest"
	"github.com/minios-linux/crowdsync/project"
	"github.com/minios-linux/crowdsync/syncer"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	infoTag    = color.New(color.FgBlue).SprintFunc()
	successTag = color.New(color.FgGreen).SprintFunc()
	warningTag = color.New(color.FgYellow, color.Bold).SprintFunc()
	errorTag   = color.New(color.FgRed).SprintFunc()
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(color.Error, infoTag("[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(color.Error, successTag("[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(color.Error, warningTag("[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(color.Error, errorTag("[ERROR]")+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	verbose bool
)

// newLogger returns the logger handed to the sync packages.
func newLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(l)
}

// signalContext returns a context cancelled on the first interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logWarning(i18n.T("Interrupted, stopping..."))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "crowdsync",
		Short: i18n.T("Crowdin translation sync for Android source trees"),
		Long: `crowdsync: Crowdin translation sync for Android source trees.

Uploads string resources to Crowdin without vendor additions, downloads the
translations, cleans them and commits them for review to the repositories
that own them.

Commands:
  additions   Print the vendor additions of a resource file
  purge       Remove vendor additions from a resource file
  revert      Restore files purged by an interrupted run
  fetch       Save upstream baselines for offline use
  clean       Clean translated resource files
  resolve     Show which repository owns each path
  upload      Upload sources to Crowdin
  download    Download, clean, commit and push translations
  import      Import translations from Crowdin zip exports
  verify      Check translations for invalid strings`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Source tree root directory")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug output")

	root.AddCommand(
		newAdditionsCmd(),
		newPurgeCmd(),
		newRevertCmd(),
		newFetchCmd(),
		newCleanCmd(),
		newResolveCmd(),
		newUploadCmd(),
		newDownloadCmd(),
		newImportCmd(),
		newVerifyCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("crowdsync version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// additions / purge / revert (vendor delta against an upstream baseline)
// ---------------------------------------------------------------------------

func newAdditionsCmd() *cobra.Command {
	var output, header string

	cmd := &cobra.Command{
		Use:   "additions <baseline.xml> <derived.xml>",
		Short: i18n.T("Print the vendor additions of a resource file"),
		Long: `Compare a derived resource file with its upstream baseline and write the
translatable resources the baseline does not have as a standalone resource
document, ready for upload.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := android.LoadBaseline(args[0])
			if err != nil {
				return err
			}
			derived, err := android.ParseFile(args[1])
			if err != nil {
				return err
			}

			entries := android.NewDelta(base).Additions(derived)
			if len(entries) == 0 {
				logInfo(i18n.T("No vendor additions in %s"), args[1])
				return nil
			}
			doc := android.BuildAdditionsFile(header, entries)

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(doc)
				return err
			}
			if err := os.WriteFile(output, doc, 0644); err != nil {
				return err
			}
			logSuccess(i18n.N("Wrote %d addition to %s", "Wrote %d additions to %s", len(entries)), len(entries), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&header, "header", syncer.AdditionsHeader, "Comment written above the resources")

	return cmd
}

func newPurgeCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "purge <baseline.xml> <derived.xml>",
		Short: i18n.T("Remove vendor additions from a resource file"),
		Long: `Remove every resource the upstream baseline does not have from a derived
resource file. The original is kept next to it as <file>.backup and recorded
in crowdsync.lock under --root until 'crowdsync revert' restores it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := android.LoadBaseline(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			res, err := android.NewDelta(base).Purge(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}
			if !res.Changed() {
				logInfo(i18n.T("Nothing to purge in %s"), args[1])
				return nil
			}

			if dryRun {
				diff, err := res.UnifiedDiff(filepath.Base(args[1]))
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), colorDiff(diff))
				return nil
			}

			root, rel, err := treePath(rootDir, args[1])
			if err != nil {
				return err
			}
			lock, err := lockfile.Load(root)
			if err != nil {
				return err
			}
			if err := syncer.PurgeFile(root, lock, rel, "", res); err != nil {
				return err
			}
			logSuccess(i18n.N("Purged %d resource from %s", "Purged %d resources from %s", len(res.Removed)), len(res.Removed), rel)
			logInfo(i18n.T("Run 'crowdsync revert' to restore it"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the purge as a diff without changing anything")

	return cmd
}

func newRevertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revert",
		Short: i18n.T("Restore files purged by an interrupted run"),
		Long: `Restore every file recorded in crowdsync.lock from its backup. A backup
whose checksum does not match the record is left in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lock, err := lockfile.Load(rootDir)
			if err != nil {
				return err
			}
			files := lock.Files()
			if len(files) == 0 {
				logInfo(i18n.T("No pending purges"))
				return nil
			}
			reverted, err := syncer.RevertFiles(rootDir, lock, files, newLogger())
			logSuccess(i18n.N("Restored %d file", "Restored %d files", len(reverted)), len(reverted))
			if err != nil {
				logInfo("%s", lock.Summary())
			}
			return err
		},
	}
}

func newFetchCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: i18n.T("Save upstream baselines for offline use"),
		Long: `Download every baseline configured with a url into the output directory,
laid out like the source tree. Point the baseline entries at the saved
copies with 'local' to run without network access.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadTree(false)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			client := fetch.New(newLogger(), fetch.Options{})
			saved := 0
			for _, b := range cfg.Baselines {
				for _, bf := range b.Files {
					if bf.URL == "" {
						continue
					}
					dest := filepath.Join(output, filepath.FromSlash(b.Target(bf)))
					if err := client.Download(ctx, bf.URL, dest); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n", dest)
					saved++
				}
			}
			if saved == 0 {
				logInfo(i18n.T("No baselines with a url"))
				return nil
			}
			logSuccess(i18n.N("Saved %d baseline", "Saved %d baselines", saved), saved)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "baselines", "Output directory")

	return cmd
}

// treePath returns the absolute root and the slash-separated path of file
// relative to it.
func treePath(root, file string) (string, string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", "", err
	}
	absFile, err := filepath.Abs(file)
	if err != nil {
		return "", "", err
	}
	rel, err := filepath.Rel(absRoot, absFile)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%s is outside %s", file, root)
	}
	return absRoot, filepath.ToSlash(rel), nil
}

// colorDiff highlights the lines of a unified diff.
func colorDiff(diff string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			b.WriteString(color.New(color.Bold).Sprint(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(color.CyanString("%s", line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(color.GreenString("%s", line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(color.RedString("%s", line))
		default:
			b.WriteString(line)
		}
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// clean / verify (standalone cleanup)
// ---------------------------------------------------------------------------

func newCleanCmd() *cobra.Command {
	var (
		dryRun  bool
		pattern string
		jobs    int
	)

	cmd := &cobra.Command{
		Use:   "clean <path>...",
		Short: i18n.T("Clean translated resource files"),
		Long: `Clean downloaded translations in place: drop product variants without a
default, comments, untranslatable and empty strings, and strings with broken
format placeholders. Documents left empty are removed. Directories are
searched for files matching --pattern.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandPaths(args, pattern)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				logInfo(i18n.T("No resource files found"))
				return nil
			}

			ctx, cancel := signalContext()
			defer cancel()

			rep, err := syncer.CleanFiles(ctx, "", files, jobs, dryRun, newLogger())
			printReport(cmd.OutOrStdout(), rep)
			if err != nil {
				return err
			}
			if rep.Failed() {
				return errors.New(i18n.T("some files could not be cleaned"))
			}
			logSuccess(i18n.N("Cleaned %d file", "Cleaned %d files", len(rep.Files)), len(rep.Files))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without writing files")
	cmd.Flags().StringVar(&pattern, "pattern", syncer.ResourcePattern, "Glob for files inside directories")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", config.DefaultMaxConcurrent, "Files cleaned in parallel")

	return cmd
}

// expandPaths replaces every directory in paths by the files below it
// matching pattern.
func expandPaths(paths []string, pattern string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := syncer.FindResourceFiles(p, pattern)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			files = append(files, filepath.Join(p, filepath.FromSlash(f)))
		}
	}
	return files, nil
}

func newVerifyCmd() *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "verify <dir|archive.zip>",
		Short: i18n.T("Check translations for invalid strings"),
		Long: `Clean every resource file of a translation directory or Crowdin zip export
without writing anything, and fail when strings would be dropped for broken
format placeholders or files cannot be parsed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			rep, err := syncer.Verify(ctx, args[0], jobs, newLogger())
			if rep != nil {
				printReport(cmd.OutOrStdout(), rep)
			}
			if err != nil {
				return err
			}
			logSuccess(i18n.T("Verification succeeded"))
			return nil
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", config.DefaultMaxConcurrent, "Files checked in parallel")

	return cmd
}

// ---------------------------------------------------------------------------
// resolve
// ---------------------------------------------------------------------------

func newResolveCmd() *cobra.Command {
	var (
		sources bool
		configs []string
	)

	cmd := &cobra.Command{
		Use:   "resolve [path...]",
		Short: i18n.T("Show which repository owns each path"),
		Long: `Group resource paths by the repository that owns them, using the manifests
of the source tree. Paths are read from standard input when none are given.
With --sources the paths are the Crowdin sources of the configurations, which
shows the repositories a download commits to.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, projects, err := loadTree(true)
			if err != nil {
				return err
			}

			var paths []string
			switch {
			case sources:
				if len(args) > 0 {
					return errors.New("--sources does not take paths")
				}
				selected, err := cfg.SelectConfigs(configs)
				if err != nil {
					return err
				}
				s, err := newSyncer(cfg, projects, syncFlags{}, true)
				if err != nil {
					return err
				}
				ctx, cancel := signalContext()
				defer cancel()
				if paths, err = s.Sources(ctx, selected); err != nil {
					return err
				}
			case len(args) > 0:
				paths = args
			default:
				if paths, err = readPaths(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			res := project.NewResolver(projects, cfg.Branch).Resolve(paths)
			printUnits(cmd.OutOrStdout(), res.Units)
			for _, w := range res.Warnings {
				logWarning("%s", w)
			}
			logInfo(i18n.T("%d resolved, %d unresolved"), res.Resolved, res.Unresolved())
			return nil
		},
	}

	cmd.Flags().BoolVar(&sources, "sources", false, "Resolve the Crowdin sources instead of given paths")
	cmd.Flags().StringSliceVarP(&configs, "config", "c", nil, "Crowdin configurations to list by name (default: all)")

	return cmd
}

// readPaths returns the non-blank lines of r.
func readPaths(r io.Reader) ([]string, error) {
	var paths []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, sc.Err()
}

func printUnits(w io.Writer, units []*project.WorkUnit) {
	for _, u := range units {
		fmt.Fprintf(w, "%s (%s) -> %s\n", u.Path, u.Name, u.Branch)
		for _, f := range u.Files {
			fmt.Fprintf(w, "    %s\n", f)
		}
	}
}

// ---------------------------------------------------------------------------
// upload / download / import (Crowdin sync)
// ---------------------------------------------------------------------------

// syncFlags are shared by the commands that talk to Crowdin or git.
type syncFlags struct {
	configs []string
	dryRun  bool
	noPush  bool
}

func addSyncFlags(fs *pflag.FlagSet, f *syncFlags, push bool) {
	fs.StringSliceVarP(&f.configs, "config", "c", nil, "Crowdin configurations to sync by name (default: all)")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Show what would be done without changing anything")
	if push {
		fs.BoolVar(&f.noPush, "no-push", false, "Commit without pushing for review")
	}
}

// loadTree loads the config of the source tree and, when asked, the merged
// project list of its manifests.
func loadTree(withProjects bool) (*config.Config, []project.Descriptor, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, nil, err
	}
	if !withProjects {
		return cfg, nil, nil
	}
	projects, skipped, err := manifest.Load(cfg.ManifestPaths())
	for _, e := range skipped {
		logWarning(i18n.T("Manifest skipped: %v"), e)
	}
	if err != nil {
		return nil, nil, err
	}
	return cfg, projects, nil
}

func newSyncer(cfg *config.Config, projects []project.Descriptor, f syncFlags, withCLI bool) (*syncer.Syncer, error) {
	log := newLogger()
	deps := syncer.Deps{
		Fetcher: fetch.New(log, fetch.Options{}),
		Git:     gitrepo.ExecGit{},
		Log:     log,
	}
	if withCLI {
		cli := crowdin.New(cfg.Crowdin.CLI, cfg.Root(), crowdin.ExecRunner{}, log)
		if err := cli.Check(); err != nil {
			return nil, err
		}
		deps.Translator = cli
	}
	return syncer.New(cfg, projects, deps, syncer.Options{DryRun: f.dryRun, NoPush: f.noPush})
}

func newUploadCmd() *cobra.Command {
	var f syncFlags

	cmd := &cobra.Command{
		Use:   "upload",
		Short: i18n.T("Upload sources to Crowdin"),
		Long: `Upload source strings of every selected Crowdin configuration. Vendor
additions are removed from baseline files for the upload and restored
afterwards; vendor-delta documents are written and removed the same way.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadTree(false)
			if err != nil {
				return err
			}
			configs, err := cfg.SelectConfigs(f.configs)
			if err != nil {
				return err
			}
			s, err := newSyncer(cfg, nil, f, !f.dryRun)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			rep, err := s.Upload(ctx, configs)
			printReport(cmd.OutOrStdout(), rep)
			if errors.Is(err, syncer.ErrPendingPurges) {
				logInfo("%s", s.Lock().Summary())
			}
			if err != nil {
				return err
			}
			if rep.Failed() {
				return errors.New(i18n.T("upload finished with errors"))
			}
			logSuccess(i18n.T("Upload finished"))
			return nil
		},
	}

	addSyncFlags(cmd.Flags(), &f, false)

	return cmd
}

func newDownloadCmd() *cobra.Command {
	var f syncFlags

	cmd := &cobra.Command{
		Use:   "download",
		Short: i18n.T("Download, clean, commit and push translations"),
		Long: `Download the translations of every selected Crowdin configuration, clean
them and commit them to the repositories that own them. Commits are pushed
for review unless --no-push is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, projects, err := loadTree(true)
			if err != nil {
				return err
			}
			configs, err := cfg.SelectConfigs(f.configs)
			if err != nil {
				return err
			}
			s, err := newSyncer(cfg, projects, f, !f.dryRun)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			rep, err := s.Download(ctx, configs)
			return finishCommit(cmd.OutOrStdout(), rep, err)
		},
	}

	addSyncFlags(cmd.Flags(), &f, true)

	return cmd
}

func newImportCmd() *cobra.Command {
	var f syncFlags

	cmd := &cobra.Command{
		Use:   "import <archive.zip>...",
		Short: i18n.T("Import translations from Crowdin zip exports"),
		Long: `Extract Crowdin zip exports into the source tree, then clean, commit and
push the extracted resource files like 'download' does.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, projects, err := loadTree(true)
			if err != nil {
				return err
			}
			s, err := newSyncer(cfg, projects, f, false)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			rep, err := s.ImportZip(ctx, args)
			return finishCommit(cmd.OutOrStdout(), rep, err)
		},
	}

	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Extract to a temporary directory and commit nothing")
	cmd.Flags().BoolVar(&f.noPush, "no-push", false, "Commit without pushing for review")

	return cmd
}

// finishCommit reports a download or import run.
func finishCommit(w io.Writer, rep *syncer.Report, err error) error {
	printReport(w, rep)
	if err != nil {
		return err
	}
	if !rep.CommitsCreated() {
		logInfo(i18n.T("No commits created"))
	}
	if rep.Failed() {
		return errors.New(i18n.T("finished with errors"))
	}
	logSuccess(i18n.T("Done"))
	return nil
}

// ---------------------------------------------------------------------------
// Report
// ---------------------------------------------------------------------------

func printReport(w io.Writer, rep *syncer.Report) {
	for _, f := range rep.Failures {
		logError("%s: %v", f.Path, f.Err)
	}
	if n := len(rep.Warnings); n > 0 {
		logWarning(i18n.N("%d path has no repository", "%d paths have no repository", n), n)
		if verbose {
			for _, wr := range rep.Warnings {
				logWarning("  %s", wr)
			}
		}
	}
	if n := len(rep.Ignored); n > 0 {
		logInfo(i18n.N("%d file ignored", "%d files ignored", n), n)
	}

	for _, f := range rep.Purged {
		fmt.Fprintf(w, "purged     %s\n", f)
	}
	for _, f := range rep.Additions {
		fmt.Fprintf(w, "additions  %s\n", f)
	}
	for _, f := range rep.Reverted {
		fmt.Fprintf(w, "restored   %s\n", f)
	}

	if inv := rep.InvalidStrings(); len(inv) > 0 {
		logWarning(i18n.N("%d invalid string dropped", "%d invalid strings dropped", len(inv)), len(inv))
		for _, s := range inv {
			fmt.Fprintf(w, "invalid    %s: %s: %s\n", s.Path, s.Name, s.Text)
		}
	}
	for _, fr := range rep.Unparseable() {
		fmt.Fprintf(w, "broken     %s\n", fr.Path)
		if fr.Backup != "" {
			fmt.Fprintf(w, "           backup: %s\n", fr.Backup)
		}
	}
	for _, f := range rep.Deleted() {
		fmt.Fprintf(w, "deleted    %s\n", f)
	}

	if langs := languageSummary(rep.Languages()); len(langs) > 0 {
		fmt.Fprintf(w, "\n%s\n", i18n.T("Languages"))
		fmt.Fprintln(w, strings.Repeat("─", 40))
		for _, l := range langs {
			fmt.Fprintf(w, "  %s\n", l)
		}
	}

	for _, p := range rep.Pushes {
		fmt.Fprintf(w, "%-10s %s -> %s\n", pushStatus(p), p.Unit.Path, p.Unit.Branch)
		if p.Err != nil {
			logError("%s: %v", p.Unit.Path, p.Err)
		}
	}
}

// languageSummary renders per-language file counts, sorted by tag.
func languageSummary(langs map[language.Tag]int) []string {
	tags := make([]language.Tag, 0, len(langs))
	for t := range langs {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].String() < tags[j].String() })

	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, fmt.Sprintf("%-8s %-40s %d", t, langmeta.Of(t).Label(), langs[t]))
	}
	return out
}

func pushStatus(p gitrepo.PushResult) string {
	switch {
	case p.Err != nil:
		return "failed"
	case p.Pushed:
		return "pushed"
	case p.Committed:
		return "committed"
	}
	return "unchanged"
}
