// Package config implements .crowdsync.yaml configuration file support.
//
// The file lives in the root of the Android work tree and describes the
// Crowdin configurations to sync, the manifests that list the tree's
// repositories, the upstream baselines used for vendor-delta handling and
// the review server commits are pushed to.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the top-level .crowdsync.yaml structure.
type Config struct {
	// Branch is the default branch commits are pushed to (default "main").
	Branch string `yaml:"branch,omitempty"`
	// Username is the review server user. CROWDSYNC_USERNAME overrides it.
	Username string `yaml:"username,omitempty"`
	// ReviewHost and ReviewPort address the code review server.
	ReviewHost string `yaml:"review_host,omitempty"`
	ReviewPort int    `yaml:"review_port,omitempty"`
	// Topic is attached to every pushed change (default "translation").
	Topic string `yaml:"topic,omitempty"`
	// CommitMessage is the message of translation commits.
	CommitMessage string `yaml:"commit_message,omitempty"`

	Crowdin Crowdin `yaml:"crowdin"`

	// Manifests are repo manifests relative to the tree root, merged in order.
	Manifests []string `yaml:"manifests,omitempty"`
	// Baselines are the vendor-delta targets.
	Baselines []Baseline `yaml:"baselines,omitempty"`
	// AdditionsFile is the name of the generated vendor-delta document
	// (default "crowdsync_additions.xml").
	AdditionsFile string `yaml:"additions_file,omitempty"`
	// Ignore holds glob patterns of downloaded paths that are never committed.
	Ignore []string `yaml:"ignore,omitempty"`
	// MaxConcurrent bounds parallel Crowdin calls and file cleanups (default 4).
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`

	ignore []glob.Glob
	root   string
}

// Crowdin configures the Crowdin CLI.
type Crowdin struct {
	// CLI is the executable name or path (default "crowdin").
	CLI string `yaml:"cli,omitempty"`
	// Configs lists the Crowdin configuration files to sync.
	Configs []CrowdinConfig `yaml:"configs"`
}

// CrowdinConfig is one Crowdin project configuration.
type CrowdinConfig struct {
	// Name is a label shown in logs (default: base name of Config).
	Name string `yaml:"name,omitempty"`
	// Config is the crowdin.yml path relative to the tree root.
	Config string `yaml:"config"`
	// Identity is an optional credentials file passed with --identity.
	Identity string `yaml:"identity,omitempty"`
	// Purge removes vendor additions from baseline targets before uploading
	// sources, and restores them afterwards.
	Purge bool `yaml:"purge,omitempty"`
	// Additions writes vendor-delta documents next to baseline targets
	// before uploading sources, and removes them afterwards.
	Additions bool `yaml:"additions,omitempty"`
}

// Baseline is a values directory whose files are compared against upstream.
type Baseline struct {
	// Path is the values directory relative to the tree root.
	Path  string         `yaml:"path"`
	Files []BaselineFile `yaml:"files"`
}

// BaselineFile names one resource file and where its upstream copy lives.
// Exactly one of URL and Local is set.
type BaselineFile struct {
	File  string `yaml:"file"`
	URL   string `yaml:"url,omitempty"`
	Local string `yaml:"local,omitempty"`
}

// Target returns the derived file path of bf relative to the tree root.
func (b Baseline) Target(bf BaselineFile) string {
	return filepath.ToSlash(filepath.Join(b.Path, bf.File))
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the default config file name.
const FileName = ".crowdsync.yaml"

// EnvUsername overrides Config.Username.
const EnvUsername = "CROWDSYNC_USERNAME"

// Defaults.
const (
	DefaultBranch        = "main"
	DefaultTopic         = "translation"
	DefaultCommitMessage = "Automatic translation import"
	DefaultCLI           = "crowdin"
	DefaultReviewPort    = 29418
	DefaultAdditionsFile = "crowdsync_additions.xml"
	DefaultMaxConcurrent = 4
	// DefaultManifest is used when no manifests are listed.
	DefaultManifest = ".repo/manifests/default.xml"
)

// ErrNotFound is returned by Load when the directory has no config file.
var ErrNotFound = errors.New(FileName + " not found")

// Load reads and validates .crowdsync.yaml from rootDir.
func Load(rootDir string) (*Config, error) {
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", rootDir, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.root = rootDir
	return c, nil
}

// Parse decodes and validates a config document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		if strings.Contains(err.Error(), "not found in type") {
			return nil, fmt.Errorf("unsupported key: %w", err)
		}
		return nil, fmt.Errorf("parsing: %w", err)
	}
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() error {
	if c.Branch == "" {
		c.Branch = DefaultBranch
	}
	if v := os.Getenv(EnvUsername); v != "" {
		c.Username = v
	}
	if c.ReviewPort == 0 {
		c.ReviewPort = DefaultReviewPort
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.CommitMessage == "" {
		c.CommitMessage = DefaultCommitMessage
	}
	if c.Crowdin.CLI == "" {
		c.Crowdin.CLI = DefaultCLI
	}
	if c.AdditionsFile == "" {
		c.AdditionsFile = DefaultAdditionsFile
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if len(c.Manifests) == 0 {
		c.Manifests = []string{DefaultManifest}
	}
	for i := range c.Crowdin.Configs {
		cc := &c.Crowdin.Configs[i]
		if cc.Name == "" && cc.Config != "" {
			cc.Name = strings.TrimSuffix(filepath.Base(cc.Config), filepath.Ext(cc.Config))
		}
	}
	for _, pattern := range c.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return fmt.Errorf("ignore pattern %q: %w", pattern, err)
		}
		c.ignore = append(c.ignore, g)
	}
	return nil
}

func (c *Config) validate() error {
	if len(c.Crowdin.Configs) == 0 {
		return errors.New("crowdin.configs is empty")
	}
	names := make(map[string]bool)
	for i, cc := range c.Crowdin.Configs {
		if cc.Config == "" {
			return fmt.Errorf("crowdin config #%d has no config path", i+1)
		}
		if names[cc.Name] {
			return fmt.Errorf("crowdin config name %q is used twice", cc.Name)
		}
		names[cc.Name] = true
	}
	for i, b := range c.Baselines {
		if b.Path == "" {
			return fmt.Errorf("baseline #%d has no path", i+1)
		}
		for _, f := range b.Files {
			if f.File == "" {
				return fmt.Errorf("baseline %q: file entry without a name", b.Path)
			}
			if (f.URL == "") == (f.Local == "") {
				return fmt.Errorf("baseline %q: %s needs exactly one of url and local", b.Path, f.File)
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Root returns the directory the config was loaded from.
func (c *Config) Root() string {
	return c.root
}

// SetRoot sets the tree root for a config built with Parse.
func (c *Config) SetRoot(dir string) {
	c.root = dir
}

// Abs resolves a tree-relative path against the config root.
func (c *Config) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.root, filepath.FromSlash(rel))
}

// ManifestPaths returns the manifests as absolute paths.
func (c *Config) ManifestPaths() []string {
	out := make([]string, 0, len(c.Manifests))
	for _, m := range c.Manifests {
		out = append(out, c.Abs(m))
	}
	return out
}

// Ignored reports whether a tree-relative path matches an ignore pattern.
func (c *Config) Ignored(rel string) bool {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "/")
	for _, g := range c.ignore {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// CrowdinConfig returns the Crowdin configuration with the given name.
func (c *Config) CrowdinConfig(name string) (CrowdinConfig, bool) {
	for _, cc := range c.Crowdin.Configs {
		if cc.Name == name {
			return cc, true
		}
	}
	return CrowdinConfig{}, false
}

// SelectConfigs returns the configurations whose name is in names, or all
// of them when names is empty.
func (c *Config) SelectConfigs(names []string) ([]CrowdinConfig, error) {
	if len(names) == 0 {
		return c.Crowdin.Configs, nil
	}
	var out []CrowdinConfig
	for _, n := range names {
		cc, ok := c.CrowdinConfig(n)
		if !ok {
			return nil, fmt.Errorf("unknown crowdin config %q", n)
		}
		out = append(out, cc)
	}
	return out, nil
}

// ErrNoReviewServer is returned by CheckReview when changes cannot be pushed.
var ErrNoReviewServer = errors.New("review server not configured")

// CheckReview returns ErrNoReviewServer unless both the review user and the
// review host are set.
func (c *Config) CheckReview() error {
	var missing []string
	if c.Username == "" {
		missing = append(missing, "username ("+EnvUsername+")")
	}
	if c.ReviewHost == "" {
		missing = append(missing, "review_host")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNoReviewServer, strings.Join(missing, " and "))
	}
	return nil
}

// ReviewURL returns the push URL of a repository on the review server.
func (c *Config) ReviewURL(project string) string {
	return fmt.Sprintf("ssh://%s@%s:%d/%s", c.Username, c.ReviewHost, c.ReviewPort, project)
}
