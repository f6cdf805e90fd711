package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleYAML = `branch: lineage-21.0
username: translator
review_host: review.minios.dev
crowdin:
  configs:
    - config: crowdin/crowdin_main.yaml
      purge: true
    - name: aosp
      config: crowdin/crowdin_main_aosp.yaml
      identity: ~/.crowdin/identity.yaml
      additions: true
manifests:
  - android/default.xml
  - crowdin/extra_packages_main.xml
baselines:
  - path: packages/apps/Settings/res/values
    files:
      - file: strings.xml
        url: https://android.googlesource.com/platform/packages/apps/Settings/+/refs/heads/main/res/values/strings.xml?format=TEXT
      - file: arrays.xml
        local: upstream/Settings/arrays.xml
ignore:
  - "**/values-en-rXC/**"
  - "vendor/*/overlay/**"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return dir
}

func TestLoadDefaultsAndValidation(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(t.TempDir())
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Load error = %v, want ErrNotFound", err)
		}
	})

	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv(EnvUsername, "")
		dir := writeConfig(t, sampleYAML)
		c, err := Load(dir)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if c.Branch != "lineage-21.0" || c.Username != "translator" {
			t.Fatalf("Branch/Username = %q/%q", c.Branch, c.Username)
		}
		if c.ReviewPort != DefaultReviewPort || c.Topic != DefaultTopic || c.CommitMessage != DefaultCommitMessage {
			t.Fatalf("defaults not applied: port=%d topic=%q msg=%q", c.ReviewPort, c.Topic, c.CommitMessage)
		}
		if c.Crowdin.CLI != DefaultCLI || c.MaxConcurrent != DefaultMaxConcurrent || c.AdditionsFile != DefaultAdditionsFile {
			t.Fatalf("defaults not applied: cli=%q max=%d additions=%q", c.Crowdin.CLI, c.MaxConcurrent, c.AdditionsFile)
		}
		if c.Crowdin.Configs[0].Name != "crowdin_main" {
			t.Fatalf("derived config name = %q, want crowdin_main", c.Crowdin.Configs[0].Name)
		}
		if c.Root() != dir {
			t.Fatalf("Root() = %q, want %q", c.Root(), dir)
		}
		want := []string{filepath.Join(dir, "android", "default.xml"), filepath.Join(dir, "crowdin", "extra_packages_main.xml")}
		if got := c.ManifestPaths(); !reflect.DeepEqual(got, want) {
			t.Fatalf("ManifestPaths() = %v, want %v", got, want)
		}
	})

	t.Run("environment overrides username", func(t *testing.T) {
		t.Setenv(EnvUsername, "bot")
		c, err := Load(writeConfig(t, sampleYAML))
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if c.Username != "bot" {
			t.Fatalf("Username = %q, want bot", c.Username)
		}
	})

	t.Run("default manifest", func(t *testing.T) {
		dir := writeConfig(t, "crowdin:\n  configs:\n    - config: a.yaml\n")
		c, err := Load(dir)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		want := []string{filepath.Join(dir, ".repo", "manifests", "default.xml")}
		if got := c.ManifestPaths(); !reflect.DeepEqual(got, want) {
			t.Fatalf("ManifestPaths() = %v, want %v", got, want)
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		_, err := Load(writeConfig(t, "crowdin:\n  configs:\n    - config: a.yaml\nbranches: [main]\n"))
		if err == nil || !strings.Contains(err.Error(), "unsupported key") {
			t.Fatalf("expected unsupported key error, got %v", err)
		}
	})

	invalid := []struct {
		name string
		yaml string
		msg  string
	}{
		{"no configs", "branch: main\n", "crowdin.configs is empty"},
		{"config without path", "crowdin:\n  configs:\n    - name: x\n", "has no config path"},
		{"duplicate names", "crowdin:\n  configs:\n    - config: a/x.yaml\n    - config: b/x.yaml\n", "used twice"},
		{"baseline without source", "crowdin:\n  configs:\n    - config: a.yaml\nbaselines:\n  - path: res/values\n    files:\n      - file: strings.xml\n", "exactly one of url and local"},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("Load error = %v, want %q", err, tc.msg)
			}
		})
	}
}

func TestIgnored(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	tests := []struct {
		path string
		want bool
	}{
		{"packages/apps/Settings/res/values-en-rXC/strings.xml", true},
		{"vendor/minios/overlay/res/values-de/strings.xml", true},
		{"vendor/minios/extra/overlay/res/values-de/strings.xml", false},
		{"/packages/apps/Settings/res/values-de/strings.xml", false},
	}
	for _, tc := range tests {
		if got := c.Ignored(tc.path); got != tc.want {
			t.Errorf("Ignored(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestSelectConfigs(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	all, err := c.SelectConfigs(nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("SelectConfigs(nil) = %d configs, err %v", len(all), err)
	}
	one, err := c.SelectConfigs([]string{"aosp"})
	if err != nil || len(one) != 1 || !one[0].Additions {
		t.Fatalf("SelectConfigs(aosp) = %+v, err %v", one, err)
	}
	if _, err := c.SelectConfigs([]string{"nope"}); err == nil {
		t.Fatal("expected error for unknown config")
	}
}

func TestBaselineTargetAndReviewURL(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	b := c.Baselines[0]
	if got := b.Target(b.Files[0]); got != "packages/apps/Settings/res/values/strings.xml" {
		t.Errorf("Target = %q", got)
	}
	c.Username = "translator"
	if got := c.ReviewURL("minios/android_frameworks_base"); got != "ssh://translator@review.minios.dev:29418/minios/android_frameworks_base" {
		t.Errorf("ReviewURL = %q", got)
	}
}

func TestCheckReview(t *testing.T) {
	t.Setenv(EnvUsername, "")

	c, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if err := c.CheckReview(); err != nil {
		t.Errorf("CheckReview error: %v", err)
	}

	c, err = Parse([]byte("crowdin:\n  configs:\n    - config: crowdin/crowdin.yaml\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	err = c.CheckReview()
	if !errors.Is(err, ErrNoReviewServer) {
		t.Fatalf("CheckReview error = %v, want ErrNoReviewServer", err)
	}
	if !strings.Contains(err.Error(), "username") || !strings.Contains(err.Error(), "review_host") {
		t.Errorf("error does not name the missing keys: %v", err)
	}

	t.Setenv(EnvUsername, "bot")
	c, _ = Parse([]byte("review_host: review.minios.dev\ncrowdin:\n  configs:\n    - config: crowdin/crowdin.yaml\n"))
	if err := c.CheckReview(); err != nil {
		t.Errorf("CheckReview with %s set: %v", EnvUsername, err)
	}
}
