package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oversightlabs/oversight/client"
)

const (
	defaultServerURL = "http://localhost:4040"
	configDirName    = ".oversight"
)

// Build-time variables set via ldflags.
var (
	version   = "0.3.0"
	commit    = ""
	buildDate = ""
)

// Shared command state, populated by the persistent flags and resolveConfig.
var (
	apiClient *client.Client
	flagURL   string
	flagKey   string
	flagFmt   string
)

func main() {
	root := newRootCmd()

	for _, sub := range []*cobra.Command{
		newRequestCmd(),
		newPolicyCmd(),
		newAuditCmd(),
		newChannelCmd(),
		newStatsCmd(),
	} {
		root.AddCommand(sub)
	}

	// init and doctor must work without a configured client.
	for _, sub := range []*cobra.Command{newInitCmd(), newDoctorCmd()} {
		sub.PersistentPreRun = func(cmd *cobra.Command, args []string) {}
		root.AddCommand(sub)
	}

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "oversight",
		Short:   "Oversight CLI — human-in-the-loop approval for agent actions",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveConfig()

			var opts []client.Option
			if flagKey != "" {
				opts = append(opts, client.WithAPIKey(flagKey))
			}
			apiClient = client.New(flagURL, opts...)
		},
		SilenceUsage: true,
	}
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&flagURL, "url", defaultServerURL, "Oversight server URL (env: OVERSIGHT_URL)")
	pf.StringVar(&flagKey, "api-key", "", "API key (env: OVERSIGHT_API_KEY)")
	pf.StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")

	return root
}

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("oversight version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("oversight version %s-dev", version)
}

// resolveConfig fills flagURL and flagKey that the user left at their
// defaults, consulting the environment first and the config file last.
func resolveConfig() {
	if flagURL == defaultServerURL {
		if v := os.Getenv("OVERSIGHT_URL"); v != "" {
			flagURL = v
		}
	}
	if flagKey == "" {
		flagKey = os.Getenv("OVERSIGHT_API_KEY")
	}

	url, key := fileSettings()
	if flagURL == defaultServerURL && url != "" {
		flagURL = url
	}
	if flagKey == "" {
		flagKey = key
	}
}

type configFile struct {
	// Flat format, written by older init versions.
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	// Profile format.
	Profiles      map[string]configProfile `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

type configProfile struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// fileSettings reads ~/.oversight/config.yaml. The active profile overrides
// the flat top-level fields; a missing or unparseable file yields nothing.
func fileSettings() (url, key string) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}

	data, err := os.ReadFile(filepath.Join(home, configDirName, "config.yaml"))
	if err != nil {
		return "", ""
	}

	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", ""
	}

	url, key = cfg.URL, cfg.APIKey

	name := cfg.ActiveProfile
	if name == "" {
		name = "default"
	}
	if p, ok := cfg.Profiles[name]; ok {
		if p.URL != "" {
			url = p.URL
		}
		if p.APIKey != "" {
			key = p.APIKey
		}
	}

	return url, key
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}
