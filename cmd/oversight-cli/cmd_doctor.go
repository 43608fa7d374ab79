package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		Long:  "Run diagnostic checks against config, server, and auth",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

type diagnostic struct {
	name   string
	passed bool
	detail string
	hint   string
}

func (d diagnostic) print() {
	mark := "ok"
	if !d.passed {
		mark = "FAIL"
	}
	if d.detail != "" {
		fmt.Printf("  [%s] %s: %s\n", mark, d.name, d.detail)
	} else {
		fmt.Printf("  [%s] %s\n", mark, d.name)
	}
	if !d.passed && d.hint != "" {
		fmt.Printf("         hint: %s\n", d.hint)
	}
}

func runDoctor() error {
	fmt.Println("\noversight doctor")
	fmt.Println()

	cfgPath, cfg, cfgErr := doctorLoadConfig()
	url, apiKey := doctorResolveSettings(cfg)

	checks := []diagnostic{
		checkConfigFile(cfgPath, cfgErr),
		checkServerURL(url),
		checkAPIKey(apiKey),
	}
	if url != "" {
		checks = append(checks, checkServerReachable(url))
	}
	if url != "" && apiKey != "" {
		checks = append(checks, checkAuthentication(url, apiKey))
	}

	failed := 0
	for _, d := range checks {
		d.print()
		if !d.passed {
			failed++
		}
	}

	fmt.Println()
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	fmt.Printf("all %d checks passed\n", len(checks))
	return nil
}

func checkConfigFile(cfgPath string, err error) diagnostic {
	if err != nil {
		return diagnostic{
			name: "config file", detail: cfgPath,
			hint: "run: oversight init",
		}
	}
	return diagnostic{name: "config file", passed: true, detail: cfgPath}
}

func checkServerURL(url string) diagnostic {
	if url == "" {
		return diagnostic{
			name: "server url",
			hint: "set --url, OVERSIGHT_URL, or run oversight init",
		}
	}
	return diagnostic{name: "server url", passed: true, detail: url}
}

func checkAPIKey(apiKey string) diagnostic {
	if apiKey == "" {
		return diagnostic{
			name: "api key",
			hint: "set --api-key, OVERSIGHT_API_KEY, or run oversight init",
		}
	}
	return diagnostic{name: "api key", passed: true, detail: "configured"}
}

func checkServerReachable(url string) diagnostic {
	ver, err := doctorCheckHealth(url)
	if err != nil {
		return diagnostic{
			name: "server reachable", detail: url,
			hint: fmt.Sprintf("is oversightd running? (%v)", err),
		}
	}
	detail := url
	if ver != "" {
		detail = fmt.Sprintf("%s (v%s)", url, ver)
	}
	return diagnostic{name: "server reachable", passed: true, detail: detail}
}

func checkAuthentication(url, apiKey string) diagnostic {
	if err := doctorCheckAuth(url, apiKey); err != nil {
		return diagnostic{
			name: "authentication",
			hint: fmt.Sprintf("check your api key (%v)", err),
		}
	}
	return diagnostic{name: "authentication", passed: true, detail: "valid"}
}

func doctorLoadConfig() (string, *profilesFile, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil, err
	}
	cfgPath := filepath.Join(home, ".oversight", "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return cfgPath, nil, err
	}
	var cfg profilesFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfgPath, nil, err
	}
	return cfgPath, &cfg, nil
}

// doctorResolveSettings applies the same precedence as resolveConfig:
// flags, then environment, then the config file.
func doctorResolveSettings(cfg *profilesFile) (url, apiKey string) {
	url = flagURL
	apiKey = flagKey

	if url == defaultServerURL {
		if v := os.Getenv("OVERSIGHT_URL"); v != "" {
			url = v
		}
	}
	if apiKey == "" {
		apiKey = os.Getenv("OVERSIGHT_API_KEY")
	}

	if cfg != nil {
		profile := cfg.ActiveProfile
		if profile == "" {
			profile = "default"
		}
		if p, ok := cfg.Profiles[profile]; ok {
			if url == defaultServerURL && p.URL != "" {
				url = p.URL
			}
			if apiKey == "" && p.APIKey != "" {
				apiKey = p.APIKey
			}
		}
	}

	return url, apiKey
}

func doctorCheckHealth(url string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/api/v1/health", nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var health struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return "", err
	}
	return health.Version, nil
}

func doctorCheckAuth(url, apiKey string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/api/v1/stats", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("authentication failed (HTTP %d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
