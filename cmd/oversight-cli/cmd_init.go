package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// profileConfig holds connection settings for one named profile.
type profileConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// profilesFile is the on-disk layout of ~/.oversight/config.yaml.
type profilesFile struct {
	Profiles      map[string]profileConfig `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

func newInitCmd() *cobra.Command {
	var (
		initURL    string
		initAPIKey string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up Oversight CLI configuration",
		Long:  "Create ~/.oversight/config.yaml, interactively or via flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive := initURL == "" && initAPIKey == ""
			return runInit(initURL, initAPIKey, interactive)
		},
	}

	cmd.Flags().StringVar(&initURL, "url", "", "Server URL (non-interactive mode)")
	cmd.Flags().StringVar(&initAPIKey, "api-key", "", "API key (non-interactive mode)")
	return cmd
}

func runInit(url, apiKey string, interactive bool) error {
	if interactive {
		var err error
		url, apiKey, err = promptSettings()
		if err != nil {
			return err
		}
	}

	if url == "" {
		url = defaultServerURL
	}
	if apiKey == "" {
		return fmt.Errorf("API key is required")
	}

	ver, err := testConnection(url, apiKey)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	if interactive {
		fmt.Printf("\nconnected to %s (v%s)\n", url, ver)
	}

	cfgPath, err := writeConfig(url, apiKey)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("config saved to %s\n", cfgPath)
	if interactive {
		fmt.Println()
		fmt.Println("next steps:")
		fmt.Println("  oversight doctor        # full diagnostic check")
		fmt.Println("  oversight request list  # view the pending queue")
	}

	return nil
}

func promptSettings() (url, apiKey string, err error) {
	fmt.Println("\noversight setup")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("server url [%s]: ", defaultServerURL)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", "", err
	}
	url = strings.TrimSpace(line)

	fmt.Print("api key: ")
	line, err = reader.ReadString('\n')
	if err != nil {
		return "", "", err
	}
	apiKey = strings.TrimSpace(line)

	return url, apiKey, nil
}

func testConnection(url, apiKey string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/api/v1/health", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var health struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return "", err
	}
	if health.Version == "" {
		health.Version = "unknown"
	}
	return health.Version, nil
}

func writeConfig(url, apiKey string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(home, ".oversight")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}

	cfg := profilesFile{
		Profiles: map[string]profileConfig{
			"default": {URL: url, APIKey: apiKey},
		},
		ActiveProfile: "default",
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return "", err
	}

	return cfgPath, nil
}
