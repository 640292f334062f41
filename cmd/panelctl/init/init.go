// Package initcmder provides the init command for initializing a local
// .panelctl directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/panelctl/pkg/cliui"
	"github.com/papercomputeco/panelctl/pkg/config"
)

const (
	dirName = ".panelctl"

	// maxRemoteConfig caps the size of a config fetched with --preset <url>.
	maxRemoteConfig = 1 << 20
)

const initLongDesc string = `Initialize a new .panelctl/ directory in the current working directory.

Creates a local .panelctl/ directory that takes precedence over the default
~/.panelctl/ directory for configuration, credentials and stream dumps.

This is useful for keeping separate panel settings per project.

Use --preset to write a config.toml:
  local    talk to "panelctl devserver" on its default port
  kafka    like local, publishing chat turn events to localhost:9092
  <url>    download a shared config.toml

Examples:
  panelctl init
  panelctl init --preset local
  panelctl init --preset https://example.com/panelctl/config.toml`

const initShortDesc string = "Initialize a local .panelctl/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runInit(ctx, cmd.OutOrStdout(), preset)
		},
		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Write config.toml from a preset name ("+strings.Join(config.ValidPresetNames(), ", ")+") or URL")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	// Resolve the preset before touching the file system so a bad name or
	// URL leaves nothing behind.
	var cfg *config.Config
	if preset != "" {
		cfg, err = resolvePreset(ctx, preset)
		if err != nil {
			return err
		}
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .panelctl directory: %w", err)
		}
		fmt.Fprintf(out, "Initialized .panelctl directory: %s\n", dir)
	}

	if cfg == nil {
		return nil
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s Wrote %s from preset %s\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render(cfger.GetTarget()),
		cliui.NameStyle.Render(preset),
	)
	return nil
}

func resolvePreset(ctx context.Context, preset string) (*config.Config, error) {
	if strings.HasPrefix(preset, "http://") || strings.HasPrefix(preset, "https://") {
		return fetchRemoteConfig(ctx, preset)
	}
	return config.PresetConfig(preset)
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteConfig))
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
