package main

import (
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/altsmith/altbridge/pkg/config"
)

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactively create or update the altbridge configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if configFile != "" {
				cfg.SetPath(configFile)
			}
			return runSetup(cfg)
		},
	}
}

// runSetup prompts for each user setting, showing the current value as
// the default. Empty input keeps the current value.
func runSetup(cfg *config.Config) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("altbridge setup")
	fmt.Println("Press Enter to keep the current value.")
	fmt.Println()

	settings := cfg.Settings()

	settings.APIKey, err = promptValue(rl, "AI API key", settings.APIKey, true)
	if err != nil {
		return err
	}
	settings.WPSiteURL, err = promptValue(rl, "WordPress site URL (blank to disable)", settings.WPSiteURL, false)
	if err != nil {
		return err
	}
	if settings.WPSiteURL != "" {
		settings.WPUsername, err = promptValue(rl, "WordPress username", settings.WPUsername, false)
		if err != nil {
			return err
		}
		settings.WPApplicationPassword, err = promptValue(rl, "WordPress application password", settings.WPApplicationPassword, true)
		if err != nil {
			return err
		}
	}
	settings.Language, err = promptValue(rl, "Alt text language (en, cs)", settings.Language, false)
	if err != nil {
		return err
	}
	settings.DefaultSyncMode, err = promptValue(rl, "Default sync mode (empty_only, all)", settings.DefaultSyncMode, false)
	if err != nil {
		return err
	}

	if err := cfg.ApplySettings(settings); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Printf("\nConfiguration saved to %s\n", cfg.Path())
	return nil
}

// promptValue reads one setting. Secrets show only a masked placeholder
// for their current value; the stored value itself never changes unless
// new input is given.
func promptValue(rl *readline.Instance, label, current string, secret bool) (string, error) {
	display := current
	if secret && current != "" {
		display = maskSecret(current)
	}
	if display != "" {
		rl.SetPrompt(fmt.Sprintf("%s [%s]: ", label, display))
	} else {
		rl.SetPrompt(label + ": ")
	}

	line, err := rl.Readline()
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current, nil
	}
	return line, nil
}

// maskSecret keeps the last four characters visible.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
