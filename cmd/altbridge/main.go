// altbridge is the local companion service for the alt-text browser
// extension. It extracts image context from pages, asks a multimodal
// model for alt text and writes the result back to a WordPress media
// library. The same pipeline is exposed as one-shot CLI commands for
// use without the extension.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/altsmith/altbridge/pkg/config"
	"github.com/altsmith/altbridge/pkg/extract"
	"github.com/altsmith/altbridge/pkg/httpbridge"
	"github.com/altsmith/altbridge/pkg/orchestrator"
	"github.com/altsmith/altbridge/pkg/vision"
	"github.com/altsmith/altbridge/pkg/wordpress"
)

var (
	// Global flags
	configFile string

	// serve flags
	listenAddr string

	// generate flags
	language string
	noUpdate bool

	// sync flags
	syncMode string
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "altbridge",
		Short: "Alt text companion service for WordPress",
		Long: `Altbridge generates alt text for images using a multimodal model and
writes it back to a WordPress media library.

It can run as a local bridge server for the browser extension, or as
one-shot commands:
  - generate: extract context from a page and generate alt text
  - resolve:  find the media library ID for an image URL
  - update:   write alt text for an image to WordPress
  - sync:     propagate stored alt text site-wide via the AltSync plugin`,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: ~/.altbridge.json)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(altsyncCmd())
	rootCmd.AddCommand(setupCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config named by --config, falling back to the
// default location. A missing file yields defaults.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

// buildExtractor wires the fetcher and renderer from config limits.
func buildExtractor(cfg *config.Config) *extract.Extractor {
	fetcher := extract.NewFetcher(&extract.FetcherConfig{
		UserAgent:    "altbridge/" + version + " (Alt Text Companion)",
		Timeout:      time.Duration(cfg.Extract.TimeoutSeconds) * time.Second,
		MaxRedirects: 10,
		MaxPageBytes: cfg.Extract.MaxPageBytes,
		MaxImgBytes:  cfg.Extract.MaxImageBytes,
	})
	renderer := extract.NewImageRenderer(&extract.ImageRendererConfig{
		MaxWidth:  cfg.Extract.MaxImageWidth,
		MaxHeight: cfg.Extract.MaxImageHeight,
		Quality:   cfg.Extract.JPEGQuality,
	})
	return extract.NewExtractor(fetcher, renderer)
}

// wpClientFromStore builds a WordPress client from the current settings,
// or nil when the site is not configured.
func wpClientFromStore(store *config.Store) *wordpress.Client {
	settings := store.Settings()
	if settings.WPSiteURL == "" {
		return nil
	}
	return wordpress.NewClient(&wordpress.Config{
		SiteURL:             settings.WPSiteURL,
		Username:            settings.WPUsername,
		ApplicationPassword: settings.WPApplicationPassword,
	})
}

// buildOrchestrator assembles the pipeline behind the bridge server.
// Captioner and WordPress client are rebuilt per operation so settings
// changes from the options page take effect without a restart.
func buildOrchestrator(store *config.Store, extractor *extract.Extractor) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Deps{
		Extract: extractor.Extract,
		Caption: func(ctx context.Context, req *vision.CaptionRequest) (string, error) {
			ai := store.AI()
			captioner := vision.NewCaptioner(vision.CaptionerConfig{
				APIKey:    store.Settings().APIKey,
				Model:     ai.Model,
				BaseURL:   ai.BaseURL,
				MaxTokens: ai.MaxTokens,
			})
			return captioner.Generate(ctx, req)
		},
		WPClient: func() *wordpress.Client { return wpClientFromStore(store) },
		Language: func() string { return store.Settings().Language },
		SyncMode: func() string { return store.Settings().DefaultSyncMode },
	})
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local bridge server for the browser extension",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				cancel()
				os.Exit(0)
			}()

			store := config.NewStore(cfg)
			orch := buildOrchestrator(store, buildExtractor(cfg))
			defer orch.Close()

			addr := listenAddr
			if addr == "" {
				addr = cfg.Bridge.ListenAddr
			}

			server := httpbridge.NewServer(ctx, store, orch)
			return server.Run(addr)
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (default: from config)")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <page-url> <image-url>",
		Short: "Generate alt text for an image on a page",
		Long: `Generate extracts the image's surrounding context from the page,
sends image and context to the configured model and prints the
generated alt text. With a configured WordPress site the text is also
written to the media library unless --no-update is set.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			extractor := buildExtractor(cfg)
			extracted, err := extractor.Extract(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			lang := cfg.Language
			if language != "" {
				lang = language
			}

			captioner := vision.NewCaptioner(vision.CaptionerConfig{
				APIKey:    cfg.APIKey,
				Model:     cfg.AI.Model,
				BaseURL:   cfg.AI.BaseURL,
				MaxTokens: cfg.AI.MaxTokens,
			})
			altText, err := captioner.Generate(ctx, &vision.CaptionRequest{
				ImageBase64: extracted.ImageBase64,
				ImageURL:    extracted.ImageURL,
				Filename:    extract.URLFilename(extracted.ImageURL),
				OriginalAlt: extracted.OriginalAlt,
				HTMLContext: extracted.HTMLContext,
				Language:    lang,
			})
			if err != nil {
				return err
			}

			fmt.Println(altText)

			if noUpdate || cfg.WPSiteURL == "" {
				return nil
			}

			client := wordpress.NewClient(&wordpress.Config{
				SiteURL:             cfg.WPSiteURL,
				Username:            cfg.WPUsername,
				ApplicationPassword: cfg.WPApplicationPassword,
			})
			mediaID := wordpress.NewResolver(client).Resolve(ctx, extracted.ImageURL)
			if mediaID == 0 {
				return wordpress.ErrMediaNotFound
			}
			if err := client.UpdateAltText(ctx, mediaID, altText); err != nil {
				return err
			}
			fmt.Printf("Updated media %d on %s\n", mediaID, client.SiteURL())
			return nil
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "Output language (en, cs; default: from config)")
	cmd.Flags().BoolVar(&noUpdate, "no-update", false, "Print the alt text without writing it to WordPress")
	return cmd
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <image-url>",
		Short: "Find the media library ID for an image URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := wpClient()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			mediaID := wordpress.NewResolver(client).Resolve(ctx, args[0])
			if mediaID == 0 {
				return wordpress.ErrMediaNotFound
			}
			fmt.Println(mediaID)
			return nil
		},
	}
}

func updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <image-url> <alt-text>",
		Short: "Write alt text for an image to the WordPress media library",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := wpClient()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			mediaID := wordpress.NewResolver(client).Resolve(ctx, args[0])
			if mediaID == 0 {
				return wordpress.ErrMediaNotFound
			}
			if err := client.UpdateAltText(ctx, mediaID, args[1]); err != nil {
				return err
			}
			fmt.Printf("Updated media %d on %s\n", mediaID, client.SiteURL())
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <image-url>",
		Short: "Propagate stored alt text site-wide via the AltSync plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := wpClient()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			mediaID := wordpress.NewResolver(client).Resolve(ctx, args[0])
			if mediaID == 0 {
				return wordpress.ErrMediaNotFound
			}

			mode := syncMode
			if mode == "" {
				mode = cfg.DefaultSyncMode
			}
			result, err := client.SyncImage(ctx, mediaID, mode)
			if err != nil {
				return err
			}
			fmt.Printf("Synced %d usage(s): %s\n", result.Updated, result.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&syncMode, "mode", "", "Sync mode passed to the plugin (default: from config)")
	return cmd
}

func altsyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "altsync",
		Short: "Check whether the AltSync plugin is active on the configured site",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := wpClient()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			status := client.ProbeAltSync(ctx)
			return json.NewEncoder(os.Stdout).Encode(status)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the altbridge version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("altbridge " + version)
		},
	}
}

// wpClient builds a WordPress client from config, erroring when no site
// is configured.
func wpClient() (*wordpress.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.WPSiteURL == "" {
		return nil, fmt.Errorf("no WordPress site configured, run 'altbridge setup' first")
	}
	return wordpress.NewClient(&wordpress.Config{
		SiteURL:             cfg.WPSiteURL,
		Username:            cfg.WPUsername,
		ApplicationPassword: cfg.WPApplicationPassword,
	}), nil
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}
