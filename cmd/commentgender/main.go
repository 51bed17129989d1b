package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/CommentGender/internal/classify"
	"github.com/TobiSchelling/CommentGender/internal/config"
	"github.com/TobiSchelling/CommentGender/internal/export"
	"github.com/TobiSchelling/CommentGender/internal/llm"
	"github.com/TobiSchelling/CommentGender/internal/logging"
	"github.com/TobiSchelling/CommentGender/internal/pipeline"
	"github.com/TobiSchelling/CommentGender/internal/server"
	"github.com/TobiSchelling/CommentGender/internal/youtube"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "commentgender",
	Short:   "Gender breakdown of a YouTube video's commenters",
	Long:    "commentgender fetches every commenter of a YouTube video, classifies each display name as male, female or unknown with a language model, and exports a username,gender CSV.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		if err := config.LoadEnv(); err != nil {
			return err
		}
		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger, err = logging.New(cfg.Logging.Level, verbose)
		if err != nil {
			return err
		}
		if path != "" {
			logger.Debug("loaded config", zap.String("path", path))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(videosCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("commentgender", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/commentgender/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Set YOUTUBE_API_KEY and GEMINI_API_KEY (or another provider's key) in your environment or a .env file.")
		return nil
	},
}

// --- extract command ---

var (
	dryRun bool
	outDir string
)

var extractCmd = &cobra.Command{
	Use:   "extract <video-url>",
	Short: "Classify the commenters of a video and write the CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := newPipeline(!dryRun)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var report *pipeline.Report
		if dryRun {
			report, err = pipe.DryRun(ctx, args[0])
		} else {
			report, err = pipe.Run(ctx, args[0])
		}
		if err != nil {
			return err
		}

		printSteps(report)
		if dryRun {
			return nil
		}

		printRounds(report.Result)
		printLabels(report.Result)

		dir := outDir
		if dir == "" {
			dir = cfg.Output.Dir
		}
		path, err := export.WriteFile(dir, report.Filename, report.Result)
		if err != nil {
			return err
		}
		fmt.Printf("\nWrote %s\n", path)
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Fetch comments and count requests without calling the model")
	extractCmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for the CSV (default: output.dir from config)")
}

// --- videos command ---

var videosLimit int

var videosCmd = &cobra.Command{
	Use:   "videos <channel-id>",
	Short: "List a channel's recent uploads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newYouTubeClient()
		uploads, err := client.ChannelUploads(cmd.Context(), args[0], videosLimit)
		if err != nil {
			return err
		}
		if len(uploads) == 0 {
			fmt.Println("No uploads found.")
			return nil
		}
		printUploads(uploads)
		return nil
	},
}

func init() {
	videosCmd.Flags().IntVarP(&videosLimit, "limit", "n", 15, "Maximum number of uploads to list (0 for all)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := newPipeline(true)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(pipe, logger, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default: server.port from config)")
}

func newYouTubeClient() *youtube.Client {
	yt := cfg.YouTube
	return youtube.NewClient(cfg.YouTubeAPIKey(),
		youtube.WithBaseURL(yt.BaseURL),
		youtube.WithFeedURL(yt.FeedURL),
		youtube.WithPageSize(yt.PageSize),
		youtube.WithHTTPClient(&http.Client{Timeout: time.Duration(yt.TimeoutSeconds) * time.Second}),
		youtube.WithLogger(logger.Named("youtube")),
	)
}

// newPipeline wires the YouTube client and the classifier. Without needModel the
// provider is left out, which is enough for a dry run.
func newPipeline(needModel bool) (*pipeline.Pipeline, error) {
	client := newYouTubeClient()
	if !client.IsConfigured() {
		return nil, fmt.Errorf("YouTube API key not set: export %s or add it to .env", cfg.YouTube.APIKeyEnv)
	}

	cl := cfg.Classification
	var provider llm.Provider
	if needModel {
		var err error
		provider, err = llm.CreateProvider(cl, logger.Named("llm"))
		if err != nil {
			return nil, err
		}
	}

	classifier := classify.New(provider, logger.Named("classify"),
		classify.WithRoundBudget(cl.RoundBudget),
		classify.WithChunkSize(cl.ChunkSize),
		classify.WithMaxTokens(cl.MaxTokens),
	)
	return pipeline.New(client, classifier, logger, pipeline.WithMaxAuthors(cl.MaxAuthors)), nil
}
