package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/videold-go/internal/app"
	"github.com/yourusername/videold-go/internal/bootstrap"
	"github.com/yourusername/videold-go/internal/domain"
	"github.com/yourusername/videold-go/pkg/logger"
)

var (
	configPath string
	outputDir  string
	verbose    bool
	rootCmd    = &cobra.Command{
		Use:           "videold",
		Short:         "VideoLD CLI - Fetch videos and playlists through a VideoLD backend",
		Long:          `A command-line client that inspects, selects and downloads media through a VideoLD backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Directory to save downloads to")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(membersCmd)
	rootCmd.AddCommand(thumbnailCmd)
	rootCmd.AddCommand(configCmd)
}

// session is one CLI invocation's wired runtime
type session struct {
	config *domain.Config
	log    *zap.Logger
	rt     *bootstrap.Runtime
}

func newSession(ctx context.Context) (*session, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		abs, err := filepath.Abs(outputDir)
		if err != nil {
			return nil, fmt.Errorf("invalid output directory: %w", err)
		}
		config.Download.OutputDir = abs
	}

	level := config.Logging.Level
	if verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{
		Level:      level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	rt, err := bootstrap.Build(ctx, config, log, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return &session{config: config, log: log, rt: rt}, nil
}

func (s *session) orch() *app.Orchestrator {
	return s.rt.Orchestrator
}

func (s *session) close() {
	if err := s.rt.Close(); err != nil {
		s.log.Warn("Failed to release resources", zap.Error(err))
	}
	_ = s.log.Sync()
}

// withSession runs fn against a fresh session that is torn down afterwards
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, err := newSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()
	return fn(cmd.Context(), s)
}

// fetch loads url and fails on blank input instead of treating it as a no-op
func fetch(ctx context.Context, s *session, url string) (*domain.Resource, error) {
	res, err := s.orch().FetchResource(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", domain.UserMessage(err), err)
	}
	if res == nil {
		return nil, fmt.Errorf("no url given")
	}
	return res, nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
