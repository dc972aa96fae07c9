package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/yourusername/videold-go/internal/app"
	"github.com/yourusername/videold-go/internal/domain"
	"github.com/yourusername/videold-go/internal/infrastructure"
	"github.com/yourusername/videold-go/pkg/logger"
	"go.uber.org/zap"
)

// Runtime holds the wired orchestrator and the resources it owns
type Runtime struct {
	Orchestrator *app.Orchestrator
	Saver        *infrastructure.FileSaver
	Channel      *infrastructure.ProgressChannel // nil when push progress is disabled
	EventLogger  *logger.MultiLogger             // nil when logs_dir is unset

	closers []func() error
}

// Options overrides the transports Build would otherwise create
type Options struct {
	HTTPClient *http.Client
	Dialer     infrastructure.WSDialer
}

// Build wires an orchestrator from config. The progress channel, when enabled, runs until
// ctx is cancelled or Close is called.
func Build(ctx context.Context, config *domain.Config, log *zap.Logger, opts Options) (*Runtime, error) {
	rt := &Runtime{}

	if config.Logging.LogsDir != "" {
		events, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
			Level:   config.Logging.Level,
			LogsDir: config.Logging.LogsDir,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize event logs: %w", err)
		}
		rt.EventLogger = events
		rt.closers = append(rt.closers, events.Close)
	}

	backend := infrastructure.NewBackendClient(&config.Backend, opts.HTTPClient, log)
	rt.Saver = infrastructure.NewFileSaver(config.Download.OutputDir, log)
	notifier := infrastructure.NewNotificationService(&config.Notification, log)

	var channel domain.ProgressChannel
	if config.Progress.Enabled {
		dialer := opts.Dialer
		if dialer == nil {
			dialer = infrastructure.NewWebsocketDialer(websocket.DefaultDialer)
		}
		pc, err := infrastructure.NewProgressChannel(config.Backend.ProgressURL(), dialer, config.Progress.ReconnectDelay, log)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to create progress channel: %w", err)
		}
		rt.Channel = pc
		channel = pc
		rt.closers = append(rt.closers, pc.Close)
	}

	rt.Orchestrator = app.NewOrchestrator(backend, rt.Saver, channel, notifier, config, rt.EventLogger, log)

	if rt.Channel != nil {
		rt.Channel.Start(ctx)
		log.Info("Progress channel started", zap.String("endpoint", config.Backend.ProgressURL()))
	}

	return rt, nil
}

// Close releases everything Build opened, in reverse order
func (r *Runtime) Close() error {
	var result *multierror.Error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	r.closers = nil
	return result.ErrorOrNil()
}
