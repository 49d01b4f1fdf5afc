// Package chatnotifier assembles the chat notification fan-out service: two
// event pipelines (message-created and chat-updated) plus the device
// registration API, wrapped around the shared microservice base server.
package chatnotifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/taskmutual/go-chat-notifier/chatnotifier/config"
	"github.com/taskmutual/go-chat-notifier/internal/api"
	"github.com/taskmutual/go-chat-notifier/internal/pipeline"
	"github.com/taskmutual/go-chat-notifier/pkg/chat"
	"github.com/taskmutual/go-chat-notifier/pkg/chatevent"
	"github.com/taskmutual/go-chat-notifier/pkg/dispatch"
)

type Wrapper struct {
	*microservice.BaseServer
	messagePipeline *messagepipeline.StreamingService[chatevent.MessageCreated]
	badgePipeline   *messagepipeline.StreamingService[chatevent.ChatUpdated]
	logger          *slog.Logger
}

// New assembles the service from its injected collaborators.
//
// The store is read-only from the pipelines' point of view; the writer is
// used only by the registration API. Passing them separately keeps that split
// visible at the wiring site.
func New(
	cfg *config.Config,
	messageConsumer messagepipeline.MessageConsumer,
	chatConsumer messagepipeline.MessageConsumer,
	dispatcher dispatch.Dispatcher,
	webDispatcher dispatch.WebDispatcher,
	store chat.Reader,
	writer chat.TokenWriter,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) (*Wrapper, error) {

	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	// Message Notification pipeline: chats/{chatId}/messages/{messageId} creates.
	messagePipeline, err := messagepipeline.NewStreamingService(
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		messageConsumer,
		pipeline.MessageCreatedTransformer,
		pipeline.NewMessageProcessor(store, dispatcher, webDispatcher, logger),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message pipeline: %w", err)
	}

	// Badge Reconciliation pipeline: chats/{chatId} updates.
	badgePipeline, err := messagepipeline.NewStreamingService(
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		chatConsumer,
		pipeline.ChatUpdatedTransformer,
		pipeline.NewBadgeProcessor(store, dispatcher, webDispatcher, logger),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create badge pipeline: %w", err)
	}

	// Device registration API.
	deviceAPI := api.NewDeviceAPI(writer, logger)

	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	handle := func(pattern string, handlerFunc http.HandlerFunc) {
		mux.Handle(pattern, corsMiddleware(authMiddleware(handlerFunc)))
	}

	handle("POST /api/v1/device/fcm", deviceAPI.RegisterFCM)
	handle("DELETE /api/v1/device/fcm", deviceAPI.UnregisterFCM)
	handle("POST /api/v1/device/web", deviceAPI.RegisterWeb)
	handle("DELETE /api/v1/device/web", deviceAPI.UnregisterWeb)

	// CORS preflight for the API namespace.
	mux.Handle("OPTIONS /api/v1/", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	return &Wrapper{
		BaseServer:      baseServer,
		messagePipeline: messagePipeline,
		badgePipeline:   badgePipeline,
		logger:          logger,
	}, nil
}

func (w *Wrapper) Start(ctx context.Context) error {
	w.logger.Info("Starting fan-out pipelines...")
	if err := w.messagePipeline.Start(ctx); err != nil {
		return fmt.Errorf("failed to start message pipeline: %w", err)
	}
	if err := w.badgePipeline.Start(ctx); err != nil {
		return fmt.Errorf("failed to start badge pipeline: %w", err)
	}
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	var finalErr error
	if err := w.messagePipeline.Stop(ctx); err != nil {
		w.logger.Error("Message pipeline shutdown failed.", "err", err)
		finalErr = err
	}
	if err := w.badgePipeline.Stop(ctx); err != nil {
		w.logger.Error("Badge pipeline shutdown failed.", "err", err)
		finalErr = err
	}
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}
	w.logger.Info("Service shutdown complete.")
	return finalErr
}
