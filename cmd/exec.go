package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticket-seating/config"
	"ticket-seating/internal/checkout"
	"ticket-seating/internal/handlers"
	"ticket-seating/internal/handoff"
	"ticket-seating/internal/kv"
	"ticket-seating/internal/repository"
	"ticket-seating/internal/seating"
	"ticket-seating/internal/services"
	"ticket-seating/monitoring"
	"ticket-seating/security"
	"ticket-seating/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go/v7"
)

func Start() error {
	cfg := config.LoadConfig()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	app := pocketbase.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	stores, err := newStores(ctx, app, cfg)
	if err != nil {
		return err
	}
	defer stores.close()

	monitor := monitoring.NewMonitor(redisClient, cfg.KeyPrefix)
	store := kv.NewRedisStore(redisClient, cfg.KeyPrefix)

	notifier := newNotifier(cfg, monitor, logger)
	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	// Initialize services
	eventService := services.NewEventService(stores.events, logger)
	seatService := services.NewSeatService(redisClient, cfg.KeyPrefix, cfg.SeatLockTimeout, monitor, logger)
	selectionService := services.NewSelectionService(store, seatService, seating.NewRenderer(logger), monitor, cfg.SelectionTTL, logger)
	checkoutService := services.NewCheckoutService(services.CheckoutDeps{
		Events:     eventService,
		Selections: selectionService,
		Seats:      seatService,
		Handoffs:   handoff.NewService(store, handoff.NewSigner(cfg.HandoffSecret), cfg.HandoffTTL, logger),
		Flows:      checkout.NewManager(store, cfg.HandoffTTL+cfg.PaymentTimeout, logger),
		Bookings:   stores.bookings,
		Notifier:   notifier,
		Publisher:  publisher,
		Monitor:    monitor,
	}, cfg.PaymentTimeout, logger)

	// Initialize handlers
	eventHandler := handlers.NewEventHandler(eventService)
	seatHandler := handlers.NewSeatHandler(eventService, selectionService)
	paymentHandler := handlers.NewPaymentHandler(checkoutService)
	adminHandler := handlers.NewAdminHandler(eventService, publisher, logger)
	rateLimiter := security.NewRateLimiter(redisClient, cfg.KeyPrefix, cfg.RateLimitPerMinute)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.IsDevelopment(),
	})
	app.RootCmd.AddCommand(newImportLayoutCmd(eventService))

	// Start background tasks
	go monitor.Run(ctx)
	if cfg.EnableMetrics {
		go serveMetrics(ctx, cfg.MetricsPort, logger)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel, logger)

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		if len(cfg.TrustedProxyHeaders) > 0 {
			se.App.Settings().TrustedProxy.Headers = cfg.TrustedProxyHeaders
			logger.Info("Trusting proxy headers for client IPs", "headers", cfg.TrustedProxyHeaders)
		}

		api := se.Router.Group("/api/v1")
		api.BindFunc(rateLimiter.Middleware())
		api.BindFunc(rateLimiter.AntiBotMiddleware())

		// Event endpoints
		api.GET("/events", eventHandler.ListEvents)
		api.GET("/events/{eventId}", eventHandler.GetEvent)

		// Seating endpoints
		api.GET("/events/{eventId}/seating", seatHandler.GetSeating)
		api.POST("/events/{eventId}/selection/toggle", seatHandler.ToggleSeat)
		api.GET("/events/{eventId}/selection", seatHandler.GetSelection)
		api.POST("/events/{eventId}/tickets", seatHandler.SetTickets)

		// Checkout endpoints
		api.POST("/checkout/handoff", paymentHandler.CreateHandoff)
		api.GET("/checkout/handoff/{sessionId}", paymentHandler.GetHandoff)
		api.GET("/checkout/{sessionId}", paymentHandler.GetCheckout)
		api.POST("/checkout/{sessionId}/payment-options", paymentHandler.RequestPaymentOptions)
		api.POST("/checkout/{sessionId}/confirm", paymentHandler.ConfirmPayment)
		api.POST("/checkout/{sessionId}/cancel", paymentHandler.CancelPayment)

		// Admin endpoints
		api.PUT("/admin/events/{eventId}/seating-map", adminHandler.UpdateSeatingMap).
			Bind(apis.RequireSuperuserAuth())

		// Health check
		se.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		logger.Info("Server routes registered", "event_store", cfg.EventStore)
		return se.Next()
	})

	setupEventHooks(app, publisher, logger)

	return app.Start()
}

type backends struct {
	events   repository.EventRepository
	bookings repository.BookingRepository
	close    func()
}

// newStores picks where events are read from and bookings are written to.
func newStores(ctx context.Context, app core.App, cfg *config.Config) (*backends, error) {
	switch cfg.EventStore {
	case "pocketbase", "":
		return &backends{
			events:   repository.NewPocketBaseEvents(app),
			bookings: repository.NewPocketBaseBookings(app),
			close:    func() {},
		}, nil
	case "mongo":
		client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		return &backends{
			events:   repository.NewMongoEvents(db),
			bookings: repository.NewMongoBookings(db),
			close: func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Disconnect(shutdownCtx); err != nil {
					slog.Warn("Failed to disconnect from mongo", "error", err)
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown EVENT_STORE %q", cfg.EventStore)
}

func newNotifier(cfg *config.Config, monitor *monitoring.Monitor, logger *slog.Logger) services.Notifier {
	if cfg.PubNubPublishKey == "" {
		logger.Info("PubNub not configured, seat updates are not broadcast")
		return services.NopNotifier{}
	}

	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUserID))
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	settings := utils.DefaultSettings
	settings.OnStateChange = func(name string, from, to utils.State) {
		monitor.TrackBreakerState(name, int(to))
		logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
	}
	breaker := utils.NewCircuitBreaker("pubnub", settings)

	return services.NewPubNubNotifier(pubnub.NewPubNub(pnConfig), breaker, logger)
}

func newPublisher(cfg *config.Config, logger *slog.Logger) services.Publisher {
	if cfg.RabbitURL == "" {
		logger.Info("RabbitMQ not configured, checkout messages are not published")
		return services.NopPublisher{}
	}

	publisher, err := services.NewAMQPPublisher(cfg.RabbitURL, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ, checkout messages are not published", "error", err)
		return services.NopPublisher{}
	}
	return publisher
}

func serveMetrics(ctx context.Context, port string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server stopped", "error", err)
	}
}

// setupEventHooks validates seating maps edited through the records API and
// announces changed maps, the same way the admin endpoint does.
func setupEventHooks(app *pocketbase.PocketBase, publisher services.Publisher, logger *slog.Logger) {
	app.OnRecordCreateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := validateEventRecord(e.Record); err != nil {
			return err
		}
		return e.Next()
	})

	app.OnRecordUpdateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := validateEventRecord(e.Record); err != nil {
			return err
		}
		changed := e.Record.Original().GetString("seating_map") != e.Record.GetString("seating_map")

		if err := e.Next(); err != nil {
			return err
		}
		if !changed {
			return nil
		}

		eventID := e.Record.Id
		if err := publisher.Publish(e.Request.Context(), services.RoutingSeatingMapUpdated, map[string]any{
			"event_id": eventID,
		}); err != nil {
			// the record is already saved
			logger.Warn("Failed to publish seating map update", "event_id", eventID, "error", err, "hook", "OnRecordUpdateRequest")
		}
		return nil
	})
}

func validateEventRecord(record *core.Record) error {
	event, err := repository.EventFromRecord(record)
	if err != nil {
		return apis.NewBadRequestError("Invalid event data", err)
	}
	if event.SeatingMap == nil {
		return nil
	}
	if err := services.ValidateSeatingMap(event.SeatingMap, event.TicketTypes); err != nil {
		return apis.NewBadRequestError(err.Error(), nil)
	}
	return nil
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc, logger *slog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutdown signal received, cleaning up...")
	cancel()
}
