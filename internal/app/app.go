package app

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/cart-pricing/internal/domain/notify"
	"github.com/xenking/cart-pricing/internal/domain/order"
	"github.com/xenking/cart-pricing/internal/handler"
	notifyimpl "github.com/xenking/cart-pricing/internal/notify"
	"github.com/xenking/cart-pricing/pkg/health"
	"github.com/xenking/cart-pricing/pkg/httpmiddleware"
)

// Server is the assembled HTTP stack with the resources it owns.
type Server struct {
	Handler http.Handler
	Health  *health.Health

	closers []func()
}

// Close releases storage and notifier resources in reverse order.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// NewServer wires storage, notifiers, the order service and the HTTP
// middleware chain. Health checks are registered but not started.
func NewServer(ctx context.Context, lg *zap.Logger, cfg *Config, tp trace.TracerProvider, mp metric.MeterProvider) (_ *Server, rerr error) {
	s := &Server{Health: health.New()}
	defer func() {
		if rerr != nil {
			s.Close()
		}
	}()
	s.Health.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	s.Health.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))

	st, err := openStores(ctx, lg, cfg, s.Health)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, st.close)

	router, closeNotify, err := newNotifier(cfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closeNotify)
	lg.Info("Notification channels",
		zap.Any("channels", router.Channels()),
		zap.String("default", cfg.Notify.Default),
	)

	policies, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	orderService, err := order.NewService(st.products, st.users, st.orders, policies, router,
		order.WithTracerProvider(tp),
		order.WithMeterProvider(mp),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	security := handler.NewSecurityHandler(st.apikeys, []byte(cfg.APIKeyPepper))
	h := handler.NewHandler(st.products, orderService, security)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", s.Health.LiveEndpoint)
	mux.HandleFunc("GET /readyz", s.Health.ReadyEndpoint)
	h.Register(mux)

	s.Handler = httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", handler.HeaderAPIKey, httpmiddleware.HeaderRequestID},
			ExposeHeaders:    []string{httpmiddleware.HeaderRequestID},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:     cfg.RateLimit.Max,
			Window:  cfg.RateLimit.Window,
			KeyFunc: httpmiddleware.KeyByHeader(handler.HeaderAPIKey),
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument("cart-api", tp, mp),
		httpmiddleware.LogRequests(),
		httpmiddleware.Labeler(),
	)
	return s, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))
	ctx = zctx.Base(ctx, lg)

	s, err := NewServer(ctx, lg, cfg, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return err
	}
	defer s.Close()

	s.Health.Start(ctx, 10*time.Second)
	s.Health.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           s.Handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		s.Health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		s.Health.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newNotifier routes email and SMS to the console stubs on stdout and, when
// brokers are configured, the kafka channel to a topic writer.
func newNotifier(cfg *Config) (*notifyimpl.Router, func(), error) {
	router := notifyimpl.NewRouter(notify.Channel(cfg.Notify.Default)).
		Handle(notify.ChannelEmail, notifyimpl.NewEmail(os.Stdout)).
		Handle(notify.ChannelSMS, notifyimpl.NewSMS(os.Stdout))
	if cfg.Notify.KafkaBrokers == "" {
		return router, func() {}, nil
	}

	w, err := notifyimpl.NewKafkaWriter(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic)
	if err != nil {
		return nil, nil, errors.Wrap(err, "kafka notifier")
	}
	router.Handle(notify.ChannelKafka, notifyimpl.NewKafka(w))
	return router, func() { _ = w.Close() }, nil
}
