package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bookmydoctor/calendar/internal/config"
	"github.com/bookmydoctor/calendar/internal/domain/roster"
	"github.com/bookmydoctor/calendar/internal/domain/scheduling"
	"github.com/bookmydoctor/calendar/internal/platform/auth"
	"github.com/bookmydoctor/calendar/internal/platform/db"
	"github.com/bookmydoctor/calendar/internal/platform/middleware"
	"github.com/bookmydoctor/calendar/internal/platform/notification"
	"github.com/bookmydoctor/calendar/internal/platform/sandbox"
	"github.com/bookmydoctor/calendar/internal/platform/telemetry"
	"github.com/bookmydoctor/calendar/internal/platform/websocket"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:           "calendar-server",
		Short:         "Practitioner appointment calendar API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(rosterCmd())
	rootCmd.AddCommand(weekCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func gridConfig(cfg *config.Config) scheduling.GridConfig {
	day, _ := cfg.WeekStartDay()
	return scheduling.GridConfig{WeekStart: day, FirstHour: cfg.GridFirstHour, Rows: cfg.GridRows}
}

// openStore builds the configured appointment store together with the probe
// served on /health/db and a cleanup func.
func openStore(ctx context.Context, cfg *config.Config) (scheduling.AppointmentStore, db.Probe, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, db.Probe{}, noop, err
		}
		return scheduling.NewAppointmentRepoPG(pool), db.PoolProbe(pool), pool.Close, nil
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, db.Probe{}, noop, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		store := scheduling.NewRedisStore(client, cfg.RedisKey)
		if err := store.Ping(ctx); err != nil {
			client.Close()
			return nil, db.Probe{}, noop, fmt.Errorf("ping redis: %w", err)
		}
		return store, db.Probe{Backend: config.BackendRedis, Ping: store.Ping}, func() { client.Close() }, nil
	case config.BackendFile:
		store := scheduling.NewFileStore(cfg.StoreFile)
		ping := func(ctx context.Context) error {
			_, err := store.GetAll(ctx)
			return err
		}
		return store, db.Probe{Backend: config.BackendFile, Ping: ping}, noop, nil
	default:
		return scheduling.NewMemoryStore(), db.Probe{Backend: config.BackendMemory}, noop, nil
	}
}

// buildNotifier fans banners out to the log, the given sinks and, when
// brokers are configured, Kafka.
func buildNotifier(cfg *config.Config, logger zerolog.Logger, sinks ...notification.Notifier) (notification.Fanout, func()) {
	fan := append(notification.Fanout{notification.NewLogNotifier(logger.With().Str("component", "notification").Logger())}, sinks...)
	if len(cfg.KafkaBrokers) == 0 {
		return fan, func() {}
	}
	kn := notification.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger.With().Str("component", "kafka").Logger())
	logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("kafka notifications enabled")
	return append(fan, kn), func() {
		if err := kn.Close(); err != nil {
			logger.Error().Err(err).Msg("close kafka writer")
		}
	}
}

type app struct {
	svc     *scheduling.Service
	dir     *roster.Directory
	feed    *notification.Feed
	hub     *websocket.Hub
	metrics *telemetry.Metrics
	probe   db.Probe
}

func newServer(cfg *config.Config, logger zerolog.Logger, a app) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(a.metrics.Middleware())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	key, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	jwtCfg := auth.JWTConfig{Issuer: cfg.AuthIssuer, SigningKey: key, Skipper: auth.AuthSkipper}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(a.probe))
	e.GET("/metrics", a.metrics.Handler())

	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	scheduling.NewHandler(a.svc).RegisterRoutes(apiV1)
	roster.NewHandler(a.dir).RegisterRoutes(apiV1)
	feedGroup := apiV1.Group("", auth.RequireRole(auth.RoleScheduler, auth.RoleViewer))
	notification.NewHandler(a.feed).RegisterRoutes(feedGroup)
	websocket.NewHandler(a.hub, cfg.CORSOrigins).RegisterRoutes(feedGroup)

	if cfg.IsDev() {
		weekStart, _ := cfg.WeekStartDay()
		sandbox.NewSeedHandler(sandbox.NewSeeder(a.svc, weekStart), a.dir.IDs()).RegisterRoutes(apiV1)
	}

	return e, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the calendar API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if cfg.IsDev() {
		logger.Warn().Msg("ENV=development: unauthenticated requests are granted admin")
	}

	ctx := context.Background()
	store, probe, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open appointment store")
		return err
	}
	defer closeStore()
	logger.Info().Str("backend", cfg.StoreBackend).Msg("appointment store ready")

	dir := roster.Default()
	feed := notification.NewFeed(50)
	hub := websocket.NewHub(logger.With().Str("component", "websocket").Logger())
	metrics := telemetry.New()
	notifier, closeNotifier := buildNotifier(cfg, logger, feed, hub, metrics)
	defer closeNotifier()

	svc := scheduling.NewService(store, logger.With().Str("component", "scheduling").Logger(), scheduling.ServiceOptions{
		Directory: dir,
		Notifier:  notifier,
		Grid:      gridConfig(cfg),
	})

	e, err := newServer(cfg, logger, app{svc: svc, dir: dir, feed: feed, hub: hub, metrics: metrics, probe: probe})
	if err != nil {
		return err
	}

	if cfg.ReminderCron != "" {
		reminders := scheduling.NewReminderWorker(svc, cfg.ReminderCron, cfg.ReminderLead)
		if err := reminders.Start(ctx); err != nil {
			return err
		}
		defer reminders.Stop()
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the postgres store",
	}

	withMigrator := func(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator, schema string) error) error {
		schema, _ := cmd.Flags().GetString("schema")
		dir, _ := cmd.Flags().GetString("dir")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}

		ctx := context.Background()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()

		source := db.Bundled()
		if dir != "" {
			source = os.DirFS(dir)
		}
		return fn(ctx, db.NewMigrator(pool, source), schema)
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", schema)
				count, err := m.Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				statuses, err := m.Status(ctx, schema)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printMigrationStatus(cmd.OutOrStdout(), schema, statuses)
				return nil
			})
		},
	}

	for _, c := range []*cobra.Command{upCmd, statusCmd} {
		c.Flags().String("schema", "public", "Target schema for migrations")
		c.Flags().String("dir", "", "Read migrations from this directory instead of the bundled set")
		cmd.AddCommand(c)
	}
	return cmd
}

func printMigrationStatus(w io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, s.Name, status, appliedAt)
	}
	tw.Flush()
}

func rosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Inspect the practitioner roster",
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List practitioners, optionally filtered by a search query",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, _ := cmd.Flags().GetString("q")
			printRoster(cmd.OutOrStdout(), roster.Default().Search(q))
			return nil
		},
	}
	listCmd.Flags().String("q", "", "Case-insensitive name or specialization search")
	cmd.AddCommand(listCmd)
	return cmd
}

func printRoster(w io.Writer, items []roster.Practitioner) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSPECIALIZATION\tAVAILABILITY")
	for _, p := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Specialization, p.Availability)
	}
	tw.Flush()
}

func weekCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Print the week grid from the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			anchor, _ := cmd.Flags().GetString("anchor")
			doctor, _ := cmd.Flags().GetString("doctor")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			store, _, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := scheduling.NewService(store, zerolog.New(os.Stderr).With().Timestamp().Logger(), scheduling.ServiceOptions{
				Grid: gridConfig(cfg),
			})
			g, err := svc.Week(ctx, scheduling.GridQuery{Anchor: anchor, DoctorID: doctor, View: scheduling.ViewReadOnly})
			if err != nil {
				return err
			}
			printWeek(cmd.OutOrStdout(), g)
			return nil
		},
	}
	cmd.Flags().String("anchor", "", "Any date in the target week (YYYY-MM-DD); defaults to today")
	cmd.Flags().String("doctor", "", "Only show this practitioner's appointments")
	return cmd
}

func printWeek(w io.Writer, g *scheduling.Grid) {
	fmt.Fprintf(w, "Week of %s  (previous: %s, next: %s)\n", scheduling.LongDateLabel(g.WeekStart), g.PreviousWeek, g.NextWeek)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "\t")
	for _, d := range g.Days {
		marker := ""
		if d.IsToday {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s %d%s\t", d.Weekday, d.DayOfMonth, marker)
	}
	fmt.Fprintln(tw)
	for _, row := range g.Rows {
		fmt.Fprintf(tw, "%s\t", row.Label)
		for _, cell := range row.Cells {
			switch n := len(cell.Appointments); n {
			case 0:
				fmt.Fprint(tw, ".\t")
			case 1:
				fmt.Fprintf(tw, "%s\t", cell.Appointments[0].PatientName)
			default:
				fmt.Fprintf(tw, "%d appts\t", n)
			}
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
	if len(g.Skipped) > 0 {
		fmt.Fprintf(w, "%d unreadable appointment(s) skipped\n", len(g.Skipped))
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, _ := cmd.Flags().GetString("sub")
			roles, _ := cmd.Flags().GetStringSlice("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			key, err := cfg.SigningKey()
			if err != nil {
				return err
			}
			if key == nil {
				return fmt.Errorf("AUTH_SIGNING_KEY is required to mint tokens")
			}
			now := time.Now()
			token, err := auth.IssueToken(auth.JWTConfig{Issuer: cfg.AuthIssuer, SigningKey: key}, sub, roles, jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("sub", "cli-user", "Token subject")
	cmd.Flags().StringSlice("role", []string{auth.RoleScheduler}, "Granted roles (repeatable)")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Book generated demo appointments into the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			seedCfg := sandbox.DefaultSeedConfig()
			seedCfg.Count, _ = cmd.Flags().GetInt("count")
			seedCfg.Anchor, _ = cmd.Flags().GetString("anchor")
			seedCfg.Seed, _ = cmd.Flags().GetInt64("seed")
			seedCfg.DoctorIDs, _ = cmd.Flags().GetStringSlice("doctor")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			store, _, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			dir := roster.Default()
			if len(seedCfg.DoctorIDs) == 0 {
				seedCfg.DoctorIDs = dir.IDs()
			}
			svc := scheduling.NewService(store, zerolog.Nop(), scheduling.ServiceOptions{Directory: dir, Grid: gridConfig(cfg)})
			weekStart, _ := cfg.WeekStartDay()
			res, err := sandbox.NewSeeder(svc, weekStart).Run(ctx, seedCfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Booked %d of %d appointment(s); %d conflict(s), %d rejected, in %s.\n",
				res.Booked, res.Requested, res.Conflicts, res.Rejected, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().Int("count", 20, "Number of bookings to attempt")
	cmd.Flags().String("anchor", "", "Any date in the target week (YYYY-MM-DD); defaults to this week")
	cmd.Flags().Int64("seed", 0, "Random seed; 0 picks one from the clock")
	cmd.Flags().StringSlice("doctor", nil, "Restrict to these practitioner ids (repeatable)")
	return cmd
}
