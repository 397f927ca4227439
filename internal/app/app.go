package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/healthpass/healthpass/internal/auth"
	"github.com/healthpass/healthpass/internal/config"
	"github.com/healthpass/healthpass/internal/database"
	"github.com/healthpass/healthpass/internal/fixtures"
	"github.com/healthpass/healthpass/internal/handler"
	"github.com/healthpass/healthpass/internal/logger"
	"github.com/healthpass/healthpass/internal/media"
	"github.com/healthpass/healthpass/internal/metrics"
	"github.com/healthpass/healthpass/internal/middleware"
	"github.com/healthpass/healthpass/internal/passport"
	"github.com/healthpass/healthpass/internal/picture"
	"github.com/healthpass/healthpass/internal/repository"
	"github.com/healthpass/healthpass/internal/schema"
	"github.com/healthpass/healthpass/internal/security"
	"github.com/healthpass/healthpass/internal/user"
	"github.com/healthpass/healthpass/internal/view"
	"github.com/healthpass/healthpass/internal/worker/cleanup"
)

const (
	shutdownTimeout       = 30 * time.Second
	connectTimeout        = 5 * time.Second
	throttleCleanupPeriod = time.Minute
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "3000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("session_store", cfg.SessionStore),
		slog.String("media_backend", cfg.MediaBackend),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// openSessionStore は設定に応じたセッションストアを返す。
// closeはRedisクライアントの解放に使う。
func openSessionStore(cfg *config.Config, db *sql.DB) (repository.SessionRepository, func() error, error) {
	if cfg.SessionStore == config.SessionStorePostgres {
		return repository.NewPostgresSessionRepo(db), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
	return repository.NewRedisSessionRepo(client), client.Close, nil
}

// newMediaStore は設定に応じたメディアストアを返す。
// ファイルシステム保存の場合のみ/pictures配信用のハンドラーを返す。
func newMediaStore(ctx context.Context, cfg *config.Config) (media.Store, http.Handler, error) {
	if cfg.MediaBackend == config.MediaBackendS3 {
		store, err := media.NewS3Store(ctx, media.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			KeyPrefix:       cfg.S3KeyPrefix,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}

	store, err := media.NewFilesystemStore(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Handler("/pictures/"), nil
}

// server はserveコマンドで組み立てた依存関係。
type server struct {
	router      http.Handler
	rateLimiter *middleware.RateLimiter
	throttle    *auth.LoginThrottle
}

// close はバックグラウンドで動くクリーンアップを停止する。
func (s *server) close() {
	s.rateLimiter.Stop()
}

// newMetricsRegistry はプロセス・Goランタイムのメトリクスを含むレジストリを生成する。
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// buildServer はリポジトリ、サービス、ハンドラーをワイヤリングする。
func buildServer(ctx context.Context, cfg *config.Config, db *sql.DB, sessions repository.SessionRepository, reg *prometheus.Registry) (*server, error) {
	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	pictureRepo := repository.NewPostgresPictureRepo(db)
	repos := passport.Repositories{
		Users:     userRepo,
		Pictures:  pictureRepo,
		Questions: repository.NewPostgresQuestionRepo(db),
		Contacts:  repository.NewPostgresContactRepo(db),
		Emotions:  repository.NewPostgresEmotionRepo(db),
		Allergies: repository.NewPostgresAllergyRepo(db),
		Events:    repository.NewPostgresEventRepo(db),
		Positions: repository.NewPostgresPositionRepo(db),
	}

	// 2. 横断的な部品の初期化
	collector := metrics.NewCollector(reg)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	sanitizer := security.NewTextSanitizer()
	guard := security.NewRemoteURLGuard()

	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}
	store, mediaHandler, err := newMediaStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}

	// 3. ドメインサービスの初期化
	throttle := auth.NewLoginThrottle(auth.ThrottleConfig{
		MaxFailures: cfg.LoginMaxFailures,
		Window:      cfg.LoginFailureWindow,
		Lockout:     cfg.LoginLockout,
	})
	authService := auth.NewService(userRepo, sessions, hasher, throttle, collector,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge})
	userService := user.NewService(userRepo, sessions, hasher, sanitizer)
	passportService := passport.NewService(repos, sanitizer)
	pictureService := picture.NewService(pictureRepo, store, guard,
		guard.NewSafeClient(cfg.PictureFetchTimeout), picture.Config{MaxSize: cfg.PictureMaxSize})

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitLogin))

	deps := &handler.RouterDeps{
		Logger:       slog.Default(),
		HTTPRecorder: collector,
		RateLimiter:  rateLimiter,
		TrustProxy:   cfg.TrustProxy,

		AuthService: authService,
		Signer:      auth.NewCookieSigner(cfg.SessionSecret),
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		Renderer: renderer,

		Decoder:         validator,
		UserService:     userService,
		QuestionService: passportService,
		Records: handler.RecordServices{
			Contacts:  passportService,
			Emotions:  passportService,
			Allergies: passportService,
			Events:    passportService,
			Positions: passportService,
		},
		PictureService: pictureService,
		PictureMaxSize: cfg.PictureMaxSize,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),
		MediaHandler:   mediaHandler,
	}

	return &server{
		router:      handler.NewRouter(deps),
		rateLimiter: rateLimiter,
		throttle:    throttle,
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, closeSessions, err := openSessionStore(cfg, db)
	if err != nil {
		return err
	}
	defer closeSessions()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := buildServer(ctx, cfg, db, sessions, newMetricsRegistry())
	if err != nil {
		return err
	}
	defer srv.close()

	// ログイン失敗記録の期限切れエントリを定期的に削除
	go func() {
		ticker := time.NewTicker(throttleCleanupPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.throttle.Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return serveUntilSignal(httpServer, "API server")
}

// serveUntilSignal はHTTPサーバーを起動し、シグナル受信でグレースフルシャットダウンする。
func serveUntilSignal(s *http.Server, name string) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", s.Addr))
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("%s listen error: %w", name, err)
	case <-stop:
	}
	slog.Info("shutting down " + name + "...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// Postgresセッションストアの期限切れ行を定期削除し、/metricsを公開する。
// Redisはキー自体が期限切れで消えるため何もしない。
func runWorker(cfg *config.Config) error {
	if cfg.SessionStore != config.SessionStorePostgres {
		slog.Info("worker has nothing to do: sessions expire in redis",
			slog.String("session_store", cfg.SessionStore))
		return nil
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := newMetricsRegistry()
	job := cleanup.NewCleanupJob(repository.NewPostgresSessionRepo(db), metrics.NewCollector(reg), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go job.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return serveUntilSignal(metricsServer, "worker")
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed は初期データを投入する。既存のユーザー名はスキップする。
func runSeed(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	seeder := fixtures.NewSeeder(
		repository.NewPostgresUserRepo(db),
		repository.NewPostgresPictureRepo(db),
		repository.NewPostgresQuestionRepo(db),
		repository.NewPostgresContactRepo(db),
		auth.NewBcryptHasher(cfg.BcryptCost),
	)

	res, err := seeder.Seed(context.Background(), fixtures.DefaultAccounts())
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("seed completed",
		slog.Any("created", res.Created),
		slog.Any("skipped", res.Skipped),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
