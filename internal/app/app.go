// Package app はアプリケーションの初期化と起動を行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/bookman/internal/auth"
	"github.com/hitoshi/bookman/internal/booking"
	"github.com/hitoshi/bookman/internal/calendar"
	"github.com/hitoshi/bookman/internal/config"
	"github.com/hitoshi/bookman/internal/handler"
	"github.com/hitoshi/bookman/internal/logger"
	"github.com/hitoshi/bookman/internal/metrics"
	"github.com/hitoshi/bookman/internal/middleware"
	"github.com/hitoshi/bookman/internal/notify"
	"github.com/hitoshi/bookman/internal/slots"
)

// Init はアプリケーションの初期化を行う。
// .envファイル（存在する場合）と環境変数からConfigを読み込み、
// JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envファイルの読み込み（存在しない場合は無視する）
	_ = godotenv.Load()

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
			port = "8080"
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
		slog.String("calendar_id", cfg.CalendarID),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// サービスアカウント鍵を検証し、全依存関係をワイヤリングし、
// APIサーバーとメトリクスサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. サービスアカウント鍵の検証
	// 鍵が壊れている場合はリクエストを受け付ける前に失敗させる。
	cred, err := auth.ParseServiceAccountKey(cfg.ServiceAccountKey)
	if err != nil {
		return fmt.Errorf("failed to parse service account key: %w", err)
	}

	slog.Info("service account key loaded", slog.String("client_email", cred.ClientEmail))

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. カレンダープロバイダークライアントの構築
	providerHTTPClient := &http.Client{Timeout: cfg.ProviderTimeout}

	signer := auth.NewRS256Signer(cred.PrivateKey)
	tokens := auth.NewTokenSource(signer, auth.TokenSourceConfig{
		ClientEmail: cred.ClientEmail,
		Subject:     cfg.CalendarID,
		HTTPClient:  providerHTTPClient,
	})

	client := calendar.NewClient(tokens, calendar.ClientConfig{
		CalendarID: cfg.CalendarID,
		HTTPClient: providerHTTPClient,
		Recorder:   collector,
	})

	// 4. ドメインサービスの初期化
	loc, err := time.LoadLocation(cfg.ScheduleTimezone)
	if err != nil {
		return fmt.Errorf("invalid schedule timezone %q: %w", cfg.ScheduleTimezone, err)
	}

	schedule := slots.Schedule{
		StartHour: cfg.ScheduleStartHour,
		EndHour:   cfg.ScheduleEndHour,
		Location:  loc,
	}
	availabilityService := slots.NewService(client, schedule, cfg.SlotDuration)

	bookingService := booking.NewService(client, booking.NewInputSanitizer(), cfg.SlotDuration).
		WithRecorder(collector)

	if cfg.MailEnabled() {
		mailer := notify.NewMailer(notify.MailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
		})
		bookingService = bookingService.WithNotifier(mailer)
		slog.Info("booking confirmation mail enabled", slog.String("smtp_host", cfg.SMTPHost))
	}

	// 5. レート制限の構築（configはreq/min単位なのでreq/secに変換する）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.BookingRate = rate.Limit(float64(cfg.RateLimitBooking) / 60.0)
	rateLimiterCfg.BookingBurst = cfg.RateLimitBooking

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		AvailabilityService: availabilityService,
		SlotsRecorder:       collector,

		BookingService: bookingService,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// メトリクスは外部公開しないため別ポートで提供する
	metricsServer := &http.Server{
		Addr:         ":" + cfg.MetricsPort,
		Handler:      metrics.SetupMetricsRoute(registry),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
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
