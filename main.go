package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cafe-telegram/bot"
	"cafe-telegram/config"
	"cafe-telegram/conversation"
	"cafe-telegram/db"
	"cafe-telegram/events"
	"cafe-telegram/logger"
	"cafe-telegram/models"
	"cafe-telegram/photos"
	"cafe-telegram/services"
	"cafe-telegram/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(cfg)
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := run(cfg, logger.New("cafe-bot")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	photoStore, err := photos.New(cfg.PhotoDir)
	if err != nil {
		return fmt.Errorf("photos: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	gateway := bot.NewGateway(api, photoStore, log)
	notifier := services.NewRetryingNotifier(gateway, services.RetryPolicy{
		Attempts:   cfg.Notify.Retries,
		BaseDelay:  cfg.Notify.Backoff,
		MaxDelay:   10 * cfg.Notify.Backoff,
		Multiplier: 2,
	})

	var publisher services.EventPublisher
	if cfg.AMQP.URL != "" {
		p, err := events.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		defer p.Close()
		publisher = p
		log.Info("amqp_connected", "publishing order events", "exchange", cfg.AMQP.Exchange)
	}

	var sessions conversation.SessionStore = conversation.NewMemorySessions()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		sessions = conversation.NewRedisSessions(client, cfg.Redis.SessionTTL)
		log.Info("redis_connected", "sessions kept in redis", "addr", cfg.Redis.Addr)
	}

	cafe := services.NewCafe(ctx, services.Deps{
		Store:    store,
		Notifier: notifier,
		Photos:   photoStore,
		Events:   publisher,
		Log:      log,
		AdminID:  cfg.Admin.ID,
	})
	ctrl := conversation.New(conversation.Options{
		Cafe:              cafe,
		Sessions:          sessions,
		Photos:            gateway,
		Pauser:            conversation.ScaledPauser{Scale: cfg.Script.PauseScale},
		AdminPasswordHash: cfg.Admin.PasswordHash,
		Log:               log,
	})
	b := bot.New(api, ctrl, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(gctx)
	})
	g.Go(func() error {
		cafe.NotifyAdmin(gctx, models.Message{Text: "🤖 Бот запущен и готов к работе!"})
		return nil
	})
	err = g.Wait()
	ctrl.Wait()
	log.Info("bot_stopped", "shutdown complete")
	return err
}

func autoMigrate() bool {
	v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE"))
	return v == "1" || strings.EqualFold(v, "true")
}

// openStore returns the configured backend and its cleanup.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	if cfg.Storage == config.StoragePostgres {
		pool, err := db.OpenPostgres(ctx, cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("db: %w", err)
		}
		if autoMigrate() {
			if err := applyMigrations(ctx, pool, false); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return storage.NewPostgresStore(pool), pool.Close, nil
	}

	conn, err := db.OpenSQLite(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	st, err := storage.NewSQLiteStore(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	return st, func() { _ = st.Close() }, nil
}

func runMigrate(cfg *config.Config) {
	if cfg.Storage != config.StoragePostgres {
		fmt.Println("SQLite schema is created on startup; nothing to migrate.")
		return
	}
	ctx := context.Background()
	pool, err := db.OpenPostgres(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := applyMigrations(ctx, pool, true); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
