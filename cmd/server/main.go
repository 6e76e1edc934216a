// Command server runs the CRM messaging backend: the HTTP API, the scheduled
// bulk SMS sweep, and the optional AMQP push-notification consumer.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adhocore/gronx"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/crmsuite/go-messaging-backend/internal/config"
	httpapi "github.com/crmsuite/go-messaging-backend/internal/http"
	"github.com/crmsuite/go-messaging-backend/internal/mail"
	"github.com/crmsuite/go-messaging-backend/internal/observability"
	"github.com/crmsuite/go-messaging-backend/internal/push"
	"github.com/crmsuite/go-messaging-backend/internal/queue"
	"github.com/crmsuite/go-messaging-backend/internal/repo"
	"github.com/crmsuite/go-messaging-backend/internal/services"
	"github.com/crmsuite/go-messaging-backend/internal/sms"
	"github.com/crmsuite/go-messaging-backend/internal/sysutil"
)

// version is set via ldflags at release time.
var version = "dev"

func main() {
	_ = godotenv.Load(".env")
	cfg := config.MustLoad()

	setupLogging(cfg)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel: setup failed")
	}
	defer func() { _ = shutdownOTel(context.Background()) }()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("db: open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("db: migration failed")
	}

	twilioClient := sms.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
	deps := httpapi.Dependencies{
		SMS:    twilioClient,
		Lookup: twilioClient,
		Mail:   mail.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password),
		Keys:   push.NewKeyStore(db, cfg.Push.Secret),
	}

	var broker *queue.Broker
	if cfg.AMQPURL != "" {
		broker, err = queue.Dial(cfg.AMQPURL)
		if err != nil {
			log.Fatal().Err(err).Msg("amqp: dial failed")
		}
		defer broker.Close()
		deps.Broker = broker
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, deps, cfg)

	if cfg.Scheduler.Enabled {
		groupSvc := httpapi.NewGroupService(db, deps.SMS)
		go runScheduler(ctx, cfg.Scheduler.Cron, groupSvc)
	}

	if broker != nil {
		pushSvc := httpapi.NewPushService(db, deps, cfg)
		err := broker.ConsumePushJobs(ctx, func(ctx context.Context, job queue.PushJob) {
			pushSvc.NotifyAll(ctx, push.Notification{Title: job.Title, Body: job.Body, Tag: job.RoomID})
		})
		if err != nil {
			log.Fatal().Err(err).Msg("amqp: consumer start failed")
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server: listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server: listen failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("server: shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("server: shutdown failed")
	}
}

func setupLogging(cfg config.Config) {
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// runScheduler sleeps until each cron tick and runs the bulk SMS sweep. A
// tick that overruns into the next one delays it rather than overlapping;
// the sweep is single-flight by construction.
func runScheduler(ctx context.Context, cronExpr string, svc *services.GroupMessageService) {
	if !gronx.IsValid(cronExpr) {
		log.Error().Str("cron", cronExpr).Msg("scheduler: invalid cron expression")
		return
	}
	log.Info().Str("cron", cronExpr).Msg("scheduler: started")
	for {
		next, err := gronx.NextTickAfter(cronExpr, time.Now(), false)
		if err != nil {
			log.Error().Err(err).Str("cron", cronExpr).Msg("scheduler: next tick")
			next = time.Now().Add(30 * time.Second)
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler: stopping")
			return
		case <-time.After(time.Until(next)):
		}
		if n, err := svc.SendDue(ctx); err != nil {
			log.Error().Err(err).Msg("scheduler: sweep failed")
		} else if n > 0 {
			log.Info().Int("dispatched", n).Msg("scheduler: sweep complete")
		}
	}
}
