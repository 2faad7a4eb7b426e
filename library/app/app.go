package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/ilyakh/library-service/library/config"
	"github.com/ilyakh/library-service/library/internal/gateway"
	"github.com/ilyakh/library-service/library/internal/handler"
	"github.com/ilyakh/library-service/library/internal/repository"
	"github.com/ilyakh/library-service/library/internal/server"
	"github.com/ilyakh/library-service/library/internal/service"
	"github.com/ilyakh/library-service/library/migrations"
	"github.com/ilyakh/library-service/pkg/kafka"
	"github.com/ilyakh/library-service/pkg/logger"
	"github.com/ilyakh/library-service/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "library")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	paymentGw := gateway.NewClient(log, cfg.Payment)
	svc := service.NewService(repo, paymentGw, log)

	// loan events are best effort: without a broker the enqueuer no-ops
	var producer sarama.SyncProducer
	if len(cfg.Kafka.Addrs) > 0 {
		if producer, err = kafka.NewProducer(cfg.Kafka); err != nil {
			log.Warn("kafka.NewProducer", zap.Error(err))
		}
	}

	h := handler.New(svc, handler.NewEnqueuer(producer), log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	if producer != nil {
		_ = producer.Close()
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
