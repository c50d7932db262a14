// Package app connects the infrastructure shared by the server and worker
// processes.
package app

import (
	"context" // Connection checks
	"fmt"     // Error wrapping
	"time"    // Queue wait

	"group_fund/internal/config"     // Application configuration
	"group_fund/internal/db"         // Database connection
	"group_fund/internal/events"     // Event publishing
	"group_fund/internal/notify"     // Notification queue and delivery
	"group_fund/internal/repository" // GORM repositories
	"group_fund/internal/service"    // Domain workflows
	"group_fund/internal/utils"      // Cache helpers
	"group_fund/internal/wallet"     // Wallet ledger

	"github.com/go-telegram/bot"   // Telegram client
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

const queueWait = 5 * time.Second // BRPOP block per dequeue

// Infra holds connections and the repositories built on them
type Infra struct {
	Config *config.Config
	Log    *logrus.Logger
	DB     *gorm.DB
	Redis  *redis.Client // nil when REDIS_ADDR is empty
	Cache  *utils.Cache  // nil when Redis is disabled, which makes it a no-op

	Users         *repository.UserRepository
	Groups        *repository.GroupRepository
	Notifications *repository.NotificationRepository
	Contributions *repository.ContributionRepository
	Payouts       *repository.PayoutRepository
	Votes         *repository.VoteRepository
	Ledger        *wallet.LedgerGateway

	Events  events.Publisher
	Queue   notify.Queue
	Members *notify.CachedMembers

	closers []func() error
}

// Open connects the database, Redis and Kafka according to cfg
func Open(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Infra, error) {
	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	in := &Infra{
		Config:        cfg,
		Log:           log,
		DB:            gdb,
		Users:         repository.NewUserRepository(gdb),
		Groups:        repository.NewGroupRepository(gdb),
		Notifications: repository.NewNotificationRepository(gdb),
		Contributions: repository.NewContributionRepository(gdb),
		Payouts:       repository.NewPayoutRepository(gdb),
		Votes:         repository.NewVoteRepository(gdb),
		Ledger:        wallet.NewLedgerGateway(gdb, log),
		Events:        events.Noop{},
	}
	if sqlDB, err := gdb.DB(); err == nil {
		in.closers = append(in.closers, sqlDB.Close)
	}

	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			in.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		in.Redis = rdb
		in.Cache = utils.NewCache(rdb, "group_fund:")
		in.Queue = notify.NewRedisQueue(rdb, cfg.NotifyQueueKey, queueWait)
		in.closers = append(in.closers, rdb.Close)
	} else {
		log.Warn("REDIS_ADDR not set: caching disabled, notifications delivered in-process")
		in.Queue = notify.NewMemoryQueue(1024, queueWait)
	}
	in.Members = notify.NewCachedMembers(in.Groups, in.Cache, cfg.MembersCacheTTL, log)

	if len(cfg.KafkaBrokers) > 0 {
		pub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicPrefix, log)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.Events = pub
		in.closers = append(in.closers, pub.Close)
	}
	return in, nil
}

// ServiceDeps wires the repositories into the domain services
func (in *Infra) ServiceDeps() service.Deps {
	return service.Deps{
		Contributions: in.Contributions,
		Payouts:       in.Payouts,
		Votes:         in.Votes,
		Wallet:        wallet.NewInvalidatingGateway(in.Ledger, in.Cache),
		Notifier:      notify.NewQueueNotifier(in.Queue),
		Events:        in.Events,
		Logger:        in.Log,
	}
}

// Dispatcher builds the notification dispatcher. Notifications are always
// stored in-app and also sent over Telegram when a bot token is configured.
func (in *Infra) Dispatcher() (*notify.Dispatcher, error) {
	sinks := notify.MultiSink{notify.NewStoreSink(in.Notifications)}
	if in.Config.TelegramBotToken != "" {
		b, err := bot.New(in.Config.TelegramBotToken)
		if err != nil {
			return nil, fmt.Errorf("telegram bot: %w", err)
		}
		sinks = append(sinks, notify.NewTelegramSink(b, in.Users))
	}
	return notify.NewDispatcher(in.Queue, in.Members, sinks, in.Log), nil
}

// Close releases every connection, last opened first
func (in *Infra) Close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		if err := in.closers[i](); err != nil {
			in.Log.WithField("error", err.Error()).Warn("Close failed")
		}
	}
	in.closers = nil
}
