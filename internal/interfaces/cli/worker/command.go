package worker

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appnotification "vulntrack/internal/application/notification"
	"vulntrack/internal/infrastructure/chat"
	"vulntrack/internal/infrastructure/database"
	"vulntrack/internal/infrastructure/email"
	"vulntrack/internal/infrastructure/pubsub"
	"vulntrack/internal/infrastructure/repository"
	"vulntrack/internal/interfaces/bootstrap"
	"vulntrack/internal/shared/constants"
	"vulntrack/internal/shared/logger"
	"vulntrack/internal/shared/services/markdown"
)

var (
	env        string
	configPath string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the notification worker",
		Long:  `Drain the notification queue, delivering mail and chat messages with retries.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := bootstrap.LoadConfig(env, configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	log := logger.WithComponent("worker")
	log.Infow("starting notification worker", "environment", env)

	if err := database.Init(&cfg.Database); err != nil {
		return err
	}
	defer database.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	redisClient, err := bootstrap.OpenRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	worker := appnotification.NewWorker(
		pubsub.NewRedisTaskQueue(redisClient, log),
		appnotification.NewRecipientResolver(repository.NewPolicyRepository(database.Get(), log)),
		email.NewSMTPMailer(cfg.Email),
		chat.NewNotifier(cfg.Chat.URLs, log),
		appnotification.NewMessageRenderer(markdown.NewRenderer()),
		appnotification.WorkerConfig{
			PollTimeout:     time.Duration(cfg.Notification.PollTimeoutSeconds) * time.Second,
			MaxRetries:      cfg.Email.MaxRetries,
			InitialInterval: time.Duration(cfg.Notification.RetryInitialMs) * time.Millisecond,
			MaxInterval:     time.Duration(cfg.Notification.RetryMaxMs) * time.Millisecond,
		},
		log,
	)

	return worker.Run(ctx)
}
