package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MATHILDEdemariable/jourj/internal/config"
	"github.com/MATHILDEdemariable/jourj/internal/database"
	"github.com/MATHILDEdemariable/jourj/internal/queue"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test infrastructure connectivity",
		Long:  "Check that the database, Redis and RabbitMQ configured in the environment are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			failed := false

			fmt.Printf("Testing database: ")
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				fmt.Printf("FAILED (%v)\n", err)
				failed = true
			} else {
				fmt.Println("ok")
				defer func() {
					if err := db.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
					}
				}()
			}

			fmt.Printf("Testing Redis: ")
			redisOpts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				fmt.Printf("FAILED (%v)\n", err)
				failed = true
			} else {
				redisClient := redis.NewClient(redisOpts)
				if err := redisClient.Ping(ctx).Err(); err != nil {
					fmt.Printf("FAILED (%v)\n", err)
					failed = true
				} else {
					fmt.Println("ok")
				}
				if err := redisClient.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close Redis: %v\n", err)
				}
			}

			fmt.Printf("Testing RabbitMQ: ")
			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zap.NewNop())
			if err != nil {
				fmt.Printf("FAILED (%v)\n", err)
				failed = true
			} else {
				if err := jobQueue.HealthCheck(ctx); err != nil {
					fmt.Printf("FAILED (%v)\n", err)
					failed = true
				} else {
					fmt.Println("ok")
				}
				if err := jobQueue.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close RabbitMQ: %v\n", err)
				}
			}

			if failed {
				return fmt.Errorf("one or more connectivity checks failed")
			}
			fmt.Println("\nAll connectivity checks passed")
			return nil
		},
	}

	return cmd
}
