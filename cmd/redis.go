package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"CadenzaFM/cache"
	"CadenzaFM/logger"
)

var redisFlush bool

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Inspect or clear the catalog caches",
	Long:  `Shows the cached catalog state in Redis. With --flush, drops the catalog cache so the next listing rebuilds it from the database.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		if err := cache.ConnectRedis(cfg); err != nil {
			logger.Fatal("failed to connect to redis", logger.ErrorField(err))
		}
		defer cache.CloseRedis()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if redisFlush {
			if err := cache.InvalidateCatalog(ctx); err != nil {
				logger.Fatal("failed to invalidate catalog cache", logger.ErrorField(err))
			}
			fmt.Println("Catalog cache invalidated.")
			return
		}

		tracks, err := cache.GetCachedCatalog(ctx)
		if err != nil {
			fmt.Println("No cached catalog.")
			return
		}
		fmt.Printf("Cached catalog: %d tracks\n", len(tracks))
	},
}

func init() {
	redisCmd.Flags().BoolVar(&redisFlush, "flush", false, "invalidate the cached catalog")
	rootCmd.AddCommand(redisCmd)
}
