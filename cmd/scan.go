package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"CadenzaFM/cache"
	"CadenzaFM/catalog"
	"CadenzaFM/db"
	"CadenzaFM/logger"
	"CadenzaFM/repository"
	"CadenzaFM/storage"
)

var scanTimeout time.Duration

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the media directory into the catalog",
	Long: `Performs a one-shot ingest: walks the media directory, uploads audio,
lyric and cover files to object storage, records tracks in the database
and regenerates catalog.json. Already-ingested content is skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		if err := db.ConnectDB(cfg); err != nil {
			logger.Fatal("failed to connect to database", logger.ErrorField(err))
		}
		defer db.DB.Close()
		if err := db.InitDB(); err != nil {
			logger.Fatal("failed to initialize database", logger.ErrorField(err))
		}

		if err := cache.ConnectRedis(cfg); err != nil {
			logger.Fatal("failed to connect to redis", logger.ErrorField(err))
		}
		defer cache.CloseRedis()

		if err := storage.InitMinio(cfg); err != nil {
			logger.Fatal("failed to initialize minio", logger.ErrorField(err))
		}

		scanner := catalog.NewScanner(cfg, repository.NewMySQLTrackRepository(),
			&catalog.MinioStore{Cfg: cfg}, catalog.RedisIngestCache{})

		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()

		tracks, err := scanner.Scan(ctx)
		if err != nil {
			logger.Fatal("scan failed", logger.ErrorField(err))
		}

		fmt.Printf("Scanned %s: %d tracks in catalog\n", cfg.MediaDir, len(tracks))
		for _, t := range tracks {
			fmt.Printf("  %s / %s / %02d %s\n", t.Artist, t.Album, t.TrackNumber, t.Title)
		}
	},
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 10*time.Minute, "overall scan timeout")
	rootCmd.AddCommand(scanCmd)
}
