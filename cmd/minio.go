package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"CadenzaFM/logger"
	"CadenzaFM/storage"
)

var minioPrefix string

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the media object store",
	Long:  `Lists the objects in the MinIO bucket, optionally under a prefix such as audio/, lyrics/ or covers/.`,
	Example: `  cadenzafm minio
  cadenzafm minio --prefix lyrics/`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		if err := storage.InitMinio(cfg); err != nil {
			logger.Fatal("failed to initialize minio", logger.ErrorField(err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var count int
		var total int64
		for info := range storage.ListObjects(ctx, cfg, minioPrefix) {
			if info.Err != nil {
				logger.Fatal("listing failed", logger.ErrorField(info.Err))
			}
			fmt.Printf("%10d  %s\n", info.Size, info.Key)
			count++
			total += info.Size
		}
		fmt.Printf("%d objects, %d bytes\n", count, total)
	},
}

func init() {
	minioCmd.Flags().StringVar(&minioPrefix, "prefix", "", "object prefix to list under")
	rootCmd.AddCommand(minioCmd)
}
