package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"CadenzaFM/catalog"
	"CadenzaFM/core/audio"
	"CadenzaFM/core/lyrics"
	"CadenzaFM/core/mpris"
	"CadenzaFM/core/player"
	"CadenzaFM/logger"
	"CadenzaFM/storage"
)

var playCmd = &cobra.Command{
	Use:   "play [index]",
	Short: "Play the catalog from the terminal",
	Long: `Plays tracks straight from the generated catalog.json with no server
and no database, printing lyric lines as they become current. Control
playback through the desktop media keys (MPRIS) or Ctrl-C to quit.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		provider := catalog.NewJSONProvider(cfg.StaticDir)
		tracks, err := provider.GetAllTracks(context.Background())
		if err != nil {
			logger.Fatal("no catalog available, run scan first", logger.ErrorField(err))
		}
		if len(tracks) == 0 {
			fmt.Println("Catalog is empty.")
			return
		}

		index := 0
		if len(args) == 1 {
			index, err = strconv.Atoi(args[0])
			if err != nil || index < 0 || index >= len(tracks) {
				logger.Fatal("invalid track index", logger.String("arg", args[0]))
			}
		}

		// Catalog URLs may name bucket objects; resolve those directly.
		// A local-file catalog still plays without object storage.
		if err := storage.InitMinio(cfg); err != nil {
			logger.Warn("object storage unavailable", logger.ErrorField(err))
		}
		mediaSource := storage.MediaReader(cfg)

		engine := audio.NewBeepEngine(time.Duration(cfg.PlayerPollMS)*time.Millisecond, audio.SourceReader(mediaSource))
		fetcher := lyrics.NewHTTPFetcher(10*time.Second, mediaSource)
		ctrl := player.New(engine, fetcher, cfg.DefaultVolume)
		defer ctrl.Close()
		ctrl.SetTracks(tracks)

		if cfg.EnableMPRIS {
			bridge, err := mpris.Start(ctrl)
			if err != nil {
				logger.Warn("mpris bridge unavailable", logger.ErrorField(err))
			} else {
				defer bridge.Close()
			}
		}

		states, cancel := ctrl.Subscribe()
		defer cancel()

		ctrl.PlayTrack(index)

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		lastTrack := ""
		lastLyric := -1
		for {
			select {
			case state := <-states:
				if state.CurrentTrack != nil && state.CurrentTrack.ID != lastTrack {
					lastTrack = state.CurrentTrack.ID
					lastLyric = -1
					fmt.Printf("\n♪ %s — %s [%s]\n", state.CurrentTrack.Artist, state.CurrentTrack.Title, state.CurrentTrack.Album)
				}
				if state.CurrentLyricIndex != lastLyric && state.CurrentLyricIndex >= 0 &&
					state.CurrentLyricIndex < len(state.Lyrics) {
					lastLyric = state.CurrentLyricIndex
					fmt.Printf("  %s\n", state.Lyrics[state.CurrentLyricIndex].Text)
				}
			case <-stop:
				fmt.Println()
				return
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}
