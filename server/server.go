package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"CadenzaFM/cache"
	"CadenzaFM/catalog"
	"CadenzaFM/config"
	"CadenzaFM/core/audio"
	"CadenzaFM/core/lyrics"
	"CadenzaFM/core/mpris"
	"CadenzaFM/core/player"
	"CadenzaFM/db"
	"CadenzaFM/logger"
	"CadenzaFM/model"
	"CadenzaFM/repository"
	"CadenzaFM/storage"
)

// Start wires the full application and runs the HTTP server until
// SIGINT/SIGTERM.
func Start(cfg *config.Config) {
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

	ensureDirExists(cfg.StaticDir)

	trackRepo := repository.NewMySQLTrackRepository()
	provider := catalog.NewRepositoryProvider(trackRepo)
	scanner := catalog.NewScanner(cfg, trackRepo, &catalog.MinioStore{Cfg: cfg}, catalog.RedisIngestCache{})

	// Catalog URLs default to the StaticPrefix form; the playback core
	// resolves those straight from the bucket rather than over HTTP.
	mediaSource := storage.MediaReader(cfg)
	engine := audio.NewBeepEngine(time.Duration(cfg.PlayerPollMS)*time.Millisecond, audio.SourceReader(mediaSource))
	fetcher := lyrics.NewHTTPFetcher(10*time.Second, mediaSource)
	ctrl := player.New(engine, fetcher, cfg.DefaultVolume)
	defer ctrl.Close()

	// An initial scan populates the sequencer; a failing scan leaves an
	// empty catalog, never a dead server.
	scanCtx, scanCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	tracks, err := scanner.Scan(scanCtx)
	scanCancel()
	if err != nil {
		logger.Warn("initial media scan failed", logger.ErrorField(err))
	}
	ctrl.SetTracks(tracks)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	watcher, err := catalog.NewWatcher(scanner, func(tracks []model.Track) {
		ctrl.SetTracks(tracks)
	})
	if err != nil {
		logger.Warn("media watcher unavailable", logger.ErrorField(err))
	} else if err := watcher.Start(watchCtx); err != nil {
		logger.Warn("media watcher failed to start", logger.ErrorField(err))
	} else {
		defer watcher.Stop()
	}

	// The desktop media-session bridge is strictly optional; a headless
	// box without a session bus still plays music.
	if cfg.EnableMPRIS {
		bridge, err := mpris.Start(ctrl)
		if err != nil {
			logger.Warn("mpris bridge unavailable", logger.ErrorField(err))
		} else {
			defer bridge.Close()
		}
	}

	apiHandler := NewAPIHandler(cfg, provider, ctrl)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/api/tracks", apiHandler.GetTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/refresh", apiHandler.RefreshTracksHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/config", apiHandler.GetConfigHandler).Methods(http.MethodGet)

	router.HandleFunc("/api/player", apiHandler.GetPlayerStateHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/player/play", apiHandler.PlayTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/toggle", apiHandler.TogglePlayHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/next", apiHandler.NextTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/previous", apiHandler.PreviousTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/seek", apiHandler.SeekHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/volume", apiHandler.SetVolumeHandler).Methods(http.MethodPost)

	router.HandleFunc("/ws/player", apiHandler.WebSocketPlayerHandler)

	router.PathPrefix("/static/").HandlerFunc(apiHandler.StaticMediaHandler)

	// Frontend UI serving
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.WebAppDir)))

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.ServerAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("server stopped")
}

// corsMiddleware lets browser views on other origins talk to the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func ensureDirExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			logger.Fatal("failed to create directory", logger.String("path", path), logger.ErrorField(err))
		}
	}
}
