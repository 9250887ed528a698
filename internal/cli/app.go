package cli

import (
	"os"

	"github.com/rs/zerolog"

	"mergeanddown/internal/adapters/downloader"
	"mergeanddown/internal/adapters/ffmpeg"
	"mergeanddown/internal/adapters/localstorage"
	"mergeanddown/internal/adapters/pagescan"
	"mergeanddown/internal/adapters/ytdlp"
	"mergeanddown/internal/config"
	"mergeanddown/internal/logging"
	"mergeanddown/internal/service"
)

// app holds the wired adapters and services for one process.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	ytdlp   *ytdlp.Client
	muxer   *ffmpeg.Muxer
	store   *localstorage.LocalStorage
	scanner *pagescan.Scanner

	catalog *service.CatalogService
	merger  *service.Merger
	direct  *service.Direct
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := opts.loader.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	if used := opts.loader.ConfigFileUsed(); used != "" {
		logger.Debug().Str("file", used).Msg("config loaded")
	}

	client := ytdlp.NewClient(cfg.Source.YtDlpPath)
	client.SetTimeouts(cfg.Source.InfoTimeout, cfg.Source.ResolveTimeout)

	muxer := ffmpeg.NewMuxer(cfg.Mux.FFmpegPath, logger.With().Str("component", "ffmpeg").Logger())
	if cfg.Mux.AudioBitrate != "" {
		muxer.AudioBitrate = cfg.Mux.AudioBitrate
	}

	store := localstorage.NewLocalStorage(cfg.Storage.ScratchDir)
	if err := store.Init(); err != nil {
		return nil, err
	}

	source := ytdlp.NewSource(client, downloader.NewHTTPDownloader())
	catalog := service.NewCatalogService(source)
	fetcher := service.NewFetcher(source)

	return &app{
		cfg:     cfg,
		logger:  logger,
		ytdlp:   client,
		muxer:   muxer,
		store:   store,
		scanner: pagescan.NewScanner(ytdlp.CanonicalURL, cfg.Scan.Timeout),
		catalog: catalog,
		merger:  service.NewMerger(catalog, fetcher, muxer, store, logger.With().Str("component", "merge").Logger()),
		direct:  service.NewDirect(catalog, fetcher, logger.With().Str("component", "direct").Logger()),
	}, nil
}
