package cli

import (
	"context"

	"github.com/spf13/cobra"

	"mergeanddown/internal/httpapi"
	"mergeanddown/internal/service"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP download service",
		Example: `  mergeanddown serve --addr :8080
  curl 'localhost:8080/quality?url=https://youtu.be/dQw4w9WgXcQ'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			if !a.ytdlp.Available() {
				a.logger.Warn().Str("path", a.ytdlp.BinaryPath()).Msg("yt-dlp not found")
			}
			if !a.muxer.Available() {
				a.logger.Warn().Str("path", a.muxer.Path).Msg("ffmpeg not found, merged downloads will fail")
			}

			if sched := a.cfg.Storage.SweepSchedule; sched != "" {
				janitor, err := service.NewJanitor(a.store, sched, a.cfg.Storage.MaxAge,
					a.logger.With().Str("component", "janitor").Logger())
				if err != nil {
					return err
				}
				janitor.RunOnce()
				janitor.Start()
				defer janitor.Stop(context.Background())
			}

			srv := httpapi.New(httpapi.Options{
				Catalog:   a.catalog,
				Merger:    a.merger,
				Direct:    a.direct,
				Finder:    a.scanner,
				Logger:    a.logger.With().Str("component", "http").Logger(),
				RateLimit: a.cfg.Server.RateLimit,
				RateBurst: a.cfg.Server.RateBurst,
				Dependencies: map[string]func() bool{
					"yt-dlp": a.ytdlp.Available,
					"ffmpeg": a.muxer.Available,
				},
			})
			return srv.ListenAndServe(cmd.Context(), a.cfg.Server.Addr)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":3000", "Listen address")
	flags.Float64("rate-limit", 2, "Download requests per second, 0 disables limiting")
	flags.Int("rate-burst", 4, "Download request burst size")

	v := opts.loader.Viper()
	_ = v.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = v.BindPFlag("server.rate_limit", flags.Lookup("rate-limit"))
	_ = v.BindPFlag("server.rate_burst", flags.Lookup("rate-burst"))
	return cmd
}
