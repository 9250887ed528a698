package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mergeanddown/internal/config"
)

type rootOptions struct {
	configFile string
	loader     *config.Loader
}

// NewRootCommand builds the mergeanddown command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{loader: config.NewLoader()}

	cmd := &cobra.Command{
		Use:   "mergeanddown",
		Short: "Download YouTube videos at any quality",
		Long: `mergeanddown lists the encodings YouTube offers for a video and downloads
them. Separate video-only and audio-only encodings are fetched concurrently
and muxed into a single MP4 with ffmpeg.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Config file (default: config.yaml in ., $XDG_CONFIG_HOME/mergeanddown or /etc/mergeanddown)")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", "auto", "Log format (auto, console or json)")
	flags.String("ytdlp", "", "Path to the yt-dlp binary")
	flags.String("ffmpeg", "ffmpeg", "Path to the ffmpeg binary")
	flags.String("scratch-dir", "", "Directory for intermediate files")

	v := opts.loader.Viper()
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindPFlag("source.ytdlp_path", flags.Lookup("ytdlp"))
	_ = v.BindPFlag("mux.ffmpeg_path", flags.Lookup("ffmpeg"))
	_ = v.BindPFlag("storage.scratch_dir", flags.Lookup("scratch-dir"))

	cmd.AddCommand(
		newServeCommand(opts),
		newQualityCommand(opts),
		newMergeCommand(opts),
		newDownloadCommand(opts),
		newSearchCommand(opts),
	)
	return cmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}
