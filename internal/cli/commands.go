package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"mergeanddown/internal/core/domain"
	"mergeanddown/internal/httpapi"
)

func newQualityCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "quality <url>",
		Short:   "List the encodings available for a video",
		Example: `  mergeanddown quality https://youtu.be/dQw4w9WgXcQ`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			classified, err := a.catalog.Classified(cmd.Context(), domain.MediaID(args[0]))
			if err != nil {
				return err
			}
			view := httpapi.NewQualityView(classified)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			renderQuality(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newMergeCommand(opts *rootOptions) *cobra.Command {
	var video, audio, output string
	cmd := &cobra.Command{
		Use:   "merge <url>",
		Short: "Download a video-only and an audio-only encoding and mux them into MP4",
		Example: `  mergeanddown merge https://youtu.be/dQw4w9WgXcQ --video 137 --audio 140
  mergeanddown merge https://youtu.be/dQw4w9WgXcQ --video 137 --audio 140 -o clip.mp4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			dst := newFileDelivery(output)
			err = a.merger.MuxDownload(cmd.Context(), domain.MergeRequest{
				Media:           domain.MediaID(args[0]),
				VideoEncodingID: video,
				AudioEncodingID: audio,
			}, dst)
			if finishErr := dst.finish(err != nil); err == nil {
				err = finishErr
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dst.path)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&video, "video", "", "Video-only encoding id")
	flags.StringVar(&audio, "audio", "", "Audio-only encoding id")
	flags.StringVarP(&output, "output", "o", "", "Output file or directory (default: title in the current directory)")
	_ = cmd.MarkFlagRequired("video")
	_ = cmd.MarkFlagRequired("audio")
	return cmd
}

func newDownloadCommand(opts *rootOptions) *cobra.Command {
	var itag, output string
	cmd := &cobra.Command{
		Use:     "download <url>",
		Short:   "Download a single encoding as offered by the source",
		Example: `  mergeanddown download https://youtu.be/dQw4w9WgXcQ --itag 18`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			dst := newFileDelivery(output)
			err = a.direct.Download(cmd.Context(), domain.DirectRequest{
				Media:      domain.MediaID(args[0]),
				EncodingID: itag,
			}, dst)
			if finishErr := dst.finish(err != nil); err == nil {
				err = finishErr
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dst.path)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&itag, "itag", "", "Encoding id")
	flags.StringVarP(&output, "output", "o", "", "Output file or directory (default: title in the current directory)")
	_ = cmd.MarkFlagRequired("itag")
	return cmd
}

func newSearchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "search <page-url>",
		Short:   "Find YouTube videos embedded in or linked from a page",
		Example: `  mergeanddown search https://example.com/blog/post`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			links, err := a.scanner.FindLinks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(links) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no videos found")
				return nil
			}
			for _, l := range links {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
}
