package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maauso/mediakit/internal/editor"
	"github.com/maauso/mediakit/internal/pipeline"
	"github.com/maauso/mediakit/internal/task"
)

func newTrimCommand(ctx *commandContext) *cobra.Command {
	var begin, end float64
	var media string

	cmd := &cobra.Command{
		Use:   "trim SOURCE OUTPUT",
		Short: "Extract one time range of a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runTask(cmd, func(c context.Context, ed *editor.Editor) (*task.Task, error) {
				return ed.Trim(c, editor.TrimRequest{
					Source:  args[0],
					Output:  args[1],
					Begin:   begin,
					End:     end,
					Media:   pipeline.MediaType(media),
					Publish: ctx.publish,
				})
			})
		},
	}
	cmd.Flags().Float64Var(&begin, "begin", 0, "Start of the range in seconds")
	cmd.Flags().Float64Var(&end, "end", 0, "End of the range in seconds")
	cmd.Flags().StringVar(&media, "media", "", "video (default) or audio")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newCutCommand(ctx *commandContext) *cobra.Command {
	var specs []string
	var media string

	cmd := &cobra.Command{
		Use:   "cut SOURCE OUTPUT_DIR",
		Short: "Cut several segments of a file into separate outputs",
		Long: "Cut several segments of a file into separate outputs named\n" +
			"<source>_<index><ext>. Invalid segments are reported and skipped.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			segments := make([]editor.Segment, 0, len(specs))
			for _, s := range specs {
				seg, err := parseSegment(s)
				if err != nil {
					return err
				}
				segments = append(segments, seg)
			}
			return ctx.runTask(cmd, func(c context.Context, ed *editor.Editor) (*task.Task, error) {
				res, err := ed.CutAudio(c, editor.CutRequest{
					Source:    args[0],
					OutputDir: args[1],
					Segments:  segments,
					Media:     pipeline.MediaType(media),
					Publish:   ctx.publish,
				})
				if err != nil {
					return nil, err
				}
				for _, s := range res.Skipped {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s\n", s)
				}
				return res.Task, nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&specs, "segment", "s", nil, "Segment as INDEX:BEGIN-END (repeatable)")
	cmd.Flags().StringVar(&media, "media", "", "audio (default) or video")
	_ = cmd.MarkFlagRequired("segment")
	return cmd
}

func newCompositeCommand(ctx *commandContext) *cobra.Command {
	var specs []string
	var media string

	cmd := &cobra.Command{
		Use:   "composite OUTPUT",
		Short: "Join clips of one or more files back to back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clips := make([]editor.Clip, 0, len(specs))
			for _, s := range specs {
				clip, err := parseClip(s)
				if err != nil {
					return err
				}
				clips = append(clips, clip)
			}
			return ctx.runTask(cmd, func(c context.Context, ed *editor.Editor) (*task.Task, error) {
				return ed.Composite(c, editor.CompositeRequest{
					Clips:   clips,
					Output:  args[0],
					Media:   pipeline.MediaType(media),
					Publish: ctx.publish,
				})
			})
		},
	}
	cmd.Flags().StringArrayVar(&specs, "clip", nil, "Clip as PATH@BEGIN-END (repeatable, in order)")
	cmd.Flags().StringVar(&media, "media", "", "audio (default) or video")
	_ = cmd.MarkFlagRequired("clip")
	return cmd
}

func newWatermarkCommand(ctx *commandContext) *cobra.Command {
	var specs []string

	cmd := &cobra.Command{
		Use:   "watermark SOURCE OUTPUT",
		Short: "Draw images onto a video for given time ranges",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			overlays := make([]editor.Overlay, 0, len(specs))
			for _, s := range specs {
				ov, err := parseOverlay(s)
				if err != nil {
					return err
				}
				overlays = append(overlays, ov)
			}
			return ctx.runTask(cmd, func(c context.Context, ed *editor.Editor) (*task.Task, error) {
				return ed.Watermark(c, editor.WatermarkRequest{
					Source:   args[0],
					Output:   args[1],
					Overlays: overlays,
					Publish:  ctx.publish,
				})
			})
		},
	}
	cmd.Flags().StringArrayVar(&specs, "overlay", nil, "Overlay as IMAGE@X,Y@BEGIN-END (repeatable, later on top)")
	_ = cmd.MarkFlagRequired("overlay")
	return cmd
}

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	req := editor.SnapshotRequest{}

	cmd := &cobra.Command{
		Use:   "snapshot SOURCE DIR",
		Short: "Save still images sampled at a fixed rate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Source, req.Dir, req.Publish = args[0], args[1], ctx.publish
			return ctx.runTask(cmd, func(c context.Context, ed *editor.Editor) (*task.Task, error) {
				return ed.Snapshot(c, req)
			})
		},
	}
	cmd.Flags().Float64Var(&req.Start, "start", 0, "First instant in seconds")
	cmd.Flags().IntVar(&req.FPS, "fps", 1, "Stills per second")
	cmd.Flags().Float64Var(&req.Duration, "duration", 0, "Sampled span in seconds")
	cmd.Flags().StringVar(&req.Prefix, "prefix", "", "File name prefix")
	cmd.Flags().IntVar(&req.Quality, "quality", 0, "JPEG quality from 1 (best) to 5")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var presetName string

	cmd := &cobra.Command{
		Use:   "convert SOURCE OUTPUT",
		Short: "Re-encode a file with a named preset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runTask(cmd, func(c context.Context, ed *editor.Editor) (*task.Task, error) {
				return ed.Convert(c, editor.ConvertRequest{
					Source:  args[0],
					Output:  args[1],
					Preset:  presetName,
					Publish: ctx.publish,
				})
			})
		},
	}
	cmd.Flags().StringVarP(&presetName, "preset", "p", "", "Preset name (see `mediactl presets`)")
	_ = cmd.MarkFlagRequired("preset")
	return cmd
}

func newVolumeCommand(ctx *commandContext) *cobra.Command {
	var db float64
	var relative bool

	cmd := &cobra.Command{
		Use:   "volume SOURCE OUTPUT",
		Short: "Change the audio level of a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runTask(cmd, func(c context.Context, ed *editor.Editor) (*task.Task, error) {
				return ed.AdjustDecibel(c, editor.DecibelRequest{
					Source:   args[0],
					Output:   args[1],
					Decibel:  db,
					Relative: relative,
					Publish:  ctx.publish,
				})
			})
		},
	}
	cmd.Flags().Float64Var(&db, "db", 0, "Target level in dBFS, or change in dB with --relative")
	cmd.Flags().BoolVar(&relative, "relative", false, "Treat --db as a change instead of a target")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}
