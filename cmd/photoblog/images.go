package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/photoblog"
	"github.com/eringen/photoblog/variants"
)

var (
	processOpts       photoblog.ProcessOptions
	processQualityMap string
	processNoUpdate   bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Generate resized JPEG/WebP variants for the image library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := loadSite()
		if err != nil {
			return err
		}
		opts := processOpts
		opts.UpdatePosts = !processNoUpdate
		if processQualityMap != "" {
			if opts.Qualities, err = variants.ParseQualityMap(processQualityMap); err != nil {
				return err
			}
		}

		res, err := site.ProcessImages(opts)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, f := range res.Batch.Failed {
			fmt.Fprintf(out, "FAILED %s: %v\n", f.Source, f.Err)
		}
		fmt.Fprintf(out, "Processed %d images, %d failed, %d posts updated\n",
			len(res.Batch.Processed), len(res.Batch.Failed), res.UpdatedPosts)
		fmt.Fprintf(out, "Manifest written to %s\n", res.Manifest)
		return nil
	},
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Rebuild the variants of every post from the best available source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []photoblog.Option
		if !regenerateNoStage {
			opts = append(opts, photoblog.WithStager(photoblog.GitStager(rootDir)))
		}
		site, err := loadSite(opts...)
		if err != nil {
			return err
		}
		res, err := site.Regenerate()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, sk := range res.Skipped {
			fmt.Fprintf(out, "SKIPPED %q (%s): %s\n", sk.Title, sk.Image, sk.Reason)
		}
		fmt.Fprintf(out, "Regenerated %d posts, skipped %d\n", len(res.Processed), len(res.Skipped))
		return nil
	},
}

var regenerateNoStage bool

var normalizeApply bool

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Rename image files to slug form and update references",
	Long: `normalize lists the renames that would bring every filename in the image
library to lowercase hyphenated form. With --apply the files are renamed, post
images and references in the site's text files are updated and the rename map
is written to the tools directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := loadSite()
		if err != nil {
			return err
		}
		plan, res, err := site.NormalizeFilenames(normalizeApply)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res == nil {
			for _, r := range plan {
				fmt.Fprintf(out, "%s -> %s\n", r.Old, r.New)
			}
			if len(plan) > 0 {
				fmt.Fprintf(out, "%d files would be renamed; run with --apply to rename them\n", len(plan))
			} else {
				fmt.Fprintln(out, "All filenames are already normalized")
			}
			return nil
		}
		for _, f := range res.Failed {
			fmt.Fprintf(out, "FAILED %s -> %s: %v\n", f.Old, f.New, f.Err)
		}
		fmt.Fprintf(out, "Renamed %d files, %d failed, %d posts updated, %d files rewritten\n",
			len(res.Applied), len(res.Failed), res.UpdatedPosts, len(res.UpdatedFiles))
		fmt.Fprintf(out, "Rename map written to %s\n", res.Map)
		if len(res.Failed) > 0 {
			return fmt.Errorf("%d renames failed", len(res.Failed))
		}
		return nil
	},
}

var watermarkOpts photoblog.WatermarkOptions

var watermarkCmd = &cobra.Command{
	Use:   "watermark",
	Short: "Stamp the watermark onto every image of a directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := loadSite()
		if err != nil {
			return err
		}
		res, err := site.WatermarkDir(watermarkOpts)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, f := range res.Failed {
			fmt.Fprintf(out, "FAILED %s: %v\n", f.Source, f.Err)
		}
		fmt.Fprintf(out, "Watermarked %d images, %d failed\n", len(res.Written), len(res.Failed))
		return nil
	},
}

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate variants whenever an image in the library changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := loadSite()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return site.Watch(ctx, watchDebounce)
	},
}

func init() {
	f := processCmd.Flags()
	f.StringVar(&processOpts.Source, "source", "", "Source directory (default: image library)")
	f.StringVar(&processOpts.Dest, "dest", "", "Output directory (default: thumbs directory)")
	f.StringVar(&processOpts.File, "file", "", "Only process this file inside the source directory")
	f.IntSliceVar(&processOpts.Sizes, "sizes", nil, "Bounding-box sizes in pixels (default from config)")
	f.IntVar(&processOpts.Quality, "quality", 0, "JPEG quality 1-100 (default from config)")
	f.StringVar(&processQualityMap, "quality-map", "", `Per-size JPEG quality as JSON, e.g. '{"1600":90,"400":80}'`)
	f.BoolVar(&processOpts.NoWebP, "no-webp", false, "Do not write WebP variants")
	f.BoolVar(&processNoUpdate, "no-update-json", false, "Do not update thumb/hero of matching posts")
	f.StringVar(&processOpts.Manifest, "manifest", "", "Manifest path (default tools/process-map.json)")
	rootCmd.AddCommand(processCmd)

	regenerateCmd.Flags().BoolVar(&regenerateNoStage, "no-stage", false, "Do not stage the thumbs directory with git")
	rootCmd.AddCommand(regenerateCmd)

	normalizeCmd.Flags().BoolVar(&normalizeApply, "apply", false, "Rename files instead of listing the plan")
	rootCmd.AddCommand(normalizeCmd)

	f = watermarkCmd.Flags()
	f.StringVar(&watermarkOpts.Source, "source", "", "Source directory (default: raw images)")
	f.StringVar(&watermarkOpts.Dest, "dest", "", "Output directory (default: image library)")
	f.StringVar(&watermarkOpts.Text, "text", "", "Watermark text (default from config)")
	f.StringVar(&watermarkOpts.Font, "font", "", "TrueType font file")
	f.IntVar(&watermarkOpts.Size, "size", 0, "Font size in points (default from config)")
	rootCmd.AddCommand(watermarkCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", photoblog.DefaultDebounce, "Quiet period before a changed file is processed")
	rootCmd.AddCommand(watchCmd)
}
