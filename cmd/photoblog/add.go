package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/photoblog"
)

var (
	addOpts    photoblog.AddOptions
	addNoStage bool
)

var addImageCmd = &cobra.Command{
	Use:   "add-image <image>",
	Short: "Watermark a photo, add its post and generate its variants",
	Long: `add-image watermarks the image into the image library as <slug>.jpg, inserts
a post at the top of the post store, writes the post page and generates the
size variants. The slug comes from the filename: IMG_2.JPG becomes "img".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []photoblog.Option
		if !addNoStage {
			opts = append(opts, photoblog.WithStager(photoblog.GitStager(rootDir)))
		}
		site, err := loadSite(opts...)
		if err != nil {
			return err
		}
		src, err := siteRelative(site, args[0])
		if err != nil {
			return err
		}

		res, err := site.AddImage(src, addOpts)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Added post %q (slug %s)\n", res.Post.Title, res.Slug)
		fmt.Fprintf(out, "  image:    %s\n", res.Image)
		fmt.Fprintf(out, "  page:     %s\n", res.Page)
		fmt.Fprintf(out, "  thumb:    %s\n", res.Post.Thumb)
		fmt.Fprintf(out, "  hero:     %s\n", res.Post.Hero)
		fmt.Fprintf(out, "  variants: %d images processed\n", len(res.Variants.Processed))
		return nil
	},
}

func init() {
	f := addImageCmd.Flags()
	f.StringVarP(&addOpts.Title, "title", "t", "", "Post title (default: title-cased slug)")
	f.StringVar(&addOpts.WatermarkText, "watermark-text", "", "Watermark text (default from config)")
	f.IntVar(&addOpts.WatermarkSize, "watermark-size", 0, "Watermark font size in points (default from config)")
	f.StringVar(&addOpts.Font, "font", "", "TrueType font file for the watermark")
	f.BoolVarP(&addOpts.Force, "force", "f", false, "Replace an existing post with the same slug")
	f.BoolVar(&addNoStage, "no-stage", false, "Do not stage the written files with git")
	rootCmd.AddCommand(addImageCmd)
}
