package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/eringen/photoblog"
	"github.com/eringen/photoblog/scaffold"
)

var initData scaffold.Data

var initCmd = &cobra.Command{
	Use:   "init <dir>",
	Short: "Create the layout and starter files of a new photo blog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}

		data := initData
		if data.SiteName == "" {
			data.SiteName = photoblog.TitleFromSlug(photoblog.Slugify(filepath.Base(abs)))
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Creating photo blog in %s\n\n", dir)

		created, err := scaffold.Create(osfs.New(abs), data)
		for _, p := range created {
			fmt.Fprintf(out, "  created %s\n", filepath.Join(dir, filepath.FromSlash(p)))
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Done! Next steps:")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  cd %s\n", dir)
		fmt.Fprintln(out, "  photoblog add-image raw-images/<photo>.jpg")
		fmt.Fprintln(out, "  photoblog validate")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Edit photoblog.yaml to set the site URL and watermark.")
		return nil
	},
}

func init() {
	f := initCmd.Flags()
	f.StringVar(&initData.SiteName, "name", "", "Site name (default: title-cased directory name)")
	f.StringVar(&initData.URL, "url", "http://localhost:3000", "Canonical site URL")
	f.StringVar(&initData.WatermarkText, "watermark-text", "monoismore.com", "Watermark text")
	rootCmd.AddCommand(initCmd)
}
