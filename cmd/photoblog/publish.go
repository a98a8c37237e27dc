package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/photoblog"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Write feed.xml and sitemap.xml from the post store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := loadSite()
		if err != nil {
			return err
		}
		n, err := site.WriteFeeds()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s and %s with %d posts\n", photoblog.FeedFile, photoblog.SitemapFile, n)
		return nil
	},
}

var syncDBCmd = &cobra.Command{
	Use:   "sync-db",
	Short: "Mirror the post store into the site's SQLite database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := loadSite()
		if err != nil {
			return err
		}
		res, err := site.SyncDB()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Synced %s: %d posts upserted, %d removed, %d new images\n",
			site.DatabaseFile(), res.Upserted, res.Removed, res.NewImages)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(syncDBCmd)
}
