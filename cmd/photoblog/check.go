package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/eringen/photoblog/validate"
)

var (
	validateMaxKB      float64
	validateMaxWidth   int
	validateMaxHeight  int
	validateWarnOnly   bool
	validateFailOnWarn bool
	linksWarnOnly      bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that every post references files that exist",
	Long: `validate checks the image, thumb and hero of every post in the store. Missing
files are errors; filenames with spaces or uppercase letters and files over
the size or dimension limits are warnings.

Exit status is 2 when errors are found (or warnings, with --fail-on-warn).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := loadSite()
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("max-kb") {
			site.Config.Validate.MaxKB = validateMaxKB
		}
		if f.Changed("max-width") {
			site.Config.Validate.MaxWidth = validateMaxWidth
		}
		if f.Changed("max-height") {
			site.Config.Validate.MaxHeight = validateMaxHeight
		}

		r, err := site.Validate()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printReport(out, r)
		fmt.Fprintf(out, "Checked %d posts, %d references: %d errors, %d warnings (%s)\n",
			r.Scanned, r.Checked, len(r.Errors), len(r.Warnings), r.Status())
		return findings(r.ExitCode(validateWarnOnly, validateFailOnWarn))
	},
}

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Check local href/src links of every HTML page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := loadSite()
		if err != nil {
			return err
		}
		r, err := site.CheckLinks()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printReport(out, r)
		fmt.Fprintf(out, "Scanned %d pages, %d local links: %d broken\n", r.Scanned, r.Checked, len(r.Errors))
		return findings(r.ExitCode(linksWarnOnly, false))
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Normalize the closing tags and site scripts of post pages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := loadSite()
		if err != nil {
			return err
		}
		res, err := site.RepairPosts()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range res.Repaired {
			fmt.Fprintf(out, "repaired %s\n", p)
		}
		fmt.Fprintf(out, "Scanned %d pages, repaired %d\n", res.Scanned, len(res.Repaired))
		return nil
	},
}

func printReport(w io.Writer, r validate.Report) {
	for _, f := range r.Errors {
		fmt.Fprintf(w, "ERROR: %s\n", f.Message)
	}
	for _, f := range r.Warnings {
		fmt.Fprintf(w, "WARN: %s\n", f.Message)
	}
}

func init() {
	f := validateCmd.Flags()
	f.Float64Var(&validateMaxKB, "max-kb", 0, "Warn for files larger than this many KB (default from config)")
	f.IntVar(&validateMaxWidth, "max-width", 0, "Warn for images wider than this (default from config)")
	f.IntVar(&validateMaxHeight, "max-height", 0, "Warn for images taller than this (default from config)")
	f.BoolVar(&validateWarnOnly, "warn-only", false, "Report errors without failing")
	f.BoolVar(&validateFailOnWarn, "fail-on-warn", false, "Fail when warnings are found")
	validateCmd.MarkFlagsMutuallyExclusive("warn-only", "fail-on-warn")
	rootCmd.AddCommand(validateCmd)

	linksCmd.Flags().BoolVar(&linksWarnOnly, "warn-only", false, "Report broken links without failing")
	rootCmd.AddCommand(linksCmd)

	rootCmd.AddCommand(repairCmd)
}
