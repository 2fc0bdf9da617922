package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Xprriacst/google-maps-scraper/internal/blacklist"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage companies excluded from enrichment",
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blacklisted companies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		bl, err := blacklist.Load(cfg.Blacklist.Path)
		if err != nil {
			return err
		}
		if bl.Len() == 0 {
			fmt.Fprintln(os.Stderr, "Blacklist is empty.")
			return nil
		}
		for _, n := range bl.List() {
			fmt.Fprintln(os.Stdout, n)
		}
		return nil
	},
}

var blacklistAddCmd = &cobra.Command{
	Use:   "add <company>...",
	Short: "Add companies to the blacklist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bl, err := blacklist.Load(cfg.Blacklist.Path)
		if err != nil {
			return err
		}
		added := bl.Add(args...)
		if err := bl.Save(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Added %d of %d (now %d)\n", added, len(args), bl.Len())
		return nil
	},
}

var blacklistRemoveCmd = &cobra.Command{
	Use:   "remove <company>",
	Short: "Remove a company from the blacklist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bl, err := blacklist.Load(cfg.Blacklist.Path)
		if err != nil {
			return err
		}
		if !bl.Remove(args[0]) {
			fmt.Fprintf(os.Stderr, "%q is not blacklisted.\n", args[0])
			return nil
		}
		if err := bl.Save(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Removed %q\n", args[0])
		return nil
	},
}

func init() {
	blacklistCmd.AddCommand(blacklistListCmd)
	blacklistCmd.AddCommand(blacklistAddCmd)
	blacklistCmd.AddCommand(blacklistRemoveCmd)
	rootCmd.AddCommand(blacklistCmd)
}
