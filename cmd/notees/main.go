// Command notees is the command line client of the notees app: sign in, sign
// up and manage your notes against a Supabase-compatible backend.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	themeName  string
)

var rootCmd = &cobra.Command{
	Use:   "notees",
	Short: "Capture your thoughts from the terminal",
	Long: `notees signs you in to your notes project and lets you list, create, edit
and delete notes with optional image or video attachments.

The project is configured with NOTEES_SUPABASE_URL and NOTEES_SUPABASE_ANON_KEY
or a YAML file (--config). Your session is kept between runs.

Run without arguments to start the interactive shell.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runShell(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/notees/config.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&themeName, "theme", "", "color theme: amber, dark, emerald or ink (default depends on the screen)")

	rootCmd.AddCommand(shellCmd, loginCmd, signupCmd, logoutCmd, whoamiCmd, postsCmd)
	postsCmd.AddCommand(postsListCmd, postsCreateCmd, postsEditCmd, postsDeleteCmd)

	for _, c := range []*cobra.Command{postsCreateCmd, postsEditCmd} {
		c.Flags().StringP("title", "t", "", "note title")
		c.Flags().StringP("description", "d", "", "note description")
		c.Flags().StringP("media", "m", "", "image or video file to attach")
	}
	loginCmd.Flags().StringP("email", "e", "", "account email")
	postsDeleteCmd.Flags().BoolP("yes", "y", false, "delete without asking")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
