package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hookgate/internal/session"
)

var sessionsJSON bool

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd)
	sessionsCmd.PersistentFlags().BoolVar(&sessionsJSON, "json", false, "Print JSON")
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect recorded prompt history",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the prompts of one session in order",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

func openSessions() (*session.Store, error) {
	proj, err := loadProject("")
	if err != nil {
		return nil, err
	}
	proj.close()
	if proj.cfg.SessionDB == "" {
		return nil, fmt.Errorf("session_db is not configured")
	}
	return session.Open(proj.cfg.SessionDB)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, err := openSessions()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.Sessions(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if sessionsJSON {
		data, _ := json.MarshalIndent(list, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No sessions recorded.")
		return nil
	}
	for _, s := range list {
		fmt.Fprintf(out, "%-40s %4d prompts  last %s\n", s.ID, s.Prompts, s.LastUpdated.UTC().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	store, err := openSessions()
	if err != nil {
		return err
	}
	defer store.Close()

	prompts, err := store.Prompts(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if sessionsJSON {
		data, _ := json.MarshalIndent(prompts, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}
	if len(prompts) == 0 {
		fmt.Fprintf(out, "No prompts recorded for session %s.\n", args[0])
		return nil
	}
	for i, p := range prompts {
		fmt.Fprintf(out, "%3d  %s  %s\n", i+1, p.CreatedAt.UTC().Format("15:04:05"), p.Text)
	}
	return nil
}
