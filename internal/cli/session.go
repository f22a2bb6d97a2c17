package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/readgarden/readgarden/internal/app/progression"
	"github.com/readgarden/readgarden/internal/daemon"
)

func init() {
	sessionFinishCmd.Flags().IntVar(&sessionMinutes, "minutes", 0, "Minutes read (default: time since start)")
	sessionFinishCmd.Flags().IntVar(&sessionPages, "pages", -1, "Pages read")
	sessionListCmd.Flags().IntVar(&sessionDays, "days", 7, "Show sessions from the last N days (0 for all)")

	sessionCmd.AddCommand(sessionStartCmd, sessionFinishCmd, sessionListCmd)
	rootCmd.AddCommand(sessionCmd)
}

var (
	sessionMinutes int
	sessionPages   int
	sessionDays    int
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start, finish and list reading sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <book-id>",
	Short: "Start reading a book now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := contextOf(cmd)
		id, err := resolveBookID(ctx, d, args[0])
		if err != nil {
			return err
		}
		s, err := d.Engine.StartSession(ctx, id, time.Time{})
		if err != nil {
			return err
		}
		fmt.Printf("Session %s started at %s\n", s.ID, s.StartedAt.Local().Format("15:04"))
		return nil
	},
}

var sessionFinishCmd = &cobra.Command{
	Use:   "finish <session-id>",
	Short: "Finish a session and earn XP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		f := progression.FinishSession{SessionID: args[0], Minutes: sessionMinutes}
		if sessionPages >= 0 {
			pages := sessionPages
			f.PagesRead = &pages
		}

		ctx := contextOf(cmd)
		s, res, err := d.Engine.FinishSession(ctx, f)
		if err != nil {
			return err
		}
		fmt.Printf("Read %d minutes. ", s.Minutes)
		printResult(os.Stdout, res)
		return refreshGoals(ctx, d)
	},
}

var sessionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recent reading sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		var since time.Time
		if sessionDays > 0 {
			y, m, day := time.Now().AddDate(0, 0, -sessionDays).Date()
			since = time.Date(y, m, day, 0, 0, 0, 0, time.Local)
		}
		sessions, err := d.Library.Sessions(contextOf(cmd), since)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tBOOK\tSTARTED\tMINUTES\tPAGES\tXP")
		for _, s := range sessions {
			minutes, xp := "open", "-"
			if s.IsFinalized() {
				minutes = fmt.Sprint(s.Minutes)
				xp = fmt.Sprint(s.XPEarned)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				s.ID, shortID(s.BookID), s.StartedAt.Local().Format("2006-01-02 15:04"), minutes, s.Pages(), xp)
		}
		return w.Flush()
	},
}
