package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/readgarden/readgarden/internal/app/goals"
	"github.com/readgarden/readgarden/internal/daemon"
	"github.com/readgarden/readgarden/internal/domain"
)

const dateLayout = "2006-01-02"

func init() {
	goalAddCmd.Flags().StringVar(&goalTitle, "title", "", "Goal title (default: \"<target> <type>\")")
	goalAddCmd.Flags().StringVar(&goalStart, "from", "", "First day, YYYY-MM-DD (default: today)")
	goalAddCmd.Flags().StringVar(&goalEnd, "to", "", "Last day, YYYY-MM-DD (required)")
	_ = goalAddCmd.MarkFlagRequired("to")

	goalGenreCmd.Flags().BoolVar(&goalGenreRemove, "remove", false, "Remove the genre filter instead of adding it")
	goalExcludeCmd.Flags().BoolVar(&goalInclude, "undo", false, "Count the book again")

	goalCmd.AddCommand(goalListCmd, goalAddCmd, goalRmCmd, goalExcludeCmd, goalGenreCmd)
	rootCmd.AddCommand(goalCmd)
}

var (
	goalTitle       string
	goalStart       string
	goalEnd         string
	goalGenreRemove bool
	goalInclude     bool
)

var goalCmd = &cobra.Command{
	Use:     "goal",
	Aliases: []string{"goals"},
	Short:   "Manage reading goals",
}

var goalListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List goals with current progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		pass, err := d.Goals.Refresh(contextOf(cmd))
		if err != nil {
			return err
		}
		if len(pass.Goals) == 0 {
			fmt.Println("No goals yet. Run 'readgarden goal add <type> <target> --to YYYY-MM-DD'.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tTYPE\tPROGRESS\tWINDOW\tDONE")
		for _, g := range pass.Goals {
			done := ""
			if g.IsCompleted {
				done = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d (%.0f%%)\t%s..%s\t%s\n",
				shortID(g.ID), g.Title, g.Type, g.Current, g.Target, g.ProgressPct(),
				g.StartDate.Format(dateLayout), g.EndDate.Format(dateLayout), done)
		}
		return w.Flush()
	},
}

var goalAddCmd = &cobra.Command{
	Use:   "add <books|pages|minutes> <target>",
	Short: "Create a goal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := domain.ParseGoalType(args[0])
		if err != nil {
			return err
		}
		var target int
		if _, err := fmt.Sscanf(args[1], "%d", &target); err != nil {
			return fmt.Errorf("%w: target must be a number", domain.ErrInvalidGoal)
		}

		start := time.Now()
		if goalStart != "" {
			if start, err = time.ParseInLocation(dateLayout, goalStart, time.Local); err != nil {
				return fmt.Errorf("%w: --from must be YYYY-MM-DD", domain.ErrInvalidGoal)
			}
		}
		end, err := time.ParseInLocation(dateLayout, goalEnd, time.Local)
		if err != nil {
			return fmt.Errorf("%w: --to must be YYYY-MM-DD", domain.ErrInvalidGoal)
		}

		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := contextOf(cmd)
		g, err := d.Goals.Create(ctx, goals.NewGoal{
			Title:     goalTitle,
			Type:      typ,
			Target:    target,
			StartDate: start,
			EndDate:   end,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created goal %q (%s)\n", g.Title, g.ID)
		return refreshGoals(ctx, d)
	},
}

var goalRmCmd = &cobra.Command{
	Use:   "rm <goal-id>",
	Short: "Delete a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := contextOf(cmd)
		id, err := resolveGoalID(ctx, d, args[0])
		if err != nil {
			return err
		}
		if err := d.Goals.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted goal %s\n", id)
		return nil
	},
}

var goalExcludeCmd = &cobra.Command{
	Use:   "exclude <goal-id> <book-id>",
	Short: "Stop counting a book toward a goal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := contextOf(cmd)
		goalID, err := resolveGoalID(ctx, d, args[0])
		if err != nil {
			return err
		}
		bookID, err := resolveBookID(ctx, d, args[1])
		if err != nil {
			return err
		}

		apply := d.Goals.ExcludeBook
		if goalInclude {
			apply = d.Goals.IncludeBook
		}
		if err := apply(ctx, goalID, bookID); err != nil {
			return err
		}
		return printGoal(cmd, d, goalID)
	},
}

var goalGenreCmd = &cobra.Command{
	Use:   "genre <goal-id> <genre-id>",
	Short: "Only count books of the given genres toward a goal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := contextOf(cmd)
		goalID, err := resolveGoalID(ctx, d, args[0])
		if err != nil {
			return err
		}

		apply := d.Goals.AddGenreFilter
		if goalGenreRemove {
			apply = d.Goals.RemoveGenreFilter
		}
		if err := apply(ctx, goalID, args[1]); err != nil {
			return err
		}
		return printGoal(cmd, d, goalID)
	},
}

func printGoal(cmd *cobra.Command, d *daemon.Daemon, id string) error {
	g, err := d.Goals.Get(contextOf(cmd), id)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d/%d %s (%.0f%%)\n", g.Title, g.Current, g.Target, g.Type, g.ProgressPct())
	return nil
}
