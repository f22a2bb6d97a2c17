package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/readgarden/readgarden/internal/app/library"
	"github.com/readgarden/readgarden/internal/daemon"
)

func init() {
	bookAddCmd.Flags().StringVar(&bookAuthor, "author", "", "Book author")
	bookAddCmd.Flags().StringVar(&bookStatus, "status", "", "planned, reading, completed, abandoned or wishlist")
	bookAddCmd.Flags().StringSliceVar(&bookGenres, "genre", nil, "Genre ID (repeatable)")

	bookCmd.AddCommand(bookAddCmd, bookListCmd, bookCompleteCmd, genresCmd)
	rootCmd.AddCommand(bookCmd)
}

var (
	bookAuthor string
	bookStatus string
	bookGenres []string
)

var bookCmd = &cobra.Command{
	Use:     "book",
	Aliases: []string{"books"},
	Short:   "Manage tracked books",
}

var bookAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a book",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		b, err := d.Library.Add(contextOf(cmd), library.NewBook{
			Title:    strings.Join(args, " "),
			Author:   bookAuthor,
			Status:   bookStatus,
			GenreIDs: bookGenres,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added %q (%s)\n", b.Title, b.ID)
		return nil
	},
}

var bookListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List books",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		books, err := d.Library.List(contextOf(cmd))
		if err != nil {
			return err
		}
		if len(books) == 0 {
			fmt.Println("No books yet. Run 'readgarden book add <title>' to get started.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tSTATUS\tGENRES\tCOMPLETED")
		for _, b := range books {
			completed := "-"
			if b.DateCompleted != nil {
				completed = b.DateCompleted.Local().Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				shortID(b.ID), b.Title, b.Author, b.Status, strings.Join(b.GenreIDs, ","), completed)
		}
		return w.Flush()
	},
}

var bookCompleteCmd = &cobra.Command{
	Use:   "complete <book-id>",
	Short: "Mark a book completed and earn the completion XP",
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
		res, err := d.Engine.CompleteBook(ctx, id, time.Time{})
		if err != nil {
			return err
		}
		printResult(os.Stdout, res)
		return refreshGoals(ctx, d)
	},
}

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List the genre catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		genres, err := d.Library.Genres(contextOf(cmd))
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME")
		for _, g := range genres {
			fmt.Fprintf(w, "%s\t%s\n", g.ID, g.Name)
		}
		return w.Flush()
	},
}
