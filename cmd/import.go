package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hmans/catalog/internal/library"
	"github.com/hmans/catalog/internal/ui"
)

var (
	importQuiet bool
	importWatch bool
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import books from markdown files",
	Long: `Import every .md file in a directory as a book.

Each file carries the book in its front matter:

  ---
  title: Refactoring to patterns
  author: Joshua Kerievsky
  published: 2008
  genres: [refactoring, patterns]
  ---

Files are imported in name order. Import stops at the first file that
fails; books imported before it are kept.

With --watch the command keeps running and imports markdown files as they
are added to the directory, until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		books, err := app.catalog.ImportBooks(cmd.Context(), args[0])
		if !importQuiet {
			for _, b := range books {
				fmt.Println(ui.RenderBook(b))
			}
		}
		fmt.Println(ui.RenderImportSummary(len(books), err))
		if err != nil || !importWatch {
			return err
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Println(ui.Muted.Render(fmt.Sprintf("Watching %s for new books (Ctrl+C to stop)", args[0])))
		return app.catalog.WatchBooks(ctx, args[0], func(b *library.Book) {
			if !importQuiet {
				fmt.Println(ui.RenderBook(b))
			}
		})
	},
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	importCmd.Flags().BoolVarP(&importWatch, "watch", "w", false, "Keep importing files added to the directory")
	importCmd.Flags().BoolVarP(&importQuiet, "quiet", "q", false, "Only print the summary")
	rootCmd.AddCommand(importCmd)
}
