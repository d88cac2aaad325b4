package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/raparthisrichethan-png/library-lending-go/lending/engine"
)

var bookCategory string

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Manage the book catalog",
}

var bookAddCmd = &cobra.Command{
	Use:   "add TITLE AUTHOR STOCK",
	Short: "Add a book to the catalog",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			stock, parseErr := strconv.Atoi(args[2])
			if parseErr != nil {
				return fmt.Errorf("invalid stock %q", args[2])
			}

			book, err := service.AddBook(ctx, args[0], args[1], bookCategory, stock)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(book)
			}

			printBook(book)

			return nil
		})
	},
}

var bookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the whole catalog",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			books, err := service.ListBooks(ctx)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(books)
			}

			for _, book := range books {
				printBook(book)
			}

			return nil
		})
	},
}

var bookSearchCmd = &cobra.Command{
	Use:   "search KEYWORD",
	Short: "Search books by title, author, or category",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			books, err := service.SearchBooks(ctx, args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(books)
			}

			if len(books) == 0 {
				fmt.Println("No matches found.")
				return nil
			}

			for _, book := range books {
				printBook(book)
			}

			return nil
		})
	},
}

var bookUpdateStockCmd = &cobra.Command{
	Use:   "update-stock BOOK_ID STOCK",
	Short: "Set a book's stock to an absolute value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			bookID, parseErr := parseID("book id", args[0])
			if parseErr != nil {
				return parseErr
			}

			stock, parseErr := strconv.Atoi(args[1])
			if parseErr != nil {
				return fmt.Errorf("invalid stock %q", args[1])
			}

			book, err := service.UpdateBookStock(ctx, bookID, stock)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(book)
			}

			printBook(book)

			return nil
		})
	},
}

var bookDeleteCmd = &cobra.Command{
	Use:   "delete BOOK_ID",
	Short: "Delete a book (refused while a copy is on loan)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			bookID, parseErr := parseID("book id", args[0])
			if parseErr != nil {
				return parseErr
			}

			if err := service.DeleteBook(ctx, bookID); err != nil {
				return err
			}

			cmd.Printf("Book %d deleted\n", bookID)

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(bookCmd)
	bookCmd.AddCommand(bookAddCmd)
	bookCmd.AddCommand(bookListCmd)
	bookCmd.AddCommand(bookSearchCmd)
	bookCmd.AddCommand(bookUpdateStockCmd)
	bookCmd.AddCommand(bookDeleteCmd)

	bookAddCmd.Flags().StringVar(&bookCategory, "category", "", "Book category")
}
