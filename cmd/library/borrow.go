package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/raparthisrichethan-png/library-lending-go/lending/engine"
)

var borrowCmd = &cobra.Command{
	Use:   "borrow MEMBER_ID BOOK_ID",
	Short: "Borrow one copy of a book for a member",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			memberID, parseErr := parseID("member id", args[0])
			if parseErr != nil {
				return parseErr
			}

			bookID, parseErr := parseID("book id", args[1])
			if parseErr != nil {
				return parseErr
			}

			record, err := service.BorrowBook(ctx, memberID, bookID)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(record)
			}

			printLoan(record)

			return nil
		})
	},
}

var returnCmd = &cobra.Command{
	Use:   "return RECORD_ID",
	Short: "Return a borrowed book by loan record id",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			recordID, parseErr := parseID("record id", args[0])
			if parseErr != nil {
				return parseErr
			}

			record, err := service.ReturnBook(ctx, recordID)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(record)
			}

			printLoan(record)

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(borrowCmd)
	rootCmd.AddCommand(returnCmd)
}
