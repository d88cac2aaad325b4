package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raparthisrichethan-png/library-lending-go/lending/engine"
)

var overdueDays int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate reports over the lending history",
}

var reportOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List open loans older than the threshold",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			loans, err := service.OverdueLoans(ctx, overdueDays)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(loans)
			}

			if len(loans) == 0 {
				fmt.Println("No overdue loans.")
				return nil
			}

			for _, loan := range loans {
				printLoan(loan)
			}

			return nil
		})
	},
}

var reportTopBooksCmd = &cobra.Command{
	Use:   "top-books",
	Short: "Rank books by total historical borrow count",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			counts, err := service.TopBorrowedBooks(ctx)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(counts)
			}

			for _, count := range counts {
				fmt.Printf("[%d] %s: %d borrows\n", count.BookID, count.Title, count.Borrows)
			}

			return nil
		})
	},
}

var reportMemberCountsCmd = &cobra.Command{
	Use:   "member-counts",
	Short: "Borrow count per member",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			counts, err := service.MemberBorrowCounts(ctx)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(counts)
			}

			for _, count := range counts {
				fmt.Printf("[%d] %s: %d borrows\n", count.MemberID, count.Name, count.Borrows)
			}

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportOverdueCmd)
	reportCmd.AddCommand(reportTopBooksCmd)
	reportCmd.AddCommand(reportMemberCountsCmd)

	reportOverdueCmd.Flags().IntVar(&overdueDays, "days", engine.DefaultOverdueThresholdDays, "Overdue threshold in days")
}
