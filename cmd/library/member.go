package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/raparthisrichethan-png/library-lending-go/lending/engine"
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage library members",
}

var memberAddCmd = &cobra.Command{
	Use:   "add NAME EMAIL",
	Short: "Register a new member",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			member, err := service.AddMember(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(member)
			}

			printMember(member)

			return nil
		})
	},
}

var memberListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all members",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			members, err := service.ListMembers(ctx)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(members)
			}

			for _, member := range members {
				printMember(member)
			}

			return nil
		})
	},
}

var memberUpdateEmailCmd = &cobra.Command{
	Use:   "update-email MEMBER_ID EMAIL",
	Short: "Change a member's email address",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			memberID, parseErr := parseID("member id", args[0])
			if parseErr != nil {
				return parseErr
			}

			member, err := service.UpdateMemberEmail(ctx, memberID, args[1])
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(member)
			}

			printMember(member)

			return nil
		})
	},
}

var memberDeleteCmd = &cobra.Command{
	Use:   "delete MEMBER_ID",
	Short: "Delete a member (refused while the member has open loans)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runOperation(func(ctx context.Context, service *engine.Service) error {
			memberID, parseErr := parseID("member id", args[0])
			if parseErr != nil {
				return parseErr
			}

			if err := service.DeleteMember(ctx, memberID); err != nil {
				return err
			}

			cmd.Printf("Member %d deleted\n", memberID)

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(memberCmd)
	memberCmd.AddCommand(memberAddCmd)
	memberCmd.AddCommand(memberListCmd)
	memberCmd.AddCommand(memberUpdateEmailCmd)
	memberCmd.AddCommand(memberDeleteCmd)
}
