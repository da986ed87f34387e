package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	apperrors "worklog/backend/internal/errors"
	"worklog/backend/internal/service"
)

type dayAction func(ctx context.Context, tracker *service.TrackerService, date string) (*service.StateView, *apperrors.APIError)

func newDayCommands(ctx *commandContext) []*cobra.Command {
	var category string
	stopCmd := newDayActionCommand(ctx, "stop", "Stop working and start a break", func(c context.Context, t *service.TrackerService, date string) (*service.StateView, *apperrors.APIError) {
		return t.Stop(c, date, category)
	})
	stopCmd.Flags().StringVar(&category, "category", "general", "Break category: lunch, coffee or general")

	var confirm bool
	resetCmd := newDayActionCommand(ctx, "reset", "Delete the work day and all of its history", func(c context.Context, t *service.TrackerService, date string) (*service.StateView, *apperrors.APIError) {
		return t.ResetDay(c, date)
	})
	resetCmd.Flags().BoolVar(&confirm, "yes", false, "Confirm the reset")
	resetCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if !confirm {
			return errors.New("reset removes the whole day and cannot be revoked; pass --yes to confirm")
		}
		return nil
	}

	return []*cobra.Command{
		newDayActionCommand(ctx, "start", "Start the work day", func(c context.Context, t *service.TrackerService, date string) (*service.StateView, *apperrors.APIError) {
			return t.StartDay(c, date)
		}),
		stopCmd,
		newDayActionCommand(ctx, "continue", "End the current break and resume work", func(c context.Context, t *service.TrackerService, date string) (*service.StateView, *apperrors.APIError) {
			return t.Continue(c, date)
		}),
		newDayActionCommand(ctx, "end", "End the work day", func(c context.Context, t *service.TrackerService, date string) (*service.StateView, *apperrors.APIError) {
			return t.EndDay(c, date)
		}),
		resetCmd,
	}
}

func newDayActionCommand(ctx *commandContext, use, short string, action dayAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(tracker *service.TrackerService, date string) error {
				view, apiErr := action(cmd.Context(), tracker, date)
				if apiErr != nil {
					return cliError(apiErr)
				}
				return ctx.printState(cmd, tracker, view)
			})
		},
	}
}

func (c *commandContext) printState(cmd *cobra.Command, tracker *service.TrackerService, view *service.StateView) error {
	if c.jsonFlag {
		return writeJSON(cmd.OutOrStdout(), view)
	}
	renderState(cmd.OutOrStdout(), view, tracker.Location())
	return nil
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state and running totals of a work day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(tracker *service.TrackerService, date string) error {
				view, apiErr := tracker.GetState(cmd.Context(), date)
				if apiErr != nil {
					return cliError(apiErr)
				}
				return ctx.printState(cmd, tracker, view)
			})
		},
	}
}

func newRevokeCommand(ctx *commandContext) *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "revoke [sequence]",
		Short: "Undo the most recent action, a given one, or the last N",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if last != 0 && len(args) > 0 {
				return errors.New("pass either a sequence or --last, not both")
			}
			var sequence int64
			if len(args) == 1 {
				parsed, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || parsed <= 0 {
					return fmt.Errorf("invalid sequence %q", args[0])
				}
				sequence = parsed
			}
			return ctx.withTracker(cmd, func(tracker *service.TrackerService, date string) error {
				if cmd.Flags().Changed("last") {
					return ctx.revokeBatch(cmd, tracker, date, last)
				}
				var (
					view   *service.StateView
					apiErr *apperrors.APIError
				)
				if sequence > 0 {
					view, apiErr = tracker.Revoke(cmd.Context(), date, sequence)
				} else {
					view, apiErr = tracker.RevokeLast(cmd.Context(), date)
				}
				if apiErr != nil {
					return cliError(apiErr)
				}
				return ctx.printState(cmd, tracker, view)
			})
		},
	}
	cmd.Flags().IntVar(&last, "last", 0, "Revoke the N most recent actions, newest first")
	return cmd
}

func (c *commandContext) revokeBatch(cmd *cobra.Command, tracker *service.TrackerService, date string, n int) error {
	result, apiErr := tracker.RevokeBatch(cmd.Context(), date, n)
	if apiErr != nil {
		return cliError(apiErr)
	}
	if c.jsonFlag {
		if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Revoked %d of %d action(s)\n", len(result.Revoked), result.Requested)
		if result.State != nil {
			renderState(cmd.OutOrStdout(), result.State, tracker.Location())
		}
	}
	if result.Failure == nil {
		return nil
	}
	if len(result.Revoked) == 0 {
		return cliError(result.Failure)
	}
	if !c.jsonFlag {
		fmt.Fprintf(cmd.OutOrStdout(), "Stopped early: %s\n", result.Failure.Message)
	}
	return nil
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded actions, revoked ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(tracker *service.TrackerService, date string) error {
				rangeFrom, rangeTo := date, date
				if from != "" || to != "" {
					var apiErr *apperrors.APIError
					rangeFrom, rangeTo, apiErr = resolveRange(tracker, from, to)
					if apiErr != nil {
						return cliError(apiErr)
					}
				}
				actions, apiErr := tracker.ListActionsRange(cmd.Context(), rangeFrom, rangeTo)
				if apiErr != nil {
					return cliError(apiErr)
				}
				if ctx.jsonFlag {
					return writeJSON(cmd.OutOrStdout(), actions)
				}
				renderActions(cmd.OutOrStdout(), actions, tracker.Location())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First day of a range (defaults to --to)")
	cmd.Flags().StringVar(&to, "to", "", "Last day of a range (defaults to --from)")
	return cmd
}

// resolveRange fills a missing bound from the other one.
func resolveRange(tracker *service.TrackerService, from, to string) (string, string, *apperrors.APIError) {
	if from == "" {
		from = to
	}
	if to == "" {
		to = from
	}
	resolvedFrom, apiErr := tracker.ResolveDate(from)
	if apiErr != nil {
		return "", "", apiErr
	}
	resolvedTo, apiErr := tracker.ResolveDate(to)
	if apiErr != nil {
		return "", "", apiErr
	}
	return resolvedFrom, resolvedTo, nil
}
