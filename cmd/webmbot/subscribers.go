package main

import (
	"context"
	"fmt"
	"strconv"

	"webmbot/internal/daily"
	"webmbot/internal/subscriber"

	"github.com/spf13/cobra"
)

func subscribersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Manage chats that receive the daily notification",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List subscribed chat ids in delivery order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSubscribers(cmd.Context(), func(ctx context.Context, subs *subscriber.Service) error {
				for _, id := range subs.List() {
					fmt.Println(id)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add [chat-id]",
		Short: "Subscribe a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q: %w", args[0], err)
			}
			return withSubscribers(cmd.Context(), func(ctx context.Context, subs *subscriber.Service) error {
				added, err := subs.Add(ctx, id)
				if err != nil {
					return err
				}
				if !added {
					fmt.Printf("%d is already subscribed\n", id)
					return nil
				}
				fmt.Printf("subscribed %d\n", id)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove [chat-id]",
		Short: "Unsubscribe a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q: %w", args[0], err)
			}
			return withSubscribers(cmd.Context(), func(ctx context.Context, subs *subscriber.Service) error {
				removed, err := subs.Remove(ctx, id)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Printf("%d is not subscribed\n", id)
					return nil
				}
				fmt.Printf("unsubscribed %d\n", id)
				return nil
			})
		},
	})

	return cmd
}

func withSubscribers(ctx context.Context, fn func(context.Context, *subscriber.Service) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logCloser, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	subs, closer, err := openSubscribers(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	if subs == nil {
		return fmt.Errorf("subscribers are disabled: set subscribers.enabled to true")
	}
	return fn(ctx, subs)
}

func dailyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Daily notification commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "send",
		Short: "Send the daily notification to every subscriber now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, logCloser, err := loadRuntime()
			if err != nil {
				return err
			}
			defer logCloser.Close()

			subs, closer, err := openSubscribers(ctx, cfg)
			if err != nil {
				return err
			}
			defer closer.Close()
			if subs == nil {
				return fmt.Errorf("subscribers are disabled: set subscribers.enabled to true")
			}

			tg, err := newTelegram(cfg)
			if err != nil {
				return err
			}
			notifier := daily.NewNotifier(daily.NotifierConfig{
				Source:      dailySource(cfg),
				Subscribers: subs,
				Platform:    tg,
				Logger:      logger,
			})
			delivered, err := notifier.Broadcast(ctx)
			fmt.Printf("delivered to %d of %d subscribers\n", delivered, subs.Len())
			return err
		},
	})

	return cmd
}
