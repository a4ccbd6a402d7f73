package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/config"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/database"
	"github.com/spf13/cobra"
)

// withUserStore opens the configured MongoDB user store for one command.
func withUserStore(ctx context.Context, f func(store database.UserStore) error) error {
	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		return err
	}
	db, err := connectDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Invoke(closeCtx)
	}()
	return f(database.NewMongoUserStore(db))
}

func newUserCommand() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts of the mongo auth provider",
	}

	var sendTopics, subscribeTopics []string
	add := &cobra.Command{
		Use:   "add <login> <password>",
		Short: "Create or replace an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(cmd.Context(), func(store database.UserStore) error {
				return addUser(cmd.Context(), cmd.OutOrStdout(), store, args[0], args[1], sendTopics, subscribeTopics)
			})
		},
	}
	add.Flags().StringSliceVar(&sendTopics, "send", []string{"#"}, "topic patterns the account may send to")
	add.Flags().StringSliceVar(&subscribeTopics, "subscribe", []string{"#"}, "topic patterns the account may subscribe to")

	remove := &cobra.Command{
		Use:   "delete <login>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(cmd.Context(), func(store database.UserStore) error {
				return deleteUser(cmd.Context(), cmd.OutOrStdout(), store, args[0])
			})
		},
	}

	user.AddCommand(add, remove)
	return user
}

func addUser(ctx context.Context, out io.Writer, store database.UserStore, login, password string, send, subscribe []string) error {
	user, err := database.NewUser(login, password, send, subscribe)
	if err != nil {
		return err
	}
	if err := store.SaveUser(ctx, user); err != nil {
		return err
	}
	fmt.Fprintf(out, "user %s saved\n", login)
	return nil
}

func deleteUser(ctx context.Context, out io.Writer, store database.UserStore, login string) error {
	if err := store.DeleteUser(ctx, login); err != nil {
		return err
	}
	fmt.Fprintf(out, "user %s deleted\n", login)
	return nil
}
