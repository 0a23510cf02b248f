package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/inbox-ai/internal/credential"
	"github.com/nhle/inbox-ai/internal/model"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored credentials",
}

var authSetCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Store the IMAP password in the system keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), "IMAP password: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		password, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(password, "\r\n")
		if password == "" {
			return fmt.Errorf("password must not be empty")
		}

		if err := credential.Set(credential.KeyIMAPPassword, password); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Password stored."))
		return nil
	},
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the IMAP password from the system keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credential.Delete(credential.KeyIMAPPassword); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Password removed."))
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = model.DefaultConfigPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}

		cfg, err := model.LoadConfig(path)
		if err != nil {
			return err
		}
		if err := model.SaveConfig(path, cfg); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Wrote "+path))
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(
			"Edit it to set your IMAP account, then run 'inboxai auth set-password'."))
		return nil
	},
}

func init() {
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authClearCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(initCmd)
}
