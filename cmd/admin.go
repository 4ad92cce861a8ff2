/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/qrgate/portal/config"
	"github.com/qrgate/portal/internal/db"
	"github.com/qrgate/portal/internal/services"
	"github.com/qrgate/portal/internal/store"
	"github.com/qrgate/portal/types"
	"github.com/spf13/cobra"
)

var grantRole string

// adminCmd represents the admin command
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminGrantCmd = &cobra.Command{
	Use:   "grant <email>",
	Short: "Grant an admin role to a registered account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		auth := services.NewAuthService(store.NewAccountRepository(conn))
		if err := auth.GrantAdmin(cmd.Context(), args[0], grantRole); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", grantRole, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminGrantCmd)

	adminGrantCmd.Flags().StringVar(&grantRole, "role", types.RoleAdmin, "super_admin, admin or manager")
}
