package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/dto"
)

var (
	createUserOrg      string
	createUserEmail    string
	createUserPassword string
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create an organization and its first admin user",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		user, err := rt.services.Users.Bootstrap(cmd.Context(), createUserOrg, dto.CreateUserRequest{
			Email:    createUserEmail,
			Password: createUserPassword,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (id %s) in organization %s\n", user.Role, user.Email, user.ID, user.OrganizationID)
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringVar(&createUserOrg, "organization", "", "organization name")
	createUserCmd.Flags().StringVar(&createUserEmail, "email", "", "admin email")
	createUserCmd.Flags().StringVar(&createUserPassword, "password", "", "admin password")
	for _, name := range []string{"organization", "email", "password"} {
		_ = createUserCmd.MarkFlagRequired(name)
	}
}
