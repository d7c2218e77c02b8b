package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kpiboard/internal/database"
	"kpiboard/internal/model"
	"kpiboard/internal/repository"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	flagEmail    string
	flagName     string
	flagPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	RunE:  runCreateAdmin,
}

var setRoleCmd = &cobra.Command{
	Use:   "set-role ID ROLE",
	Short: "Change a user's role (admin, editor or viewer)",
	Args:  cobra.ExactArgs(2),
	RunE:  runSetRole,
}

func init() {
	createAdminCmd.Flags().StringVar(&flagEmail, "email", "", "Admin email address")
	createAdminCmd.Flags().StringVar(&flagName, "name", "", "Display name")
	createAdminCmd.Flags().StringVar(&flagPassword, "password", "", "Initial password")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")

	userCmd.AddCommand(createAdminCmd)
	userCmd.AddCommand(setRoleCmd)
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	db, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	admin, err := database.CreateAdmin(ctx, repository.NewUserRepository(db), flagEmail, flagName, flagPassword)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Admin %s created with ID %s.\n", admin.Email, admin.ID)
	return nil
}

func runSetRole(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid user ID %q", args[0])
	}
	role := model.Role(strings.ToLower(args[1]))
	if !role.IsValid() {
		return fmt.Errorf("unknown role %q, expected admin, editor or viewer", args[1])
	}

	db, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	if err := repository.NewUserRepository(db).UpdateRole(ctx, id, role); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %s is now %s.\n", id, role)
	return nil
}
