package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/pocketdash/mobile-auth/internal/server/storage"
	"github.com/pocketdash/mobile-auth/pkg/models"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands",
	Long:  "Administrative commands for managing the email whitelist and user accounts",
}

var approveEmailCmd = &cobra.Command{
	Use:   "approve-email",
	Short: "Add an email to the approval whitelist",
	Run:   runApproveEmailCommand,
}

var revokeEmailCmd = &cobra.Command{
	Use:   "revoke-email",
	Short: "Remove an email from the approval whitelist",
	Run:   runRevokeEmailCommand,
}

var listApprovedCmd = &cobra.Command{
	Use:   "list-approved",
	Short: "List whitelist entries",
	Run:   runListApprovedCommand,
}

var listUsersCmd = &cobra.Command{
	Use:   "list-users",
	Short: "List all user accounts",
	Run:   runListUsersCommand,
}

var deactivateUserCmd = &cobra.Command{
	Use:   "deactivate-user",
	Short: "Deactivate a user account, blocking access on their next request",
	Run:   runSetDeactivatedCommand(true),
}

var reactivateUserCmd = &cobra.Command{
	Use:   "reactivate-user",
	Short: "Reactivate a previously deactivated user account",
	Run:   runSetDeactivatedCommand(false),
}

var setExpirationCmd = &cobra.Command{
	Use:   "set-expiration",
	Short: "Set or clear a user's account expiration date",
	Run:   runSetExpirationCommand,
}

var cleanupTokensCmd = &cobra.Command{
	Use:   "cleanup-tokens",
	Short: "Delete expired magic-link tokens, or all tokens past a retention age",
	Run:   runCleanupTokensCommand,
}

func init() {
	approveEmailCmd.Flags().String("email", "", "Email address (required)")
	approveEmailCmd.Flags().String("role", models.RoleBasic, "Role: basic or admin")
	approveEmailCmd.Flags().String("expires", "", "Expiration date (RFC3339, optional)")
	approveEmailCmd.MarkFlagRequired("email")

	revokeEmailCmd.Flags().String("email", "", "Email address (required)")
	revokeEmailCmd.MarkFlagRequired("email")

	deactivateUserCmd.Flags().String("email", "", "User email (required)")
	deactivateUserCmd.MarkFlagRequired("email")

	reactivateUserCmd.Flags().String("email", "", "User email (required)")
	reactivateUserCmd.MarkFlagRequired("email")

	setExpirationCmd.Flags().String("email", "", "User email (required)")
	setExpirationCmd.Flags().String("expires", "", "Expiration date (RFC3339); empty clears it")
	setExpirationCmd.MarkFlagRequired("email")

	cleanupTokensCmd.Flags().Duration("older-than", 0,
		"Also delete used and unexpired tokens created more than this long ago (e.g. 720h)")

	adminCmd.AddCommand(
		approveEmailCmd,
		revokeEmailCmd,
		listApprovedCmd,
		listUsersCmd,
		deactivateUserCmd,
		reactivateUserCmd,
		setExpirationCmd,
		cleanupTokensCmd,
	)
}

func adminConnect() *storage.DB {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	db, err := storage.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return db
}

func runApproveEmailCommand(cmd *cobra.Command, args []string) {
	email, _ := cmd.Flags().GetString("email")
	role, _ := cmd.Flags().GetString("role")
	expires, _ := cmd.Flags().GetString("expires")

	db := adminConnect()
	defer db.Close()

	entry := &models.ApprovedEmail{Email: email, Role: role}
	if expires != "" {
		t, err := time.Parse(time.RFC3339, expires)
		if err != nil {
			log.Fatalf("Invalid expiration date %q: %v", expires, err)
		}
		entry.ExpirationDate = &t
	}

	if err := storage.NewWhitelistRepository(db).Upsert(context.Background(), entry); err != nil {
		log.Fatalf("Failed to approve email: %v", err)
	}
	fmt.Printf("Approved %s (role: %s)\n", email, role)
}

func runRevokeEmailCommand(cmd *cobra.Command, args []string) {
	email, _ := cmd.Flags().GetString("email")

	db := adminConnect()
	defer db.Close()

	if err := storage.NewWhitelistRepository(db).Delete(context.Background(), email); err != nil {
		log.Fatalf("Failed to revoke email: %v", err)
	}
	fmt.Printf("Revoked %s\n", email)
}

func runListApprovedCommand(cmd *cobra.Command, args []string) {
	db := adminConnect()
	defer db.Close()

	entries, err := storage.NewWhitelistRepository(db).ListAll(context.Background())
	if err != nil {
		log.Fatalf("Failed to list whitelist: %v", err)
	}

	for _, e := range entries {
		expires := "never"
		if e.ExpirationDate != nil {
			expires = e.ExpirationDate.Format(time.RFC3339)
		}
		fmt.Printf("%-40s role=%-6s expires=%s\n", e.Email, e.Role, expires)
	}
	fmt.Printf("%d entries\n", len(entries))
}

func runListUsersCommand(cmd *cobra.Command, args []string) {
	db := adminConnect()
	defer db.Close()

	users, err := storage.NewUserRepository(db).ListAll(context.Background())
	if err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}

	for _, u := range users {
		status := "active"
		if u.IsDeactivated {
			status = "deactivated"
		}
		lastActive := "never"
		if u.LastActiveAt != nil {
			lastActive = u.LastActiveAt.Format(time.RFC3339)
		}
		fmt.Printf("%-40s role=%-6s status=%-11s last_active=%s\n", u.Email, u.NormalizedRole(), status, lastActive)
	}
	fmt.Printf("%d users\n", len(users))
}

func runSetDeactivatedCommand(deactivated bool) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		email, _ := cmd.Flags().GetString("email")

		db := adminConnect()
		defer db.Close()

		ctx := context.Background()
		userRepo := storage.NewUserRepository(db)

		user, err := userRepo.GetByEmail(ctx, email)
		if err != nil {
			log.Fatalf("Failed to find user: %v", err)
		}
		if user == nil {
			log.Fatalf("User not found: %s", email)
		}

		if err := userRepo.SetDeactivated(ctx, user.ID, deactivated); err != nil {
			log.Fatalf("Failed to update user: %v", err)
		}
		if deactivated {
			fmt.Printf("Deactivated %s\n", email)
		} else {
			fmt.Printf("Reactivated %s\n", email)
		}
	}
}

func runSetExpirationCommand(cmd *cobra.Command, args []string) {
	email, _ := cmd.Flags().GetString("email")
	expires, _ := cmd.Flags().GetString("expires")

	db := adminConnect()
	defer db.Close()

	ctx := context.Background()
	userRepo := storage.NewUserRepository(db)

	user, err := userRepo.GetByEmail(ctx, email)
	if err != nil {
		log.Fatalf("Failed to find user: %v", err)
	}
	if user == nil {
		log.Fatalf("User not found: %s", email)
	}

	var expiration *time.Time
	if expires != "" {
		t, err := time.Parse(time.RFC3339, expires)
		if err != nil {
			log.Fatalf("Invalid expiration date %q: %v", expires, err)
		}
		expiration = &t
	}

	if err := userRepo.SetExpirationDate(ctx, user.ID, expiration); err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}
	if expiration != nil {
		fmt.Printf("Set expiration for %s to %s\n", email, expiration.Format(time.RFC3339))
	} else {
		fmt.Printf("Cleared expiration for %s\n", email)
	}
}

func runCleanupTokensCommand(cmd *cobra.Command, args []string) {
	db := adminConnect()
	defer db.Close()

	repo := storage.NewTokenRepository(db)

	olderThan, _ := cmd.Flags().GetDuration("older-than")
	if olderThan > 0 {
		count, err := repo.CleanupOldTokens(context.Background(), olderThan)
		if err != nil {
			log.Fatalf("Failed to cleanup tokens: %v", err)
		}
		fmt.Printf("Deleted %d tokens older than %s\n", count, olderThan)
		return
	}

	count, err := repo.DeleteExpired(context.Background())
	if err != nil {
		log.Fatalf("Failed to cleanup tokens: %v", err)
	}
	fmt.Printf("Deleted %d expired tokens\n", count)
}
