package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/studysync/internal/client/auth"
)

func authCommands(with wrapFunc) []*cobra.Command {
	var username string

	register := &cobra.Command{
		Use:   "register",
		Short: "Register a new user and sign in",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, c *Cli, _ *cobra.Command, _ []string) error {
			return c.runRegister(ctx, username)
		}),
	}
	register.Flags().StringVarP(&username, "username", "u", "", "Username (prompted if empty)")

	login := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the server",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, c *Cli, _ *cobra.Command, _ []string) error {
			return c.runLogin(ctx, username)
		}),
	}
	login.Flags().StringVarP(&username, "username", "u", "", "Username (prompted if empty)")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget it locally",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, c *Cli, _ *cobra.Command, _ []string) error {
			return c.runLogout(ctx)
		}),
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show session and sync status",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, c *Cli, _ *cobra.Command, _ []string) error {
			return c.runStatus(ctx)
		}),
	}

	return []*cobra.Command{register, login, logout, status}
}

func (c *Cli) readUsername(username string) (string, error) {
	if username != "" {
		return username, nil
	}
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return "", fmt.Errorf("failed to read username: %w", err)
	}
	return username, nil
}

func (c *Cli) runRegister(ctx context.Context, username string) error {
	c.io.Println("=== Registration ===")

	username, err := c.readUsername(username)
	if err != nil {
		return err
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	sess, err := c.auth.Register(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println("✓ Registration successful!")
	c.io.Printf("Username: %s\n", sess.Username)
	c.io.Printf("User ID:  %s\n", sess.UserID)
	return nil
}

func (c *Cli) runLogin(ctx context.Context, username string) error {
	c.io.Println("=== Login ===")

	username, err := c.readUsername(username)
	if err != nil {
		return err
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	sess, err := c.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", sess.Username)
	if !sess.ExpiresAt.IsZero() {
		c.io.Printf("Access token expires: %s\n", sess.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	if err := c.auth.Logout(ctx); err != nil {
		if errors.Is(err, auth.ErrNotSignedIn) {
			return ErrNotSignedIn
		}
		return fmt.Errorf("logout failed: %w", err)
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Unsynced local changes stay queued until this user signs in again.")
	return nil
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")

	sess, err := c.session(ctx)
	switch {
	case errors.Is(err, ErrNotSignedIn):
		c.io.Println("Session: not signed in")
		return nil
	case err != nil:
		return err
	}
	c.printSession(sess)

	store, err := c.journal.ForUser(ctx, sess.UserID)
	if err != nil {
		return fmt.Errorf("failed to open change log: %w", err)
	}
	pending, parked, err := store.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count pending changes: %w", err)
	}
	c.io.Printf("Pending changes: %d\n", pending)
	if parked > 0 {
		c.io.Printf("⚠️  Rejected changes: %d (edit the record again to retry)\n", parked)
	}

	last, err := c.journal.GetLastSynced(ctx, sess.UserID)
	if err != nil {
		return err
	}
	if last.IsZero() {
		c.io.Println("Last synced: never")
	} else {
		c.io.Printf("Last synced: %s\n", last.Format(time.RFC3339))
	}
	return nil
}

func (c *Cli) printSession(sess *auth.Session) {
	c.io.Printf("Session: %s (%s)\n", sess.Username, sess.UserID)
	switch {
	case sess.ExpiresAt.IsZero():
	case c.clock.Now().Before(sess.ExpiresAt):
		c.io.Printf("Access token expires: %s\n", sess.ExpiresAt.Format(time.RFC3339))
	default:
		c.io.Println("Access token expired, it is refreshed on the next sync")
	}
}
