package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"podpal/internal/app/service"
	"podpal/internal/common"
	"podpal/internal/common/security"
	"podpal/internal/platform/config"
)

type createAdminFlags struct {
	username string
	email    string
	password string
}

// NewCreateAdminCmd provisions an admin directly against the store, bypassing
// the HTTP bootstrap gate.
func NewCreateAdminCmd() *cobra.Command {
	var f createAdminFlags
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Long: `Create an admin account. The password may be given with --password or
through the PODPAL_ADMIN_PASSWORD environment variable.`,
		PreRunE: func(*cobra.Command, []string) error {
			return f.resolve()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreateAdmin(cmd.Context(), cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.username, "username", "", "admin username (required)")
	cmd.Flags().StringVar(&f.email, "email", "", "admin email (required)")
	cmd.Flags().StringVar(&f.password, "password", "", "admin password")
	return cmd
}

func (f *createAdminFlags) resolve() error {
	if f.password == "" {
		f.password = os.Getenv("PODPAL_ADMIN_PASSWORD")
	}
	if f.username == "" || f.email == "" || f.password == "" {
		return errors.New("--username, --email and a password are required")
	}
	return nil
}

func runCreateAdmin(ctx context.Context, cmd *cobra.Command, f createAdminFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	st, err := openStores(ctx, cfg, hasher, false)
	if err != nil {
		return err
	}
	defer st.close()

	tokens := security.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTExpiration)
	admins := service.NewAdminService(st.admins, st.accounts, hasher, tokens, cfg.IsProduction())

	admin, err := admins.Provision(ctx, service.AdminSignupRequest{
		Username: f.username,
		Email:    f.email,
		Password: f.password,
	})
	if err != nil {
		// Public messages are what an operator needs here too.
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Kind != common.ErrInternalServer {
			return errors.New(apiErr.Message)
		}
		return err
	}

	cmd.Printf("Created admin %s (%s)\n", admin.Username, admin.ID)
	return nil
}
