package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/credential"
)

const passwordEnv = "TRACKER_ACCOUNT_PASSWORD"

func newAccountCommand(rt *runtime) *cobra.Command {
	account := &cobra.Command{
		Use:   "account",
		Short: "Manage organiser accounts",
	}

	var input application.RegisterAccountInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an organiser account",
		Long: `Create an organiser account directly in the database.

The password is read from --password or, when the flag is empty, from
the TRACKER_ACCOUNT_PASSWORD environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(input.Password) == "" {
				input.Password = os.Getenv(passwordEnv)
			}
			if input.DisplayName == "" {
				input.DisplayName = input.Username
			}

			store, err := rt.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.closeStore(store)

			if _, err := store.Migrate(cmd.Context()); err != nil {
				return err
			}

			svc := application.NewAccountServiceWithLogger(store, credential.NewHasher(rt.cfg.BcryptCost), newID, nil, rt.logger)
			created, err := svc.Register(cmd.Context(), input)
			if err != nil {
				var validationErr *application.ValidationError
				if errors.As(err, &validationErr) {
					for field, msg := range validationErr.FieldErrors {
						fprintf(cmd, "%s: %s\n", field, msg)
					}
				}
				return err
			}
			fprintf(cmd, "created account %s (%s)\n", created.ID, created.Email)
			return nil
		},
	}
	create.Flags().StringVar(&input.Email, "email", "", "account email")
	create.Flags().StringVar(&input.Username, "username", "", "unique username")
	create.Flags().StringVar(&input.DisplayName, "display-name", "", "display name (defaults to the username)")
	create.Flags().StringVar(&input.Password, "password", "", "account password")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("username")

	account.AddCommand(create)
	return account
}
