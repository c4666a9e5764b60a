package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/inspection-scheduler/platform/go/persistence"
)

// Command groups account-related helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account utilities (create, holidays)",
	}

	cmd.AddCommand(createCommand())
	cmd.AddCommand(holidaysCommand())
	return cmd
}

func createCommand() *cobra.Command {
	var (
		databaseURL string
		name        string
		region      string
		timezone    string
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			store, cleanup, err := openAccountStore(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer cleanup()

			account, err := store.CreateAccount(ctx, persistence.CreateAccountParams{
				Name:     name,
				Region:   region,
				Timezone: timezone,
			})
			if err != nil {
				return fmt.Errorf("create account: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Account created: %d (%s, %s, %s)\n", account.AccountID, account.Name, account.Region, account.Timezone)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().StringVar(&name, "name", "", "Account display name")
	c.Flags().StringVar(&region, "region", "", "Holiday region code (defaults to AU-WA)")
	c.Flags().StringVar(&timezone, "timezone", "", "IANA timezone (defaults to Australia/Perth)")

	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("name")

	return c
}

func holidaysCommand() *cobra.Command {
	var (
		databaseURL string
		accountID   int64
		dates       []string
	)

	c := &cobra.Command{
		Use:   "holidays",
		Short: "Add tenant-specific closure dates",
		Long:  "Records closure dates the scheduler treats as non-business days for one account, on top of the regional public holiday calendar.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			parsed, err := parseHolidayDates(dates)
			if err != nil {
				return err
			}

			store, cleanup, err := openAccountStore(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := store.AddHolidayDates(ctx, accountID, parsed); err != nil {
				return fmt.Errorf("add holiday dates: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d closure date(s) for account %d.\n", len(parsed), accountID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().Int64Var(&accountID, "account-id", 0, "Account identifier")
	c.Flags().StringSliceVar(&dates, "date", nil, `Closure date as YYYY-MM-DD or "YYYY-MM-DD=Label" (repeatable)`)

	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("account-id")
	_ = c.MarkFlagRequired("date")

	return c
}

func parseHolidayDates(raw []string) (map[string]string, error) {
	parsed := make(map[string]string, len(raw))
	for _, entry := range raw {
		date, label, _ := strings.Cut(entry, "=")
		date = strings.TrimSpace(date)
		if date == "" {
			return nil, fmt.Errorf("invalid date entry %q", entry)
		}
		parsed[date] = strings.TrimSpace(label)
	}
	return parsed, nil
}

func openAccountStore(ctx context.Context, databaseURL string) (*persistence.AccountStore, func(), error) {
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("init pool: %w", err)
	}

	store, err := persistence.NewAccountStore(pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, nil, fmt.Errorf("init account store: %w", err)
	}

	return store, func() { persistence.ClosePool(pool) }, nil
}
