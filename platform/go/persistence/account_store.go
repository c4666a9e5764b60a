package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zenGate-Global/inspection-scheduler/platform/go/tenant"
)

const (
	AccountsTable     = "accounts"
	HolidayDatesTable = "holiday_dates"
)

// Account represents a row in the accounts table. Every scheduler entity is
// scoped to exactly one account.
type Account struct {
	AccountID int64     `db:"account_id" json:"accountId"`
	Name      string    `db:"name" json:"name"`
	Region    string    `db:"region" json:"region"`
	Timezone  string    `db:"timezone" json:"timezone"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

var (
	// ErrAccountNotFound indicates a missing account record.
	ErrAccountNotFound = errors.New("account not found")
)

// AccountStore exposes persistence helpers for accounts and their holiday calendars.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore returns a store instance bound to the shared pool.
func NewAccountStore(pool *pgxpool.Pool) (*AccountStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}

	return &AccountStore{pool: pool}, nil
}

// CreateAccountParams captures the fields required to insert a new account.
type CreateAccountParams struct {
	Name     string
	Region   string
	Timezone string
}

// CreateAccount inserts a new account and returns the persisted record.
// Region and timezone fall back to the Western Australia defaults.
func (s *AccountStore) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return Account{}, errors.New("account name is required")
	}

	region := strings.TrimSpace(params.Region)
	if region == "" {
		region = "AU-WA"
	}
	timezone := strings.TrimSpace(params.Timezone)
	if timezone == "" {
		timezone = "Australia/Perth"
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (name, region, timezone)
        VALUES ($1, $2, $3)
        RETURNING account_id, name, region, timezone, created_at, updated_at
    `, AccountsTable), name, region, timezone)

	return scanAccount(row)
}

// GetAccount returns a single account by identifier.
func (s *AccountStore) GetAccount(ctx context.Context, accountID int64) (Account, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT account_id, name, region, timezone, created_at, updated_at
        FROM %s WHERE account_id = $1
    `, AccountsTable), accountID)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}

	return account, nil
}

// ResolveAccountSpace satisfies the tenant middleware Resolver interface.
func (s *AccountStore) ResolveAccountSpace(accountID int64) (tenant.Space, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return tenant.Space{}, err
	}

	return tenant.Space{
		AccountID: account.AccountID,
		Name:      account.Name,
		Region:    account.Region,
		Timezone:  account.Timezone,
	}, nil
}

// AddHolidayDates registers account-specific closure dates on top of the
// regional public holiday seed. Existing entries are relabeled, not duplicated.
func (s *AccountStore) AddHolidayDates(ctx context.Context, accountID int64, dates map[string]string) error {
	if len(dates) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for date, label := range dates {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return fmt.Errorf("invalid holiday date %q: %w", date, err)
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(`
            INSERT INTO %s (account_id, holiday_date, label)
            VALUES ($1, $2::date, $3)
            ON CONFLICT (account_id, holiday_date) DO UPDATE SET label = EXCLUDED.label
        `, HolidayDatesTable), accountID, date, label); err != nil {
			return fmt.Errorf("upsert holiday date: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// HolidayDates returns the account's holiday dates keyed by ISO date (2006-01-02).
func (s *AccountStore) HolidayDates(ctx context.Context, accountID int64) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT holiday_date, label FROM %s WHERE account_id = $1
    `, HolidayDatesTable), accountID)
	if err != nil {
		return nil, fmt.Errorf("list holiday dates: %w", err)
	}
	defer rows.Close()

	dates := make(map[string]string)
	for rows.Next() {
		var date time.Time
		var label string
		if err := rows.Scan(&date, &label); err != nil {
			return nil, fmt.Errorf("scan holiday date: %w", err)
		}
		dates[date.Format("2006-01-02")] = label
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holiday dates: %w", err)
	}

	return dates, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var account Account

	if err := row.Scan(&account.AccountID, &account.Name, &account.Region, &account.Timezone, &account.CreatedAt, &account.UpdatedAt); err != nil {
		return Account{}, err
	}

	return account, nil
}
