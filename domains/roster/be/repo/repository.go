package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/zenGate-Global/inspection-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/tenant"
)

// Repository defines the persistence operations required by the roster service.
type Repository interface {
	ListActive(ctx context.Context) ([]persistence.Inspector, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Inspector, error)
	Create(ctx context.Context, params persistence.CreateInspectorParams) (persistence.Inspector, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	AddBufferBlock(ctx context.Context, block persistence.BufferBlock) error
	UpsertManagerPreference(ctx context.Context, manager persistence.PropertyManager) error
}

type postgresRepository struct {
	store *persistence.RosterStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.RosterStore) Repository {
	if store == nil {
		panic("roster store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) ListActive(ctx context.Context) ([]persistence.Inspector, error) {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return nil, err
	}
	return r.store.ListActiveInspectors(ctx, space.AccountID)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Inspector, error) {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return persistence.Inspector{}, err
	}
	return r.store.GetInspector(ctx, space.AccountID, id)
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateInspectorParams) (persistence.Inspector, error) {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return persistence.Inspector{}, err
	}
	params.AccountID = space.AccountID
	return r.store.CreateInspector(ctx, params)
}

func (r *postgresRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return err
	}
	return r.store.SetInspectorActive(ctx, space.AccountID, id, active)
}

func (r *postgresRepository) AddBufferBlock(ctx context.Context, block persistence.BufferBlock) error {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return err
	}
	block.AccountID = space.AccountID
	_, err = r.store.AddBufferBlock(ctx, block)
	return err
}

func (r *postgresRepository) UpsertManagerPreference(ctx context.Context, manager persistence.PropertyManager) error {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return err
	}
	manager.AccountID = space.AccountID
	_, err = r.store.UpsertPropertyManager(ctx, manager)
	return err
}

func requireTenantSpace(ctx context.Context) (tenant.Space, error) {
	space, ok := tenant.FromContext(ctx)
	if !ok {
		return tenant.Space{}, errors.New("tenant space missing from context")
	}
	return space, nil
}
