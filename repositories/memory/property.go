package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/repositories"
)

// PropertyRepository implements repositories.PropertyRepository
type PropertyRepository struct {
	store *Store
}

// ownerExists reports whether the owning row is present
func (d *state) ownerExists(owner models.PropertyOwner, orgID, ownerID string) (bool, error) {
	switch owner {
	case models.OwnerOrganization:
		_, ok := d.orgs[orgID]
		return ok && orgID == ownerID, nil
	case models.OwnerUser:
		_, ok := d.users[entityKey{orgID, ownerID}]
		return ok, nil
	case models.OwnerRole:
		_, ok := d.roles[entityKey{orgID, ownerID}]
		return ok, nil
	}
	return false, fmt.Errorf("unknown property owner %q", owner)
}

func (r *PropertyRepository) Set(ctx context.Context, owner models.PropertyOwner, orgID, ownerID string, prop *models.Property) error {
	defer r.store.acquire(ctx)()
	d := r.store.data

	ok, err := d.ownerExists(owner, orgID, ownerID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("failed to set %s property %s: %w", owner, prop.Name, repositories.ErrReferential)
	}

	key := propertyKey{owner, orgID, ownerID, prop.Name}
	stored := *prop
	if existing, found := d.properties[key]; found {
		stored.CreatedAt = existing.CreatedAt
	}
	d.properties[key] = stored
	return nil
}

func (r *PropertyRepository) Get(ctx context.Context, owner models.PropertyOwner, orgID, ownerID, name string) (*models.Property, error) {
	defer r.store.acquire(ctx)()

	if !owner.Valid() {
		return nil, fmt.Errorf("unknown property owner %q", owner)
	}
	prop, ok := r.store.data.properties[propertyKey{owner, orgID, ownerID, name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s property %s of %s", repositories.ErrNotFound, owner, name, ownerID)
	}
	return &prop, nil
}

func (r *PropertyRepository) List(ctx context.Context, owner models.PropertyOwner, orgID, ownerID string, includeHidden bool) ([]models.Property, error) {
	defer r.store.acquire(ctx)()

	if !owner.Valid() {
		return nil, fmt.Errorf("unknown property owner %q", owner)
	}
	props := []models.Property{}
	for k, p := range r.store.data.properties {
		if k.owner != owner || k.orgID != orgID || k.ownerID != ownerID {
			continue
		}
		if p.Hidden && !includeHidden {
			continue
		}
		props = append(props, p)
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
	return props, nil
}

func (r *PropertyRepository) Delete(ctx context.Context, owner models.PropertyOwner, orgID, ownerID, name string) (bool, error) {
	defer r.store.acquire(ctx)()

	if !owner.Valid() {
		return false, fmt.Errorf("unknown property owner %q", owner)
	}
	key := propertyKey{owner, orgID, ownerID, name}
	if _, ok := r.store.data.properties[key]; !ok {
		return false, nil
	}
	delete(r.store.data.properties, key)
	return true, nil
}

func (r *PropertyRepository) DeleteByOwner(ctx context.Context, owner models.PropertyOwner, orgID, ownerID string) (int64, error) {
	defer r.store.acquire(ctx)()

	if !owner.Valid() {
		return 0, fmt.Errorf("unknown property owner %q", owner)
	}
	return r.store.data.deleteProperties(func(k propertyKey) bool {
		return k.owner == owner && k.orgID == orgID && k.ownerID == ownerID
	}), nil
}

func (r *PropertyRepository) DeleteByOrg(ctx context.Context, orgID string) (int64, error) {
	defer r.store.acquire(ctx)()

	return r.store.data.deleteProperties(func(k propertyKey) bool { return k.orgID == orgID }), nil
}
