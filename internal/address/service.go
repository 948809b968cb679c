package address

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/docstore"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
)

type Service interface {
	List(ctx context.Context, userID string) ([]Address, error)
	Get(ctx context.Context, userID, id string) (*Address, error)
	Create(ctx context.Context, userID string, input Input) (*Address, error)
	Update(ctx context.Context, userID, id string, input Input) (*Address, error)
	Delete(ctx context.Context, userID, id string) error
	SetDefault(ctx context.Context, userID, id string) (*Address, error)
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
	now  func() time.Time
}

func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, now: func() time.Time { return time.Now().UTC() }}, nil
}

// List returns the default address first, then the rest by creation time.
func (s *service) List(ctx context.Context, userID string) ([]Address, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New(errors.CodeUnauthorized, "user id required")
	}
	list, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "list addresses")
	}
	sortAddresses(list)
	return list, nil
}

func sortAddresses(list []Address) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].IsDefault != list[j].IsDefault {
			return list[i].IsDefault
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}

func (s *service) Get(ctx context.Context, userID, id string) (*Address, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New(errors.CodeValidation, "address id is required")
	}
	a, err := s.repo.Find(ctx, userID, id)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "load address")
	}
	if a == nil {
		return nil, errors.New(errors.CodeNotFound, "address not found")
	}
	return a, nil
}

func validateInput(input Input) (Input, error) {
	if input.Type == "" {
		input.Type = enums.AddressTypeHome
	}
	if !input.Type.IsValid() {
		return input, errors.New(errors.CodeValidation, "invalid address type").
			WithDetails(map[string]any{"type": input.Type})
	}
	input.Postal = input.Postal.Normalize()
	if err := input.Postal.Validate(); err != nil {
		return input, errors.Wrap(errors.CodeValidation, err, err.Error())
	}
	return input, nil
}

// Create stores a new address. The first address a user saves becomes the default.
func (s *service) Create(ctx context.Context, userID string, input Input) (*Address, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New(errors.CodeUnauthorized, "user id required")
	}
	input, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	now := s.now()
	created := Address{
		ID:        uuid.NewString(),
		Type:      input.Type,
		IsDefault: input.IsDefault,
		Address:   input.Postal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.inUserTx(ctx, userID, func(ctx context.Context, repo *Repository) error {
		existing, err := repo.List(ctx, userID)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "list addresses")
		}
		if len(existing) == 0 {
			created.IsDefault = true
		}
		if created.IsDefault {
			if err := s.clearDefaults(ctx, repo, userID, existing, created.ID); err != nil {
				return err
			}
		}
		if err := repo.Save(ctx, userID, created); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "save address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *service) Update(ctx context.Context, userID, id string, input Input) (*Address, error) {
	input, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	var updated Address
	err = s.inUserTx(ctx, userID, func(ctx context.Context, repo *Repository) error {
		current, err := repo.Find(ctx, userID, id)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "load address")
		}
		if current == nil {
			return errors.New(errors.CodeNotFound, "address not found")
		}
		updated = *current
		updated.Type = input.Type
		updated.Address = input.Postal
		updated.UpdatedAt = s.now()
		if input.IsDefault && !current.IsDefault {
			existing, err := repo.List(ctx, userID)
			if err != nil {
				return errors.Wrap(errors.CodeDependency, err, "list addresses")
			}
			if err := s.clearDefaults(ctx, repo, userID, existing, id); err != nil {
				return err
			}
			updated.IsDefault = true
		}
		if err := repo.Save(ctx, userID, updated); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "save address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an address. Deleting the default promotes the oldest remaining address.
func (s *service) Delete(ctx context.Context, userID, id string) error {
	return s.inUserTx(ctx, userID, func(ctx context.Context, repo *Repository) error {
		current, err := repo.Find(ctx, userID, id)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "load address")
		}
		if current == nil {
			return errors.New(errors.CodeNotFound, "address not found")
		}
		if err := repo.Delete(ctx, userID, id); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "delete address")
		}
		if !current.IsDefault {
			return nil
		}
		remaining, err := repo.List(ctx, userID)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "list addresses")
		}
		if len(remaining) == 0 {
			return nil
		}
		sortAddresses(remaining)
		if err := repo.SetDefaultFlag(ctx, userID, remaining[0].ID, defaultFlag{IsDefault: true, UpdatedAt: s.now()}); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "promote default address")
		}
		return nil
	})
}

// SetDefault marks id as the default and clears the flag on every other
// address in the same transaction.
func (s *service) SetDefault(ctx context.Context, userID, id string) (*Address, error) {
	var result Address
	err := s.inUserTx(ctx, userID, func(ctx context.Context, repo *Repository) error {
		target, err := repo.Find(ctx, userID, id)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "load address")
		}
		if target == nil {
			return errors.New(errors.CodeNotFound, "address not found")
		}
		existing, err := repo.List(ctx, userID)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "list addresses")
		}
		if err := s.clearDefaults(ctx, repo, userID, existing, id); err != nil {
			return err
		}
		now := s.now()
		if !target.IsDefault {
			if err := repo.SetDefaultFlag(ctx, userID, id, defaultFlag{IsDefault: true, UpdatedAt: now}); err != nil {
				return errors.Wrap(errors.CodeDependency, err, "set default address")
			}
			target.IsDefault = true
			target.UpdatedAt = now
		}
		result = *target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// inUserTx runs fn in a transaction holding the user's address lock. Two
// first-time lockers can race on creating the lock document; the loser runs
// once more against the committed lock.
func (s *service) inUserTx(ctx context.Context, userID string, fn func(ctx context.Context, repo *Repository) error) error {
	run := func() error {
		return s.tx.RunInTx(ctx, func(ctx context.Context, tx docstore.Tx) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Lock(ctx, userID, s.now()); err != nil {
				return errors.Wrap(errors.CodeDependency, err, "lock addresses")
			}
			return fn(ctx, repo)
		})
	}
	err := run()
	if stderrors.Is(err, docstore.ErrConflict) {
		err = run()
	}
	return err
}

func (s *service) clearDefaults(ctx context.Context, repo *Repository, userID string, existing []Address, keepID string) error {
	now := s.now()
	for _, a := range existing {
		if a.ID == keepID || !a.IsDefault {
			continue
		}
		if err := repo.SetDefaultFlag(ctx, userID, a.ID, defaultFlag{IsDefault: false, UpdatedAt: now}); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "clear default address")
		}
	}
	return nil
}
