package address

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/docstore"
	"github.com/angelmondragon/storefront-backend/pkg/docstore/docstoretest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func newTestService(t *testing.T) *service {
	t.Helper()
	store := docstoretest.New(t)
	svc, err := NewService(NewRepository(store), store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	s := svc.(*service)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func postal(line1 string) types.Address {
	return types.Address{Line1: line1, City: "Austin", State: "TX", PostalCode: "78701"}
}

func defaults(list []Address) []string {
	var ids []string
	for _, a := range list {
		if a.IsDefault {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestFirstAddressBecomesDefault(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	first, err := svc.Create(ctx, "u1", Input{Postal: postal("1 Main St")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !first.IsDefault || first.Type != enums.AddressTypeHome || first.Country != "US" {
		t.Fatalf("unexpected first address %+v", first)
	}

	second, err := svc.Create(ctx, "u1", Input{Type: enums.AddressTypeOffice, Postal: postal("2 Main St")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.IsDefault {
		t.Fatal("second address must not become default implicitly")
	}
}

func TestSetDefaultKeepsSingleDefault(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a, _ := svc.Create(ctx, "u1", Input{Postal: postal("1 Main St")})
	b, _ := svc.Create(ctx, "u1", Input{Postal: postal("2 Main St")})
	c, _ := svc.Create(ctx, "u1", Input{Postal: postal("3 Main St"), IsDefault: true})

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := defaults(list); len(got) != 1 || got[0] != c.ID || list[0].ID != c.ID {
		t.Fatalf("expected %s as the only default listed first, got %v", c.ID, got)
	}

	updated, err := svc.SetDefault(ctx, "u1", b.ID)
	if err != nil {
		t.Fatalf("set default: %v", err)
	}
	if !updated.IsDefault {
		t.Fatal("expected returned address to be default")
	}
	list, _ = svc.List(ctx, "u1")
	if got := defaults(list); len(got) != 1 || got[0] != b.ID {
		t.Fatalf("expected %s as the only default, got %v", b.ID, got)
	}

	if _, err := svc.SetDefault(ctx, "u1", b.ID); err != nil {
		t.Fatalf("setting the current default again should succeed: %v", err)
	}
	if _, err := svc.SetDefault(ctx, "u1", "missing"); !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.SetDefault(ctx, "u2", a.ID); !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("addresses must be scoped per user, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a, _ := svc.Create(ctx, "u1", Input{Postal: postal("1 Main St")})
	b, _ := svc.Create(ctx, "u1", Input{Postal: postal("2 Main St")})

	updated, err := svc.Update(ctx, "u1", b.ID, Input{Type: enums.AddressTypeOther, Postal: postal("22 Side St"), IsDefault: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Line1 != "22 Side St" || !updated.IsDefault || !updated.CreatedAt.Equal(b.CreatedAt) {
		t.Fatalf("unexpected update %+v", updated)
	}
	got, _ := svc.Get(ctx, "u1", a.ID)
	if got.IsDefault {
		t.Fatal("previous default should be cleared")
	}

	if _, err := svc.Update(ctx, "u1", "missing", Input{Postal: postal("x")}); !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Update(ctx, "u1", a.ID, Input{Postal: types.Address{Line1: "x"}}); !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeletePromotesOldestRemaining(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a, _ := svc.Create(ctx, "u1", Input{Postal: postal("1 Main St")})
	b, _ := svc.Create(ctx, "u1", Input{Postal: postal("2 Main St")})
	_, _ = svc.Create(ctx, "u1", Input{Postal: postal("3 Main St")})

	if err := svc.Delete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ := svc.List(ctx, "u1")
	if len(list) != 2 {
		t.Fatalf("expected 2 addresses, got %d", len(list))
	}
	if got := defaults(list); len(got) != 1 || got[0] != b.ID {
		t.Fatalf("expected %s promoted to default, got %v", b.ID, got)
	}
	if err := svc.Delete(ctx, "u1", a.ID); !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	if _, err := svc.Create(ctx, "", Input{Postal: postal("1 Main St")}); !errors.Is(err, errors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.Create(ctx, "u1", Input{Type: "warehouse", Postal: postal("1 Main St")}); !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("expected validation error for type, got %v", err)
	}
	if _, err := svc.Create(ctx, "u1", Input{Postal: types.Address{Line1: "1 Main St"}}); !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("expected validation error for postal fields, got %v", err)
	}
}

// recordingTx wraps a real transaction and logs the paths it touches.
type recordingTx struct {
	docstore.Tx
	mu  *sync.Mutex
	log *[]string
}

func (r recordingTx) record(op string) {
	r.mu.Lock()
	*r.log = append(*r.log, op)
	r.mu.Unlock()
}

func (r recordingTx) List(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	r.record("list " + collection)
	return r.Tx.List(ctx, collection, q)
}

func (r recordingTx) Set(ctx context.Context, path string, data any, opts ...docstore.SetOption) error {
	r.record("set " + path)
	return r.Tx.Set(ctx, path, data, opts...)
}

type recordingRunner struct {
	store docstore.Store
	mu    sync.Mutex
	log   []string
}

func (r *recordingRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return r.store.RunInTx(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return fn(ctx, recordingTx{Tx: tx, mu: &r.mu, log: &r.log})
	})
}

func TestAddressWritesTakeUserLockFirst(t *testing.T) {
	ctx := context.Background()
	store := docstoretest.New(t)
	runner := &recordingRunner{store: store}
	svc, err := NewService(NewRepository(store), runner)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	a, err := svc.Create(ctx, "u1", Input{Postal: postal("1 Main St")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, _ := svc.Create(ctx, "u1", Input{Postal: postal("2 Main St")})

	runner.mu.Lock()
	runner.log = nil
	runner.mu.Unlock()
	if _, err := svc.SetDefault(ctx, "u1", b.ID); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if err := svc.Delete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	lock := "set " + LockPath("u1")
	var sawLock bool
	for _, op := range runner.log {
		if op == lock {
			sawLock = true
			continue
		}
		if strings.HasPrefix(op, "list ") && !sawLock {
			t.Fatalf("listed addresses before taking the lock: %v", runner.log)
		}
	}
	if !sawLock || runner.log[0] != lock {
		t.Fatalf("expected the lock write first, got %v", runner.log)
	}
	if _, err := store.Get(ctx, LockPath("u1")); err != nil {
		t.Fatalf("lock document missing: %v", err)
	}
}

func TestConcurrentSetDefaultLeavesOneDefault(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	var clockMu sync.Mutex
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	var ids []string
	for i := 0; i < 4; i++ {
		a, err := svc.Create(ctx, "u1", Input{Postal: postal(fmt.Sprintf("%d Main St", i+1))})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, a.ID)
	}

	var wg sync.WaitGroup
	for round := 0; round < 5; round++ {
		for _, id := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.SetDefault(ctx, "u1", id); err != nil {
					t.Errorf("set default %s: %v", id, err)
				}
			}()
		}
	}
	wg.Wait()

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := defaults(list); len(got) != 1 {
		t.Fatalf("expected exactly one default, got %v", got)
	}
}
