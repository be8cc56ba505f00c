package rewards

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/database/dbtest"
)

func TestRepositoryRedeemLastItemOnce(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	account := dbtest.Account(t, pool, "alice@example.com", 100)
	repo := NewRepository(pool)
	product := &models.Product{Name: "Bamboo Straw Set", LeafCost: 10, Stock: 1}
	if err := repo.CreateProduct(ctx, product); err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}

	const buyers = 4
	errs := make([]error, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Redeem(ctx, &models.CollectInformation{
				AccountID:    account,
				ProductID:    product.ID,
				Quantity:     1,
				CollectionID: fmt.Sprintf("ECO-TEST%04d", i),
				Location:     DefaultLocation,
			})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, ErrOutOfStock):
			t.Errorf("Redeem() unexpected error = %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("redemptions = %d; want 1", ok)
	}
	if got := dbtest.LeafPoints(t, pool, account); got != 90 {
		t.Errorf("leaf points = %d; want 90", got)
	}
	p, err := repo.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Stock != 0 {
		t.Errorf("stock = %d; want 0", p.Stock)
	}
}

func TestRepositoryRedeemInsufficientPointsRollsBack(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	account := dbtest.Account(t, pool, "bob@example.com", 50)
	repo := NewRepository(pool)
	product := &models.Product{Name: "Tote Bag", LeafCost: 40, Stock: 5}
	if err := repo.CreateProduct(ctx, product); err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}

	_, err := repo.Redeem(ctx, &models.CollectInformation{
		AccountID: account, ProductID: product.ID, Quantity: 2, CollectionID: "ECO-POOR0001", Location: DefaultLocation,
	})
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("Redeem() error = %v; want ErrInsufficientPoints", err)
	}
	p, err := repo.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Stock != 5 {
		t.Errorf("stock = %d; want 5 after rollback", p.Stock)
	}
	if got := dbtest.LeafPoints(t, pool, account); got != 50 {
		t.Errorf("leaf points = %d; want 50", got)
	}
	if _, err := repo.Redeem(ctx, &models.CollectInformation{
		AccountID: account, ProductID: uuid.New(), Quantity: 1, CollectionID: "ECO-NONE0001",
	}); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Redeem(unknown product) error = %v; want ErrProductNotFound", err)
	}
}

func TestRepositoryEmptyListsEncodeAsArrays(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(pool)

	products, err := repo.ListProducts(ctx)
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if products == nil {
		t.Error("ListProducts() = nil; want an empty slice")
	}
	collections, err := repo.ListCollections(ctx, "")
	if err != nil {
		t.Fatalf("ListCollections() error = %v", err)
	}
	if collections == nil {
		t.Error("ListCollections() = nil; want an empty slice")
	}
}
