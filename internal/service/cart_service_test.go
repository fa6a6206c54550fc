package service

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/echosavvy/api/internal/models"
	"github.com/echosavvy/api/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var cartServiceTestSeq int64

func setupCartServiceTest(t *testing.T) (*CartService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:cart_service_%d?mode=memory&cache=shared", atomic.AddInt64(&cartServiceTestSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.CartLine{}); err != nil {
		t.Fatalf("migrate cart_lines failed: %v", err)
	}
	return NewCartService(db, repository.NewCartRepository(db)), db
}

func moneyFromString(t *testing.T, value string) models.Money {
	t.Helper()
	amount, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("bad money literal %q: %v", value, err)
	}
	return models.NewMoneyFromDecimal(amount)
}

func addTestItem(t *testing.T, svc *CartService, userID, productID uint, price string, quantity int) *models.CartLine {
	t.Helper()
	line, err := svc.AddItem(AddCartItemInput{
		UserID:      userID,
		ProductID:   productID,
		ProductName: "助听器",
		Price:       moneyFromString(t, price),
		Quantity:    quantity,
		ImageURL:    "https://cdn.example.com/p.jpg",
	})
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	return line
}

func TestAddItemValidation(t *testing.T) {
	svc, _ := setupCartServiceTest(t)

	cases := []AddCartItemInput{
		{UserID: 0, ProductID: 1, ProductName: "a", Price: moneyFromString(t, "10"), Quantity: 1, ImageURL: "x"},
		{UserID: 1, ProductID: 0, ProductName: "a", Price: moneyFromString(t, "10"), Quantity: 1, ImageURL: "x"},
		{UserID: 1, ProductID: 1, ProductName: "  ", Price: moneyFromString(t, "10"), Quantity: 1, ImageURL: "x"},
		{UserID: 1, ProductID: 1, ProductName: "a", Price: moneyFromString(t, "10"), Quantity: 0, ImageURL: "x"},
		{UserID: 1, ProductID: 1, ProductName: "a", Price: moneyFromString(t, "10"), Quantity: -2, ImageURL: "x"},
		{UserID: 1, ProductID: 1, ProductName: "a", Price: moneyFromString(t, "0"), Quantity: 1, ImageURL: "x"},
		{UserID: 1, ProductID: 1, ProductName: "a", Price: moneyFromString(t, "-5"), Quantity: 1, ImageURL: "x"},
		{UserID: 1, ProductID: 1, ProductName: "a", Price: moneyFromString(t, "10"), Quantity: 1, ImageURL: ""},
	}
	for i, input := range cases {
		if _, err := svc.AddItem(input); !errors.Is(err, ErrInvalidCartItem) {
			t.Fatalf("case %d: want ErrInvalidCartItem got %v", i, err)
		}
	}

	lines, err := svc.ListByUser(1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("invalid input should not touch storage, got %d lines", len(lines))
	}
}

func TestAddItemAccumulatesQuantityAndTotal(t *testing.T) {
	svc, _ := setupCartServiceTest(t)

	first := addTestItem(t, svc, 1, 10, "699.99", 1)
	if first.Quantity != 1 || first.TotalAmount.String() != "699.99" {
		t.Fatalf("first add unexpected: qty=%d total=%s", first.Quantity, first.TotalAmount.String())
	}

	second := addTestItem(t, svc, 1, 10, "699.99", 1)
	if second.Quantity != 2 {
		t.Fatalf("quantity want 2 got %d", second.Quantity)
	}
	if second.TotalAmount.String() != "1399.98" {
		t.Fatalf("total want 1399.98 got %s", second.TotalAmount.String())
	}

	lines, err := svc.ListByUser(1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("cart want 1 line got %d", len(lines))
	}
}

func TestAddItemConcurrentFirstAddsSingleRow(t *testing.T) {
	svc, db := setupCartServiceTest(t)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(AddCartItemInput{
				UserID:      7,
				ProductID:   22,
				ProductName: "助听器",
				Price:       moneyFromString(t, "100.00"),
				Quantity:    1,
				ImageURL:    "https://cdn.example.com/p.jpg",
			})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent add failed: %v", err)
		}
	}

	var count int64
	if err := db.Model(&models.CartLine{}).Where("user_id = ? AND product_id = ?", 7, 22).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("concurrent first adds must converge to one row, got %d", count)
	}

	lines, err := svc.ListByUser(7)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("cart want 1 line got %d", len(lines))
	}
	if lines[0].Quantity != 2 {
		t.Fatalf("final quantity want sum of both adds, got %d", lines[0].Quantity)
	}
	if lines[0].TotalAmount.String() != "200.00" {
		t.Fatalf("total want 200.00 got %s", lines[0].TotalAmount.String())
	}
}

func TestSetQuantityRecomputesAndRemovesAtZero(t *testing.T) {
	svc, _ := setupCartServiceTest(t)
	addTestItem(t, svc, 1, 20, "100.00", 2)

	line, err := svc.SetQuantity(1, 20, 5)
	if err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if line.Quantity != 5 || line.TotalAmount.String() != "500.00" {
		t.Fatalf("unexpected line after update: qty=%d total=%s", line.Quantity, line.TotalAmount.String())
	}

	// 数量归零等价于删除
	line, err = svc.SetQuantity(1, 20, 0)
	if err != nil {
		t.Fatalf("set quantity to 0 failed: %v", err)
	}
	if line != nil {
		t.Fatalf("want nil line after zero quantity got %+v", line)
	}
	lines, err := svc.ListByUser(1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("cart want empty got %d lines", len(lines))
	}
}

func TestSetQuantityMissingLine(t *testing.T) {
	svc, _ := setupCartServiceTest(t)

	if _, err := svc.SetQuantity(1, 999, 2); !errors.Is(err, ErrCartLineNotFound) {
		t.Fatalf("want ErrCartLineNotFound got %v", err)
	}
}

func TestRemoveAndClearIdempotent(t *testing.T) {
	svc, _ := setupCartServiceTest(t)
	addTestItem(t, svc, 1, 30, "10.00", 1)

	if err := svc.RemoveItem(1, 30); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := svc.RemoveItem(1, 30); err != nil {
		t.Fatalf("repeated remove failed: %v", err)
	}
	if err := svc.Clear(1); err != nil {
		t.Fatalf("clear empty cart failed: %v", err)
	}
}

func TestMergeGuestCartServerPriceWins(t *testing.T) {
	svc, _ := setupCartServiceTest(t)
	addTestItem(t, svc, 1, 40, "100.00", 3)

	result, err := svc.MergeGuestCart(1, []GuestCartItem{
		{
			ProductID:   40,
			ProductName: "助听器",
			Price:       moneyFromString(t, "90.00"),
			Quantity:    2,
			ImageURL:    "https://cdn.example.com/p.jpg",
		},
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("unexpected failures: %+v", result.Failed)
	}
	if len(result.Merged) != 1 {
		t.Fatalf("merged want 1 line got %d", len(result.Merged))
	}
	merged := result.Merged[0]
	if merged.Quantity != 5 {
		t.Fatalf("quantity want 5 got %d", merged.Quantity)
	}
	if merged.Price.String() != "100.00" {
		t.Fatalf("price want 100.00 got %s", merged.Price.String())
	}
	if merged.TotalAmount.String() != "500.00" {
		t.Fatalf("total want 500.00 got %s", merged.TotalAmount.String())
	}
}

func TestMergeGuestCartNewLines(t *testing.T) {
	svc, _ := setupCartServiceTest(t)

	result, err := svc.MergeGuestCart(1, []GuestCartItem{
		{ProductID: 50, ProductName: "耳机", Price: moneyFromString(t, "699.99"), Quantity: 2, ImageURL: "a.jpg"},
		{ProductID: 51, ProductName: "充电盒", Price: moneyFromString(t, "59.90"), Quantity: 1, ImageURL: "b.jpg"},
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(result.Merged) != 2 || len(result.Failed) != 0 {
		t.Fatalf("unexpected result: merged=%d failed=%d", len(result.Merged), len(result.Failed))
	}

	lines, err := svc.ListByUser(1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("cart want 2 lines got %d", len(lines))
	}
}

func TestMergeGuestCartDuplicateProductAccumulatesOnce(t *testing.T) {
	svc, _ := setupCartServiceTest(t)

	result, err := svc.MergeGuestCart(1, []GuestCartItem{
		{ProductID: 70, ProductName: "耳机", Price: moneyFromString(t, "100.00"), Quantity: 2, ImageURL: "a.jpg"},
		{ProductID: 70, ProductName: "耳机", Price: moneyFromString(t, "100.00"), Quantity: 3, ImageURL: "a.jpg"},
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("unexpected failures: %+v", result.Failed)
	}
	// 重复条目累加到同一行，结果中该行只出现一次
	if len(result.Merged) != 1 {
		t.Fatalf("merged want 1 line got %d", len(result.Merged))
	}
	merged := result.Merged[0]
	if merged.Quantity != 5 {
		t.Fatalf("quantity want 5 got %d", merged.Quantity)
	}
	if merged.TotalAmount.String() != "500.00" {
		t.Fatalf("total want 500.00 got %s", merged.TotalAmount.String())
	}
}

func TestMergeGuestCartInvalidItemsDoNotTouchStorage(t *testing.T) {
	svc, _ := setupCartServiceTest(t)

	result, err := svc.MergeGuestCart(1, []GuestCartItem{
		{ProductID: 0, ProductName: "耳机", Price: moneyFromString(t, "10"), Quantity: 1, ImageURL: "a.jpg"},
		{ProductID: 60, ProductName: "", Price: moneyFromString(t, "10"), Quantity: 1, ImageURL: "a.jpg"},
		{ProductID: 61, ProductName: "耳机", Price: moneyFromString(t, "10"), Quantity: 0, ImageURL: "a.jpg"},
		{ProductID: 62, ProductName: "耳机", Price: moneyFromString(t, "-1"), Quantity: 1, ImageURL: "a.jpg"},
		{ProductID: 63, ProductName: "耳机", Price: moneyFromString(t, "10"), Quantity: 2, ImageURL: "a.jpg"},
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(result.Failed) != 4 {
		t.Fatalf("failed want 4 got %d: %+v", len(result.Failed), result.Failed)
	}
	if len(result.Merged) != 1 {
		t.Fatalf("merged want 1 got %d", len(result.Merged))
	}

	wantReasons := map[uint]string{
		0:  "invalid_product_id",
		60: "missing_product_name",
		61: "invalid_quantity",
		62: "invalid_price",
	}
	for _, failure := range result.Failed {
		if want := wantReasons[failure.ProductID]; want != failure.Reason {
			t.Fatalf("product %d reason want %q got %q", failure.ProductID, want, failure.Reason)
		}
	}

	lines, err := svc.ListByUser(1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("only the valid item should persist, got %d lines", len(lines))
	}
	if lines[0].ProductID != 63 {
		t.Fatalf("persisted product want 63 got %d", lines[0].ProductID)
	}
}

func TestMergeGuestCartEmptyInput(t *testing.T) {
	svc, _ := setupCartServiceTest(t)

	if _, err := svc.MergeGuestCart(1, nil); !errors.Is(err, ErrEmptyGuestCart) {
		t.Fatalf("want ErrEmptyGuestCart got %v", err)
	}
	if _, err := svc.MergeGuestCart(1, []GuestCartItem{}); !errors.Is(err, ErrEmptyGuestCart) {
		t.Fatalf("want ErrEmptyGuestCart got %v", err)
	}
}
