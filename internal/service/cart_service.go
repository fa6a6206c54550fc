package service

import (
	"strings"
	"time"

	"github.com/echosavvy/api/internal/models"
	"github.com/echosavvy/api/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AddCartItemInput 加购输入
type AddCartItemInput struct {
	UserID      uint
	ProductID   uint
	ProductName string
	Price       models.Money
	Quantity    int
	ImageURL    string
}

// GuestCartItem 游客购物车条目（客户端本地快照，登录时一次性并入）
type GuestCartItem struct {
	ProductID   uint         `json:"product_id"`
	ProductName string       `json:"product_name"`
	Price       models.Money `json:"price"`
	Quantity    int          `json:"quantity"`
	ImageURL    string       `json:"image_url"`
}

// MergeFailure 并入失败的条目及原因
type MergeFailure struct {
	ProductID uint   `json:"product_id"`
	Reason    string `json:"reason"`
}

// MergeResult 游客购物车并入结果
type MergeResult struct {
	Merged []models.CartLine `json:"merged"`
	Failed []MergeFailure    `json:"failed"`
}

// 并入失败原因枚举
const (
	mergeReasonInvalidProduct  = "invalid_product_id"
	mergeReasonInvalidQuantity = "invalid_quantity"
	mergeReasonInvalidPrice    = "invalid_price"
	mergeReasonMissingName     = "missing_product_name"
)

// CartService 购物车服务
// 同 key 的并发写由仓库层单条 SQL 与唯一索引串行化，服务层不做读改写。
type CartService struct {
	db       *gorm.DB
	cartRepo repository.CartRepository
}

// NewCartService 创建购物车服务
func NewCartService(db *gorm.DB, cartRepo repository.CartRepository) *CartService {
	return &CartService{db: db, cartRepo: cartRepo}
}

// AddItem 添加或按数量累加购物车行，返回落库后的行
// 已存在的行只累加数量并基于已存单价重算小计，单价快照不被覆盖。
func (s *CartService) AddItem(input AddCartItemInput) (*models.CartLine, error) {
	if err := validateAddInput(input); err != nil {
		return nil, err
	}

	now := time.Now()
	line := &models.CartLine{
		UserID:      input.UserID,
		ProductID:   input.ProductID,
		ProductName: strings.TrimSpace(input.ProductName),
		Price:       input.Price,
		Quantity:    input.Quantity,
		ImageURL:    strings.TrimSpace(input.ImageURL),
		TotalAmount: lineTotal(input.Price, input.Quantity),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.cartRepo.AddOrIncrement(line); err != nil {
		return nil, err
	}
	return s.cartRepo.GetByUserAndProduct(input.UserID, input.ProductID)
}

// ListByUser 获取用户购物车
func (s *CartService) ListByUser(userID uint) ([]models.CartLine, error) {
	if userID == 0 {
		return nil, ErrInvalidCartItem
	}
	return s.cartRepo.ListByUser(userID)
}

// SetQuantity 设置购物车行数量
// quantity < 1 等价于删除该行，返回 (nil, nil)；
// 小计始终由已存单价重算，调用方无法通过该路径篡改价格。
func (s *CartService) SetQuantity(userID, productID uint, quantity int) (*models.CartLine, error) {
	if userID == 0 || productID == 0 {
		return nil, ErrInvalidCartItem
	}
	if quantity < 1 {
		return nil, s.RemoveItem(userID, productID)
	}
	affected, err := s.cartRepo.SetQuantity(userID, productID, quantity)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrCartLineNotFound
	}
	return s.cartRepo.GetByUserAndProduct(userID, productID)
}

// RemoveItem 删除购物车行，行不存在时视为成功
func (s *CartService) RemoveItem(userID, productID uint) error {
	if userID == 0 || productID == 0 {
		return ErrInvalidCartItem
	}
	return s.cartRepo.DeleteByUserAndProduct(userID, productID)
}

// Clear 清空用户购物车（幂等）
func (s *CartService) Clear(userID uint) error {
	if userID == 0 {
		return ErrInvalidCartItem
	}
	return s.cartRepo.ClearByUser(userID)
}

// MergeGuestCart 将游客本地购物车一次性并入用户购物车
// 非法条目不触达存储，记入 Failed；合法条目在同一事务内逐条 upsert，
// 已存在的行按数量累加且沿用服务端已存单价（过期的客户端价格快照不生效）。
// 空列表返回 ErrEmptyGuestCart，调用方应将空购物车视为无操作而不调用本方法。
func (s *CartService) MergeGuestCart(userID uint, items []GuestCartItem) (*MergeResult, error) {
	if userID == 0 {
		return nil, ErrInvalidCartItem
	}
	if len(items) == 0 {
		return nil, ErrEmptyGuestCart
	}

	result := &MergeResult{
		Merged: make([]models.CartLine, 0, len(items)),
		Failed: make([]MergeFailure, 0),
	}
	valid := make([]GuestCartItem, 0, len(items))
	for _, item := range items {
		if reason := validateGuestItem(item); reason != "" {
			result.Failed = append(result.Failed, MergeFailure{ProductID: item.ProductID, Reason: reason})
			continue
		}
		valid = append(valid, item)
	}
	if len(valid) == 0 {
		return result, nil
	}

	now := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txRepo := s.cartRepo.WithTx(tx)
		for _, item := range valid {
			line := &models.CartLine{
				UserID:      userID,
				ProductID:   item.ProductID,
				ProductName: strings.TrimSpace(item.ProductName),
				Price:       item.Price,
				Quantity:    item.Quantity,
				ImageURL:    strings.TrimSpace(item.ImageURL),
				TotalAmount: lineTotal(item.Price, item.Quantity),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := txRepo.AddOrIncrement(line); err != nil {
				return err
			}
		}
		// 同一 product_id 出现多次时数量已累加到同一行，回读只取一次
		seen := make(map[uint]bool, len(valid))
		for _, item := range valid {
			if seen[item.ProductID] {
				continue
			}
			seen[item.ProductID] = true
			merged, err := txRepo.GetByUserAndProduct(userID, item.ProductID)
			if err != nil {
				return err
			}
			if merged != nil {
				result.Merged = append(result.Merged, *merged)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateAddInput(input AddCartItemInput) error {
	if input.UserID == 0 || input.ProductID == 0 {
		return ErrInvalidCartItem
	}
	if strings.TrimSpace(input.ProductName) == "" || strings.TrimSpace(input.ImageURL) == "" {
		return ErrInvalidCartItem
	}
	if input.Quantity < 1 {
		return ErrInvalidCartItem
	}
	if !input.Price.Decimal.IsPositive() {
		return ErrInvalidCartItem
	}
	return nil
}

func validateGuestItem(item GuestCartItem) string {
	if item.ProductID == 0 {
		return mergeReasonInvalidProduct
	}
	if strings.TrimSpace(item.ProductName) == "" {
		return mergeReasonMissingName
	}
	if item.Quantity < 1 {
		return mergeReasonInvalidQuantity
	}
	if !item.Price.Decimal.IsPositive() {
		return mergeReasonInvalidPrice
	}
	return ""
}

func lineTotal(price models.Money, quantity int) models.Money {
	return models.NewMoneyFromDecimal(price.Decimal.Mul(decimal.NewFromInt(int64(quantity))))
}
