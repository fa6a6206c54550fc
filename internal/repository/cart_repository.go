package repository

import (
	"errors"
	"time"

	"github.com/echosavvy/api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	ListByUser(userID uint) ([]models.CartLine, error)
	GetByUserAndProduct(userID, productID uint) (*models.CartLine, error)
	AddOrIncrement(line *models.CartLine) error
	SetQuantity(userID, productID uint, quantity int) (int64, error)
	DeleteByUserAndProduct(userID, productID uint) error
	ClearByUser(userID uint) error
	WithTx(tx *gorm.DB) *GormCartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) *GormCartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// ListByUser 获取用户购物车行
func (r *GormCartRepository) ListByUser(userID uint) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := r.db.Where("user_id = ?", userID).Order("updated_at desc").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// GetByUserAndProduct 获取单个购物车行，不存在时返回 nil
func (r *GormCartRepository) GetByUserAndProduct(userID, productID uint) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.Where("user_id = ? AND product_id = ?", userID, productID).First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// AddOrIncrement 添加或按数量累加购物车行
// 单条带冲突处理的 INSERT：同 key 并发加购由数据库串行化，
// 数量与小计均在数据库端基于已存行计算，单价保留已存快照。
// total_amount 赋值在 quantity 之前，MySQL 按从左到右求值时
// 仍使用旧的 quantity 列值，与 SQLite/Postgres 行为一致。
func (r *GormCartRepository) AddOrIncrement(line *models.CartLine) error {
	if line == nil {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "total_amount"}, Value: gorm.Expr("price * (quantity + ?)", line.Quantity)},
			{Column: clause.Column{Name: "quantity"}, Value: gorm.Expr("quantity + ?", line.Quantity)},
			{Column: clause.Column{Name: "updated_at"}, Value: time.Now()},
		},
	}).Create(line).Error
}

// SetQuantity 设置购物车行数量，小计由已存单价在数据库端重算
// 返回受影响行数，0 表示该行不存在。
func (r *GormCartRepository) SetQuantity(userID, productID uint, quantity int) (int64, error) {
	result := r.db.Model(&models.CartLine{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Updates(map[string]interface{}{
			"quantity":     quantity,
			"total_amount": gorm.Expr("price * ?", quantity),
			"updated_at":   time.Now(),
		})
	return result.RowsAffected, result.Error
}

// DeleteByUserAndProduct 删除购物车行（幂等）
func (r *GormCartRepository) DeleteByUserAndProduct(userID, productID uint) error {
	return r.db.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.CartLine{}).Error
}

// ClearByUser 清空购物车（幂等）
func (r *GormCartRepository) ClearByUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.CartLine{}).Error
}
