package models

import "time"

// CartLine 购物车行
// 说明：每个 (user_id, product_id) 至多一行，由复合唯一索引保证；
// 重复加购按数量累加。商品名称、图片与单价为加购时的快照。
// 购物车行为硬删除，软删除会让唯一索引残留已删行。
type CartLine struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                         // 主键
	UserID      uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`    // 用户ID
	ProductID   uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"` // 商品ID
	ProductName string    `gorm:"type:varchar(255);not null" json:"product_name"`               // 商品名称快照
	Price       Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price"`           // 单价快照
	Quantity    int       `gorm:"not null" json:"quantity"`                                     // 数量（≥1）
	ImageURL    string    `gorm:"type:text" json:"image_url"`                                   // 图片快照
	TotalAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`    // 小计（price * quantity）
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt   time.Time `gorm:"index" json:"updated_at"`                                      // 更新时间
}

// TableName 指定表名
func (CartLine) TableName() string {
	return "cart_lines"
}
