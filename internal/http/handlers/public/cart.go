package public

import (
	"strconv"

	"github.com/echosavvy/api/internal/http/response"
	"github.com/echosavvy/api/internal/models"
	"github.com/echosavvy/api/internal/service"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加购请求
// price 仅作为首次加购时的快照，已存在的行沿用服务端已存单价。
type AddCartItemRequest struct {
	ProductID   uint         `json:"product_id" binding:"required"`
	ProductName string       `json:"product_name" binding:"required"`
	Price       models.Money `json:"price" binding:"required"`
	Quantity    int          `json:"quantity"`
	ImageURL    string       `json:"image_url" binding:"required"`
}

// UpdateCartItemRequest 数量更新请求
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// MergeGuestCartRequest 游客购物车并入请求
type MergeGuestCartRequest struct {
	Items []service.GuestCartItem `json:"items"`
}

var cartErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCartItem, code: response.CodeBadRequest, msg: "invalid cart item"},
	{target: service.ErrCartLineNotFound, code: response.CodeNotFound, msg: "cart line not found"},
	{target: service.ErrEmptyGuestCart, code: response.CodeBadRequest, msg: "no items in guest cart"},
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	lines, err := h.CartService.ListByUser(uid)
	if err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "cart fetch failed")
		return
	}
	response.Success(c, gin.H{"items": lines})
}

// AddCartItem 添加或按数量累加购物车行
func (h *Handler) AddCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	line, err := h.CartService.AddItem(service.AddCartItemInput{
		UserID:      uid,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Price:       req.Price,
		Quantity:    quantity,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "cart update failed")
		return
	}
	response.Success(c, gin.H{"item": line})
}

// UpdateCartItem 设置购物车行数量，数量小于 1 时等价于删除
func (h *Handler) UpdateCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	productID, ok := paramProductID(c)
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	line, err := h.CartService.SetQuantity(uid, productID, req.Quantity)
	if err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "cart update failed")
		return
	}
	if line == nil {
		response.Success(c, gin.H{"removed": true})
		return
	}
	response.Success(c, gin.H{"item": line})
}

// DeleteCartItem 删除购物车行（幂等）
func (h *Handler) DeleteCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	productID, ok := paramProductID(c)
	if !ok {
		return
	}
	if err := h.CartService.RemoveItem(uid, productID); err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "cart update failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// ClearCart 清空购物车（幂等）
func (h *Handler) ClearCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.CartService.Clear(uid); err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "cart update failed")
		return
	}
	response.Success(c, gin.H{"cleared": true})
}

// MergeGuestCart 登录后将游客本地购物车并入服务端购物车
// 空购物车应由客户端直接跳过调用，此处按入参错误处理。
func (h *Handler) MergeGuestCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req MergeGuestCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	result, err := h.CartService.MergeGuestCart(uid, req.Items)
	if err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "guest cart merge failed")
		return
	}
	if len(result.Failed) > 0 {
		requestLog(c).Warnw("guest_cart_merge_partial",
			"user_id", uid,
			"merged", len(result.Merged),
			"failed", len(result.Failed),
		)
	}
	response.Success(c, result)
}

func paramProductID(c *gin.Context) (uint, bool) {
	rawID := c.Param("product_id")
	productID, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "invalid product id", nil)
		return 0, false
	}
	return uint(productID), true
}
