package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/nebulamart/storefront-core/common/errors"
	"github.com/nebulamart/storefront-core/middleware"
	"github.com/nebulamart/storefront-core/models"
	"github.com/nebulamart/storefront-core/services"
)

type CartController struct {
	cart *services.CartService
}

func NewCartController(cart *services.CartService) *CartController {
	return &CartController{cart: cart}
}

type addItemRequest struct {
	ProductID string         `json:"product_id" binding:"required"`
	Quantity  int            `json:"quantity" binding:"required"`
	Variant   models.Variant `json:"variant"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart returns the current cart for a user
func (cc *CartController) GetCart(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("missing user"))
		return
	}

	cart, err := cc.cart.Get(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"cart":        cart,
			"total_items": cart.TotalItems(),
		},
	})
}

// AddItem adds or merges an item in the cart
func (cc *CartController) AddItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("missing user"))
		return
	}

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid payload"))
		return
	}

	cart, warnings, err := cc.cart.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity, req.Variant)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	data := gin.H{
		"cart":        cart,
		"total_items": cart.TotalItems(),
	}
	if len(warnings) > 0 {
		data["warnings"] = warnings
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// UpdateItem sets a line's quantity; zero removes the line
func (cc *CartController) UpdateItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("missing user"))
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		apperrors.Respond(c, apperrors.Validation("invalid payload"))
		return
	}

	cart, err := cc.cart.UpdateItem(c.Request.Context(), userID, c.Param("itemId"), *req.Quantity)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"cart":        cart,
			"total_items": cart.TotalItems(),
		},
	})
}

// RemoveItem removes a specific item from the cart
func (cc *CartController) RemoveItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("missing user"))
		return
	}

	cart, err := cc.cart.RemoveItem(c.Request.Context(), userID, c.Param("itemId"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"cart":        cart,
			"total_items": cart.TotalItems(),
		},
	})
}

// ClearCart removes all items from the cart
func (cc *CartController) ClearCart(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("missing user"))
		return
	}

	cart, err := cc.cart.Clear(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "cart cleared",
		"data": gin.H{
			"cart": cart,
		},
	})
}
