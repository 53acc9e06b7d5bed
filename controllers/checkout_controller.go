package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/nebulamart/storefront-core/common/errors"
	"github.com/nebulamart/storefront-core/middleware"
	"github.com/nebulamart/storefront-core/models"
	"github.com/nebulamart/storefront-core/services"
)

type CheckoutController struct {
	checkout *services.CheckoutService
}

func NewCheckoutController(checkout *services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

type checkoutRequest struct {
	ShippingAddress shippingAddressRequest `json:"shipping_address" binding:"required"`
	ShippingMethod  string                 `json:"shipping_method"`
	Payment         paymentRequest         `json:"payment" binding:"required"`
}

type shippingAddressRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
	Street    string `json:"street" binding:"required"`
	City      string `json:"city" binding:"required"`
	State     string `json:"state" binding:"required"`
	ZipCode   string `json:"zip_code" binding:"required"`
	Country   string `json:"country"`
}

type paymentRequest struct {
	Method   string          `json:"method" binding:"required"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Checkout converts the user's cart into an order.
func (cc *CheckoutController) Checkout(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("missing user"))
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid payload"))
		return
	}

	country := req.ShippingAddress.Country
	if country == "" {
		country = "US"
	}
	shippingMethod := req.ShippingMethod
	if shippingMethod == "" {
		shippingMethod = "standard"
	}

	order, err := cc.checkout.Checkout(c.Request.Context(), userID, services.CheckoutRequest{
		ShippingAddress: models.ShippingAddress{
			FirstName: req.ShippingAddress.FirstName,
			LastName:  req.ShippingAddress.LastName,
			Email:     req.ShippingAddress.Email,
			Phone:     req.ShippingAddress.Phone,
			Street:    req.ShippingAddress.Street,
			City:      req.ShippingAddress.City,
			State:     req.ShippingAddress.State,
			ZipCode:   req.ShippingAddress.ZipCode,
			Country:   country,
		},
		ShippingMethod: shippingMethod,
		PaymentMethod:  req.Payment.Method,
		PaymentStatus:  models.PaymentStatus(req.Payment.Status),
		PaymentAmount:  req.Payment.Amount,
		Currency:       req.Payment.Currency,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "order created",
		"data": gin.H{
			"order": order,
		},
	})
}
