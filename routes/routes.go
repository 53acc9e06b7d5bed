package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/nebulamart/storefront-core/controllers"
	"github.com/nebulamart/storefront-core/middleware"
	"github.com/nebulamart/storefront-core/services"
)

func Register(
	r *gin.Engine,
	cartService *services.CartService,
	checkoutService *services.CheckoutService,
	orderService *services.OrderService,
) {
	cartController := controllers.NewCartController(cartService)
	checkoutController := controllers.NewCheckoutController(checkoutService)
	orderController := controllers.NewOrderController(orderService)

	api := r.Group("/")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/cart", cartController.GetCart)
		api.POST("/cart/items", cartController.AddItem)
		api.PUT("/cart/items/:itemId", cartController.UpdateItem)
		api.DELETE("/cart/items/:itemId", cartController.RemoveItem)
		api.DELETE("/cart", cartController.ClearCart)

		api.POST("/checkout", checkoutController.Checkout)

		api.GET("/orders", orderController.ListOrders)
		api.GET("/orders/:orderId", orderController.GetOrder)
		api.PATCH("/orders/:orderId/status", orderController.UpdateStatus)
	}
}
