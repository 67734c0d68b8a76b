package routes

import (
	"tablefare/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupPricingRoutes sets up the public pricing endpoints. Quotes, forecasts,
// and competitor analysis are readable by any marketplace client.
func SetupPricingRoutes(r *gin.RouterGroup, pricingHandler *handlers.PricingHandler) {
	restaurants := r.Group("/restaurants")
	{
		restaurants.GET("/:id/price", pricingHandler.GetPrice)
		restaurants.GET("/:id/forecast", pricingHandler.GetDemandForecast)
		restaurants.GET("/:id/competitors", pricingHandler.GetCompetitorAnalysis)

		// Search impressions feed the demand signal
		restaurants.POST("/:id/searches", pricingHandler.RecordSearch)
		restaurants.GET("/:id/search-volume", pricingHandler.GetSearchVolume)
	}
}
