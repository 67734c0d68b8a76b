package routes

import (
	"tablefare/internal/handlers"
	"tablefare/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRuleRoutes sets up the rule management API. Rules change prices, so
// every endpoint requires a restaurant manager or admin token. The decision
// log lives here too: it exposes pricing internals.
func SetupRuleRoutes(r *gin.RouterGroup, ruleHandler *handlers.RuleHandler, pricingHandler *handlers.PricingHandler, jwtSecret string) {
	rules := r.Group("/restaurants/:id/rules")
	rules.Use(middleware.AuthRequired(jwtSecret), middleware.RestaurantManagerRequired())
	{
		rules.POST("/", ruleHandler.CreateRule)
		rules.GET("/", ruleHandler.ListRules)
		rules.GET("/:rule_id", ruleHandler.GetRule)
		rules.PUT("/:rule_id", ruleHandler.UpdateRule)
		rules.DELETE("/:rule_id", ruleHandler.DeleteRule)
		rules.POST("/seed", ruleHandler.SeedDefaultRules)
	}

	audit := r.Group("/restaurants/:id/price-log")
	audit.Use(middleware.AuthRequired(jwtSecret), middleware.RestaurantManagerRequired())
	{
		audit.GET("/", pricingHandler.GetDecisionLog)
	}

	model := r.Group("/restaurants/:id/demand-model")
	model.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())
	{
		model.POST("/train", pricingHandler.TrainDemandModel)
	}
}
