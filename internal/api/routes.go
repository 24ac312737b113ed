package api

import "github.com/gin-gonic/gin"

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/categories", handler.GetCategories)
		api.POST("/normalize", handler.Normalize)
		api.GET("/rates/status", handler.GetRateStatus)

		api.POST("/sessions", handler.CreateSession)
		api.GET("/sessions/:id", handler.GetSession)
		api.DELETE("/sessions/:id", handler.DeleteSession)
		api.GET("/sessions/:id/comparison", handler.GetComparison)
		api.PUT("/sessions/:id/comparison", handler.PutComparison)
		api.POST("/sessions/:id/reload", handler.ReloadFromSource)
		api.PUT("/sessions/:id/measurement-system", handler.SetMeasurementSystem)
		api.PUT("/sessions/:id/property-type", handler.SetPropertyType)

		api.GET("/sessions/:id/rates", handler.GetRates)
		api.PUT("/sessions/:id/rates/:key", handler.UpdateRate)
		api.POST("/sessions/:id/rates/reset", handler.ResetRates)

		api.PATCH("/sessions/:id/comparables/:comparable/adjustments/:category", handler.UpdateAdjustment)
		api.DELETE("/sessions/:id/comparables/:comparable", handler.RemoveComparable)
	}
}
