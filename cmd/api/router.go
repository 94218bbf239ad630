package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// newRouter builds the HTTP route tree.
func newRouter(deps *Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(deps.Logger))
	router.Use(rateLimit(rate.Limit(deps.Config.Server.RateLimitPerSecond), deps.Config.Server.RateLimitBurst))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/accounts", deps.AccountHandler.Create)
		v1.GET("/accounts", deps.AccountHandler.List)

		v1.POST("/accounts/:accountID/imports", deps.ImportHandler.Upload)
		v1.GET("/accounts/:accountID/imports", deps.ImportHandler.ListBatches)
		v1.GET("/imports/:batchID/issues", deps.ImportHandler.BatchIssues)

		v1.GET("/categories", deps.CategoryHandler.List)

		v1.PUT("/plans", deps.PlanHandler.SetPlan)
		v1.GET("/plans/:month", deps.PlanHandler.ListMonth)

		v1.GET("/summary/:month", deps.SummaryHandler.GetMonth)
		v1.GET("/summary/:month/export", deps.SummaryHandler.ExportMonth)
	}

	return router
}
