// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package explain

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the explanation routes with the router.
//
// Description:
//
//	Registers all /v1/explain/* endpoints with the given Gin router
//	group. The group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/explain/tabular - Explain one row of a tabular dataset
//	GET  /v1/explain/results/:id - Get a stored explanation
//	GET  /v1/explain/results - List stored explanations
//	GET  /v1/explain/health - Health check
//	GET  /v1/explain/ready - Readiness check
//
// Example:
//
//	service, _ := explain.NewService(cfg, recordStore, logger)
//	handlers := explain.NewHandlers(service, limiter)
//
//	v1 := router.Group("/v1")
//	explain.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	group := rg.Group("/explain")
	{
		group.POST("/tabular", handlers.HandleExplainTabular)

		group.GET("/results", handlers.HandleListResults)
		group.GET("/results/:id", handlers.HandleGetResult)

		group.GET("/health", handlers.HandleHealth)
		group.GET("/ready", handlers.HandleReady)
	}
}
