// Package api implements the Trigger & Read HTTP Surface (spec.md §4.5)
// using Gin, following the teacher's cmd/tarsy/main.go router — the
// framework its go.mod and entry point actually commit to, rather than the
// in-progress Echo-based pkg/api the teacher's source tree also carries
// (see DESIGN.md Open Question decisions).
package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter builds the Gin engine exposing the Trigger & Read surface.
// dispatcher is the same Dispatch Client the Class Monitor uses, shared here
// so a manual /v1/trigger forwards to the external workflow exactly the way
// an automatic class-ended dispatch would (spec.md §4.5).
func NewRouter(opStore OpStore, anaStore AnaStore, dispatcher Dispatcher) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), gin.Logger())

	router.GET("/health", getHealth(opStore, anaStore))
	router.GET("/ready", getReady(opStore))

	v1 := router.Group("/v1")
	v1.Use(Idempotency(opStore))
	v1.POST("/trigger", postTrigger(anaStore, dispatcher))
	v1.GET("/lesson-status/:summary_id", getLessonStatus(anaStore))
	v1.GET("/exercises", getExercises(anaStore))

	return router
}
