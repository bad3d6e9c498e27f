package handler

import "github.com/gin-gonic/gin"

// Handlers bundles the route handlers for registration.
type Handlers struct {
	Catalog      *CatalogHandler
	Schedule     *ScheduleHandler
	Generation   *GenerationHandler
	Optimization *OptimizationHandler
	Metrics      *MetricsHandler
}

// Register mounts every API route under the group.
func Register(api *gin.RouterGroup, h Handlers) {
	courses := api.Group("/courses")
	{
		courses.GET("", h.Catalog.ListCourses)
		courses.POST("", h.Catalog.CreateCourse)
		courses.GET("/:id", h.Catalog.GetCourse)
		courses.PUT("/:id", h.Catalog.UpdateCourse)
		courses.DELETE("/:id", h.Catalog.DeleteCourse)
	}

	rooms := api.Group("/rooms")
	{
		rooms.GET("", h.Catalog.ListRooms)
		rooms.POST("", h.Catalog.CreateRoom)
		rooms.GET("/:id", h.Catalog.GetRoom)
		rooms.DELETE("/:id", h.Catalog.DeleteRoom)
	}

	api.GET("/time-slots", h.Catalog.ListTimeSlots)
	api.POST("/time-slots", h.Catalog.CreateTimeSlot)
	api.GET("/teachers", h.Catalog.ListTeachers)
	api.POST("/teachers", h.Catalog.CreateTeacher)

	schedules := api.Group("/schedules")
	{
		schedules.GET("", h.Schedule.List)
		schedules.POST("", h.Schedule.Create)
		schedules.GET("/:id", h.Schedule.Get)
		schedules.GET("/:id/sessions", h.Schedule.ListSessions)
		schedules.POST("/:id/sessions", h.Schedule.CreateSession)
		schedules.GET("/:id/sessions/:sessionId", h.Schedule.GetSession)
		schedules.GET("/:id/occurrences", h.Schedule.ListOccurrences)
		schedules.GET("/:id/generation-config", h.Schedule.GetGenerationConfig)
		schedules.PUT("/:id/generation-config", h.Schedule.SaveGenerationConfig)
		schedules.GET("/:id/export/:format", h.Schedule.Export)

		schedules.POST("/:id/generate", h.Generation.Generate)
		schedules.GET("/:id/conflicts", h.Generation.PredictConflicts)
		schedules.POST("/:id/optimize", h.Optimization.Optimize)
	}

	optimizations := api.Group("/optimizations")
	{
		optimizations.GET("", h.Optimization.List)
		optimizations.GET("/:runId", h.Optimization.Status)
		optimizations.POST("/:runId/cancel", h.Optimization.Cancel)
	}
}
