package router

import (
	"github.com/fasthttp/router"

	apiHandler "github.com/fastygo/taskscan/api/handler"
)

type Handlers struct {
	Task   *apiHandler.TaskHandler
	Scan   *apiHandler.ScanHandler
	Ingest *apiHandler.IngestHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	r.GET("/api/v1/tasks", handlers.Task.GetTasks)
	r.PUT("/api/v1/tasks", handlers.Task.ReplaceTasks)

	r.POST("/api/v1/scan", handlers.Scan.Trigger)
	r.GET("/api/v1/scan", handlers.Scan.Status)

	r.POST("/api/v1/ingest", handlers.Ingest.Ingest)

	return r
}
