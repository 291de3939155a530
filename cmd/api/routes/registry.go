package routes

import (
	"github.com/genomeai/platform/cmd/api/container"
	"github.com/genomeai/platform/cmd/api/handlers"
	"github.com/labstack/echo/v4"
)

// RegisterRegistryRoutes registers dataset, sample and reference set routes
func RegisterRegistryRoutes(g *echo.Group, c *container.Container) {
	datasets := handlers.NewDatasetHandler(c.DatasetService)
	samples := handlers.NewSampleHandler(c.SampleService)
	references := handlers.NewReferenceHandler(c.ReferenceService)

	ds := g.Group("/datasets")
	{
		ds.POST("/register", datasets.RegisterDataset) // POST /datasets/register
		ds.POST("/upload", datasets.UploadDataset)     // POST /datasets/upload (multipart)
		ds.GET("", datasets.ListDatasets)              // GET /datasets?project_id=
	}

	sm := g.Group("/samples")
	{
		sm.POST("", samples.CreateSample)            // POST /samples
		sm.GET("", samples.ListSamples)              // GET /samples?project_id=
		sm.GET("/export.csv", samples.ExportSamples) // GET /samples/export.csv?project_id=
	}

	refs := g.Group("/references")
	{
		refs.POST("", references.CreateReference)       // POST /references
		refs.GET("", references.ListReferences)         // GET /references
		refs.GET("/:id", references.GetReference)       // GET /references/{id}
		refs.PATCH("/:id", references.UpdateReference)  // PATCH /references/{id}
		refs.DELETE("/:id", references.DeleteReference) // DELETE /references/{id}
	}
}
