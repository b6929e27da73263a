package api

import (
	"net/http"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/rs/cors"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/config"
)

// OpenAPIPath serves the generated OpenAPI document.
const OpenAPIPath = "/api/v1/openapi.json"

// NewContainer registers the filters, the routes and the OpenAPI service.
func NewContainer(handler *Handler) *restful.Container {
	container := restful.NewContainer()
	container.Filter(Logger(handler.logger))
	container.Filter(RecoverPanic(handler.logger))
	RegisterRoutes(container, handler)

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     OpenAPIPath,
		PostBuildSwaggerObjectHandler: func(swo *spec.Swagger) {
			enrichSwaggerObject(swo, handler.version)
		},
	}))
	return container
}

// NewServer wraps the container with CORS and the configured timeouts.
func NewServer(cfg config.ServerConfig, handler *Handler) *http.Server {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      corsHandler.Handler(NewContainer(handler)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func enrichSwaggerObject(swo *spec.Swagger, version string) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "Claim Negotiator API",
			Description: "Claim negotiation decision pipeline with a verifiable audit trail",
			Version:     version,
		},
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "health", Description: "Health checks"}},
		{TagProps: spec.TagProps{Name: "negotiation", Description: "Claim negotiation"}},
		{TagProps: spec.TagProps{Name: "compliance", Description: "Jurisdiction compliance checks"}},
		{TagProps: spec.TagProps{Name: "escalation", Description: "Escalation evaluation"}},
		{TagProps: spec.TagProps{Name: "audit", Description: "Audit trails and reports"}},
	}
}
