package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/partshelf/partshelf-backend/api/controllers"
	"github.com/partshelf/partshelf-backend/api/middleware"
	"github.com/partshelf/partshelf-backend/internal/aliases"
	"github.com/partshelf/partshelf-backend/internal/allocation"
	"github.com/partshelf/partshelf-backend/internal/assemblies"
	"github.com/partshelf/partshelf-backend/internal/bom"
	"github.com/partshelf/partshelf-backend/internal/orders"
	"github.com/partshelf/partshelf-backend/internal/parts"
	"github.com/partshelf/partshelf-backend/internal/projects"
	"github.com/partshelf/partshelf-backend/pkg/config"
	"github.com/partshelf/partshelf-backend/pkg/db"
	"github.com/partshelf/partshelf-backend/pkg/logger"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Parts      parts.Service
	Assemblies assemblies.Service
	BOM        bom.Service
	Allocation allocation.Service
	Aliases    aliases.Service
	Orders     orders.Service
	Projects   projects.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Get("/ping", controllers.Ping())

	r.Route("/api", func(r chi.Router) {
		r.Route("/parts", func(r chi.Router) {
			r.Post("/", controllers.PartCreate(svcs.Parts, logg))
			r.Get("/", controllers.PartList(svcs.Parts, logg))
			r.Delete("/", controllers.PartBulkDelete(svcs.Parts, logg))
			r.Post("/merge", controllers.PartMerge(svcs.Allocation, logg))
			r.Route("/{partID}", func(r chi.Router) {
				r.Get("/", controllers.PartGet(svcs.Parts, logg))
				r.Patch("/", controllers.PartUpdate(svcs.Parts, logg))
				r.Get("/alias", controllers.PartAlias(svcs.Aliases, logg))
				r.Get("/orders", controllers.OrdersByPart(svcs.Orders, logg))
			})
		})

		r.Route("/assemblies", func(r chi.Router) {
			r.Post("/", controllers.AssemblyCreate(svcs.Assemblies, logg))
			r.Get("/", controllers.AssemblyList(svcs.Assemblies, logg))
			r.Delete("/", controllers.AssemblyBulkDelete(svcs.Assemblies, logg))
			r.Get("/low_stock", controllers.AssemblyLowStock(svcs.Assemblies, logg))
			r.Route("/{assemblyID}", func(r chi.Router) {
				r.Get("/", controllers.AssemblyGet(svcs.Assemblies, logg))
				r.Patch("/", controllers.AssemblyUpdate(svcs.Assemblies, logg))
				r.Post("/recalculate", controllers.Recalculate(svcs.Allocation, logg))
				r.Route("/bom", func(r chi.Router) {
					r.Post("/", controllers.BOMUpsert(svcs.BOM, logg))
					r.Post("/swap-quantity", controllers.SwapQuantity(svcs.Allocation, logg))
					r.Route("/{partID}", func(r chi.Router) {
						r.Patch("/", controllers.BOMUpdate(svcs.BOM, logg))
						r.Delete("/", controllers.BOMDelete(svcs.BOM, logg))
						r.Put("/allocate", controllers.Allocate(svcs.Allocation, logg))
						r.Put("/deallocate", controllers.Deallocate(svcs.Allocation, logg))
						r.Put("/swap", controllers.SwapPart(svcs.Allocation, logg))
					})
				})
			})
		})

		r.Route("/aliases", func(r chi.Router) {
			r.Post("/", controllers.AliasCreate(svcs.Aliases, logg))
			r.Get("/search", controllers.AliasSearch(svcs.Aliases, logg))
			r.Delete("/links/part/{partID}", controllers.AliasUnlinkPart(svcs.Aliases, logg))
			r.Route("/{aliasID}", func(r chi.Router) {
				r.Patch("/", controllers.AliasRename(svcs.Aliases, logg))
				r.Delete("/", controllers.AliasDelete(svcs.Aliases, logg))
				r.Get("/links", controllers.AliasLinks(svcs.Aliases, logg))
				r.Post("/links", controllers.AliasLinkPart(svcs.Aliases, logg))
			})
		})

		r.Route("/part_orders", func(r chi.Router) {
			r.Post("/", controllers.OrderPlace(svcs.Orders, logg))
			r.Get("/recent", controllers.OrdersRecent(svcs.Orders, logg))
			r.Patch("/{orderID}/fulfill", controllers.OrderFulfill(svcs.Orders, logg))
		})

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", controllers.ProjectCreate(svcs.Projects, logg))
			r.Get("/", controllers.ProjectList(svcs.Projects, logg))
			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", controllers.ProjectGet(svcs.Projects, logg))
				r.Patch("/", controllers.ProjectUpdate(svcs.Projects, logg))
				r.Delete("/", controllers.ProjectDelete(svcs.Projects, logg))
				r.Get("/summary", controllers.ProjectSummary(svcs.Projects, logg))
				r.Get("/parts", controllers.ProjectParts(svcs.Projects, logg))
				r.Post("/assemblies", controllers.ProjectLinkAssembly(svcs.Projects, logg))
				r.Delete("/assemblies/{assemblyID}", controllers.ProjectUnlinkAssembly(svcs.Projects, logg))
			})
		})
	})

	return r
}
