package webserver

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdouchement/chestlink/internal/manager"
	middlewarepkg "github.com/mdouchement/chestlink/internal/webserver/middleware"
	"github.com/mdouchement/chestlink/internal/webserver/serializer"
	"github.com/mdouchement/chestlink/internal/webserver/service"
	"github.com/mdouchement/logger"
)

// A Controller is an Iversion Of Control pattern used to init the server package.
type Controller struct {
	Version string
	Logger  logger.Logger
	Manager *manager.Manager
	Drops   *service.DropLedger
	Bank    Bank
	//
	RateLimit float64
	Debug     bool
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl Controller) *echo.Echo {
	log := ctrl.Logger.WithPrefix("[webserver]")

	engine := echo.New()
	engine.Use(middleware.Recover())
	engine.Use(middleware.Gzip())
	engine.Use(middlewarepkg.Logger(log))
	if ctrl.Debug {
		engine.Use(middlewarepkg.Dumpper(log))
	}
	if ctrl.RateLimit > 0 {
		engine.Use(middlewarepkg.RateLimiter(ctrl.RateLimit))
	}

	engine.HTTPErrorHandler = middlewarepkg.NewHTTPErrorHandler(log)

	engine.Pre(middleware.Rewrite(map[string]string{
		"/": "/version",
	}))

	//
	//
	//

	router := engine.Group("")

	// Generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})

	api := router.Group("/v1", middlewarepkg.Authenticate())

	// Binds
	//
	bind := bind{
		logger:  log,
		manager: ctrl.Manager,
	}
	api.POST("/binds", bind.Start)
	api.POST("/binds/finalize", bind.Finalize)
	api.DELETE("/binds", bind.Cancel)

	// Records
	//
	record := &record{
		logger:  log,
		manager: ctrl.Manager,
	}
	api.GET("/records", record.List)
	api.GET("/records/:ref", record.Show)
	api.PATCH("/records/:ref", record.Rename)
	api.DELETE("/records/:ref", record.Delete)
	api.POST("/records/:ref/reset", record.Reset)
	api.PUT("/records/:ref/shares/:grantee", record.Share)
	api.DELETE("/records/:ref/shares/:grantee", record.Unshare)
	api.POST("/records/:ref/upgrades/:kind", record.Upgrade)
	api.PUT("/records/:ref/filter", record.Filter)
	api.POST("/records/:ref/deposits", record.Deposit)
	api.GET("/records/:ref/pages", record.Pages)

	// Views
	//
	view := view{
		logger:  log,
		manager: ctrl.Manager,
		records: record,
	}
	api.POST("/records/:ref/views", view.Open)
	api.GET("/views/:handle", view.Show)
	api.PUT("/views/:handle", view.Update)
	api.POST("/views/:handle/page", view.ChangePage)
	api.DELETE("/views/:handle", view.Close)

	// Drops
	//
	api.GET("/drops", func(c echo.Context) error {
		c.Set("handler_method", "drops.List")

		var drops []serializer.Drop
		if ctrl.Drops != nil {
			drops = ctrl.Drops.Drops()
		}
		return c.JSON(http.StatusOK, serializer.Drops(drops))
	})

	// Maintenance
	//
	admin := admin{
		logger:  log,
		manager: ctrl.Manager,
		bank:    ctrl.Bank,
	}
	api.GET("/balance", admin.Balance)

	maintenance := api.Group("/admin", admin.Authorize)
	maintenance.POST("/reindex", admin.Reindex)
	maintenance.POST("/reindex/:owner", admin.Reindex)
	maintenance.POST("/purge", admin.Purge)
	maintenance.POST("/save", admin.Save)
	maintenance.PUT("/read-only/:actor", admin.ReadOnly)
	maintenance.DELETE("/read-only/:actor", admin.ReadOnly)
	maintenance.POST("/balances/:actor", admin.Deposit)

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}
