package http

import (
	"net/http"
	"net/url"

	"github.com/containerd/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// NewApp assembles the fiber app. proxy and metrics are optional.
func NewApp(books *BookHandler, proxy *ProxyHandler, metrics http.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.G(c.UserContext()).WithError(err).WithField("path", c.Path()).Error("Request failed")
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	// The proxy has to see every request first; it passes on hosts it does
	// not serve.
	if proxy != nil {
		app.Use(proxy.ProxyRequest)
	}
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	api := app.Group("/api")
	v1 := api.Group("/v1")
	books.Register(v1)

	return app
}

func unescape(s string) (string, error) {
	return url.PathUnescape(s)
}
