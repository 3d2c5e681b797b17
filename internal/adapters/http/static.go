package http

import (
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SetupStatic serves the web client from dir and falls back to its
// index.html for any other GET so client-side routes survive a reload.
func SetupStatic(app *fiber.App, dir string) {
	if dir == "" {
		return
	}
	app.Static("/", dir, fiber.Static{Index: "index.html"})

	index := filepath.Join(dir, "index.html")
	app.Get("*", func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/") {
			return errNotFound(c, "ruta desconocida: "+c.Path())
		}
		setNoStore(c)
		return c.SendFile(index)
	})
}
