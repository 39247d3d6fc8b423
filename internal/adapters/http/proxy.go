package http

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// ProxyHandler routes <slug>.<book>.<base domain> to the running container
// of that slug, for setups without a traefik in front.
type ProxyHandler struct {
	books      Books
	engine     Engine
	baseDomain string
}

func NewProxyHandler(books Books, engine Engine, baseDomain string) *ProxyHandler {
	return &ProxyHandler{books: books, engine: engine, baseDomain: strings.Trim(baseDomain, ".")}
}

// route splits a host into slug and book name.
func (h *ProxyHandler) route(host string) (slug, book string, ok bool) {
	prefix, found := strings.CutSuffix(host, "."+h.baseDomain)
	if !found {
		return "", "", false
	}
	slug, book, ok = strings.Cut(prefix, ".")
	if !ok || slug == "" || book == "" {
		return "", "", false
	}
	return slug, book, true
}

// ProxyRequest intercepts requests to book subdomains and passes every other
// request on.
func (h *ProxyHandler) ProxyRequest(c *fiber.Ctx) error {
	slug, bookName, ok := h.route(c.Hostname())
	if !ok {
		return c.Next()
	}

	book, err := h.books.Book(bookName)
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString(fmt.Sprintf("Book '%s' not found", bookName))
	}

	containers, err := h.engine.BookContainers(c.UserContext(), book)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to list containers")
	}

	var targetIP string
	for _, ctr := range containers {
		// Only proxy to running containers
		if ctr.Record.MainTag.Tag != slug || !ctr.Running() || ctr.IPAddress == "" {
			continue
		}
		targetIP = ctr.IPAddress
		break
	}
	if targetIP == "" {
		return c.Status(fiber.StatusNotFound).SendString(fmt.Sprintf("App '%s' not found or not running", slug))
	}

	port := 80
	if book.Traefik != nil && book.Traefik.Port != 0 {
		port = book.Traefik.Port
	}
	remote, err := url.Parse(fmt.Sprintf("http://%s:%d", targetIP, port))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Invalid target URL")
	}

	proxy := httputil.NewSingleHostReverseProxy(remote)
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Header.Set("X-Forwarded-Host", req.Host)
		req.Host = remote.Host
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprintf(w, "Proxy Info: target=%s error=%v", remote.Host, err)
	}

	return adaptor.HTTPHandler(proxy)(c)
}
