package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/melih/whalesbook/internal/core/domain"
	"github.com/melih/whalesbook/internal/core/ports"
)

// Books resolves configured books.
type Books interface {
	BookList() []domain.Book
	Book(name string) (domain.Book, error)
}

// Engine is the reconciliation surface exposed over HTTP.
type Engine interface {
	UpdateBook(ctx context.Context, book domain.Book, force bool) (domain.UpdateResult, error)
	Prune(ctx context.Context, book domain.Book) (domain.PruneReport, error)
	StopBookContainers(ctx context.Context, book domain.Book) (int, error)
	BookState(ctx context.Context, book domain.Book) domain.BookState
	BookContainers(ctx context.Context, book domain.Book) ([]domain.Container, error)
}

type BookHandler struct {
	books   Books
	engine  Engine
	runtime ports.ContainerService
}

func NewBookHandler(books Books, engine Engine, runtime ports.ContainerService) *BookHandler {
	return &BookHandler{books: books, engine: engine, runtime: runtime}
}

// Register mounts the book routes on router.
func (h *BookHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)

	books := router.Group("/books")
	books.Get("/", h.ListBooks)
	books.Get("/:name", h.GetBook)
	books.Get("/:name/state", h.GetBookState)
	books.Get("/:name/containers", h.ListContainers)
	books.Get("/:name/containers/:id/logs", h.GetContainerLogs)
	books.Post("/:name/update", h.UpdateBook)
	books.Post("/:name/prune", h.PruneBook)
	books.Post("/:name/stop", h.StopBook)
}

func (h *BookHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *BookHandler) ListBooks(c *fiber.Ctx) error {
	return c.JSON(h.books.BookList())
}

// book resolves the :name param. Its errors are *fiber.Error values the app's
// error handler renders.
func (h *BookHandler) book(c *fiber.Ctx) (domain.Book, error) {
	// Book names may contain a slash, which arrives escaped.
	name, err := unescape(c.Params("name"))
	if err != nil {
		return domain.Book{}, fiber.NewError(fiber.StatusBadRequest, "Invalid book name")
	}
	book, err := h.books.Book(name)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return domain.Book{}, fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return domain.Book{}, err
	}
	return book, nil
}

func (h *BookHandler) GetBook(c *fiber.Ctx) error {
	book, err := h.book(c)
	if err != nil {
		return err
	}
	return c.JSON(book)
}

func (h *BookHandler) GetBookState(c *fiber.Ctx) error {
	book, err := h.book(c)
	if err != nil {
		return err
	}
	return c.JSON(h.engine.BookState(c.UserContext(), book))
}

func (h *BookHandler) ListContainers(c *fiber.Ctx) error {
	book, err := h.book(c)
	if err != nil {
		return err
	}
	// Like the book state, a listing failure is reported, never fatal.
	resp := fiber.Map{"book": book.Name, "containers": []domain.Container{}}
	containers, err := h.engine.BookContainers(c.UserContext(), book)
	if err != nil {
		resp["error"] = err.Error()
		return c.JSON(resp)
	}
	if containers != nil {
		resp["containers"] = containers
	}
	return c.JSON(resp)
}

func (h *BookHandler) GetContainerLogs(c *fiber.Ctx) error {
	book, err := h.book(c)
	if err != nil {
		return err
	}
	id := c.Params("id")

	// Only containers of this book are readable through its route.
	containers, err := h.engine.BookContainers(c.UserContext(), book)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	found := false
	for _, ctr := range containers {
		if ctr.ID == id || ctr.Name == id {
			found = true
			break
		}
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Container not found in book " + book.Name,
		})
	}

	logs, err := h.runtime.GetContainerLogs(c.UserContext(), book.Runner, id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Set("Content-Type", "text/plain")
	// SendStream closes the reader once the body is written.
	return c.SendStream(logs)
}

func (h *BookHandler) UpdateBook(c *fiber.Ctx) error {
	book, err := h.book(c)
	if err != nil {
		return err
	}
	res, err := h.engine.UpdateBook(c.UserContext(), book, c.QueryBool("force"))
	return respond(c, res, err)
}

func (h *BookHandler) PruneBook(c *fiber.Ctx) error {
	book, err := h.book(c)
	if err != nil {
		return err
	}
	report, err := h.engine.Prune(c.UserContext(), book)
	return respond(c, report, err)
}

func (h *BookHandler) StopBook(c *fiber.Ctx) error {
	book, err := h.book(c)
	if err != nil {
		return err
	}
	stopped, err := h.engine.StopBookContainers(c.UserContext(), book)
	return respond(c, fiber.Map{"book": book.Name, "stopped": stopped}, err)
}

// respond writes the result of a triggered operation. A partial result is
// still returned next to the error.
func respond(c *fiber.Ctx, result any, err error) error {
	switch {
	case err == nil:
		return c.JSON(result)
	case errors.Is(err, domain.ErrReconcileInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  err.Error(),
			"result": result,
		})
	}
}
