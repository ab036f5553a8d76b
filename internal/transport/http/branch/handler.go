package branch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/supermilas/ordercore/internal/notify"
	"github.com/supermilas/ordercore/internal/presentation/http/response"
	branchrepo "github.com/supermilas/ordercore/internal/repository/branch"
	"github.com/supermilas/ordercore/pkg/errorbank"
)

// Handler exposes the public branch directory and the live event stream
// that kitchen displays and printer clients attach to.
type Handler struct {
	branches *branchrepo.Repository
	fanout   notify.Fanout
}

// NewHandler constructs a branch Handler.
func NewHandler(branches *branchrepo.Repository, fanout notify.Fanout) *Handler {
	return &Handler{branches: branches, fanout: fanout}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/branches")
	g.GET("", h.list)
	g.GET("/resolve/:slug", h.resolveSlug)
	g.GET("/:code/events", h.streamEvents)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	branches, err := h.branches.List(c.Request().Context())
	if err != nil {
		return b.WithError(errorbank.Unavailable("branch directory unavailable", errorbank.WithCause(err))).Build()
	}
	return b.WithData(branches).Build()
}

func (h *Handler) resolveSlug(c echo.Context) error {
	b := response.New(c)

	code, err := h.branches.ResolveBySlug(c.Request().Context(), c.Param("slug"))
	if errors.Is(err, branchrepo.ErrNotFound) {
		return b.WithError(errorbank.NotFound("branch not found")).Build()
	}
	if err != nil {
		return b.WithError(errorbank.Unavailable("branch directory unavailable", errorbank.WithCause(err))).Build()
	}
	return b.WithData(map[string]string{"code": code}).Build()
}

// streamEvents pipes the branch fanout channel to the client as
// server-sent events. Delivery is best-effort; a client that disconnects
// simply misses events until it reconnects and re-polls.
func (h *Handler) streamEvents(c echo.Context) error {
	code := c.Param("code")
	ok, err := h.branches.IsValidCode(c.Request().Context(), code)
	if err != nil {
		return response.New(c).WithError(errorbank.Unavailable("branch directory unavailable", errorbank.WithCause(err))).Build()
	}
	if !ok {
		return response.New(c).WithError(errorbank.NotFound("branch not found")).Build()
	}

	ctx := c.Request().Context()
	events, cancel, err := h.fanout.Subscribe(ctx, code)
	if err != nil {
		return response.New(c).WithError(errorbank.Unavailable("event stream unavailable", errorbank.WithCause(err))).Build()
	}
	defer cancel()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, open := <-events:
			if !open {
				return nil
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.Name, payload); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
