package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	dbpkg "eventcheckin/internal/db"
	httpctx "eventcheckin/internal/http/ctx"
	"eventcheckin/internal/metabox"
	ui "eventcheckin/web"
)

// Store is the content store the handlers read and write.
type Store interface {
	GetPost(ctx context.Context, id uint64) (*dbpkg.Post, error)
	CreatePost(ctx context.Context, p *dbpkg.Post) error
	ListPosts(ctx context.Context, limit int) ([]dbpkg.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID uint, limit int) ([]dbpkg.Post, error)
	CreateTicket(ctx context.Context, t *dbpkg.Ticket) error
	ListTickets(ctx context.Context, eventID uint64) ([]dbpkg.Ticket, error)
}

// UserStore looks up dashboard users and keeps their sessions.
type UserStore interface {
	UserByUsername(ctx context.Context, username string) (*dbpkg.User, error)
	CreateSession(ctx context.Context, userID uint, ttl time.Duration) (string, error)
	DeleteSession(ctx context.Context, token string) error
}

// MustUser returns the current user from context, or sends 401 and returns (nil, false).
func MustUser(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	user, ok := httpctx.UserFromCtx(ctx)
	if !ok {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString("unauthorized")
		return nil, false
	}
	return user, true
}

// RequestLogger returns fasthttp middleware that logs method, path, status, duration.
func RequestLogger(log zerolog.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			log.Info().
				Bytes("method", ctx.Method()).
				Bytes("path", ctx.Path()).
				Int("status", ctx.Response.StatusCode()).
				Dur("duration", time.Since(start)).
				Str("ip", ctx.RemoteIP().String()).
				Msg("request")
		}
	}
}

// pathID reads the numeric {id} route parameter, answering 400 when absent or invalid.
func pathID(ctx *fasthttp.RequestCtx) (uint64, bool) {
	idStr, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("invalid id")
		return 0, false
	}
	return id, true
}

func jsonResponse(ctx *fasthttp.RequestCtx, code int, data map[string]any) {
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(data)
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetBodyString(msg)
}

type LayoutData struct {
	Title        string
	Breadcrumb   string
	PageTemplate string
	Username     string
	IsAdmin      bool

	Posts        []dbpkg.Post
	Post         *dbpkg.Post
	MetaBoxes    []metabox.Box
	Tickets      []dbpkg.Ticket
	AfterTickets template.HTML
}

func getLayoutData(ctx *fasthttp.RequestCtx, breadcrumb, pageTemplate string) LayoutData {
	data := LayoutData{
		Title:        breadcrumb,
		Breadcrumb:   breadcrumb,
		PageTemplate: pageTemplate,
	}
	if user, ok := httpctx.UserFromCtx(ctx); ok {
		data.Username = user.Username
		data.IsAdmin = user.IsAdmin
	}
	return data
}

func renderLayout(ctx *fasthttp.RequestCtx, data LayoutData) {
	var buf bytes.Buffer
	if err := ui.Templates().ExecuteTemplate(&buf, "layout", data); err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("render error")
		return
	}
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(buf.Bytes())
}
