package middleware

import (
	"context"

	"github.com/valyala/fasthttp"

	"eventcheckin/internal/config"
	dbpkg "eventcheckin/internal/db"
	httpctx "eventcheckin/internal/http/ctx"
)

// Sessions resolves session tokens to users.
type Sessions interface {
	UserBySession(ctx context.Context, token string) (*dbpkg.User, error)
}

// SessionAuth returns middleware that resolves the session cookie to a user
// and sets it on the context. Requests without a live session go to /login.
func SessionAuth(sessions Sessions, cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			token := ctx.Request.Header.Cookie(httpctx.SessionCookie)
			if len(token) == 0 {
				ctx.Redirect("/login", fasthttp.StatusSeeOther)
				return
			}

			user, err := sessions.UserBySession(ctx, string(token))
			if err != nil {
				ctx.Redirect("/login", fasthttp.StatusSeeOther)
				return
			}

			if user.Username == cfg.AdminUser {
				user.IsAdmin = true
			}

			httpctx.SetUser(ctx, user)
			next(ctx)
		}
	}
}

// AdminAuth is SessionAuth restricted to admin users.
func AdminAuth(sessions Sessions, cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	session := SessionAuth(sessions, cfg)
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return session(func(ctx *fasthttp.RequestCtx) {
			user, ok := httpctx.UserFromCtx(ctx)
			if !ok || !user.IsAdmin {
				ctx.SetStatusCode(fasthttp.StatusForbidden)
				ctx.SetBodyString("forbidden")
				return
			}
			next(ctx)
		})
	}
}
