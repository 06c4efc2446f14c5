package handlers

import (
	"bytes"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"

	"eventcheckin/internal/config"
	dbpkg "eventcheckin/internal/db"
	httpctx "eventcheckin/internal/http/ctx"
	ui "eventcheckin/web"
)

const badCredentials = "Invalid username or password."

func LoginForm() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		writeLoginPage(ctx, fasthttp.StatusOK, "")
	}
}

// LoginSubmit checks the password and starts a server-side session. Admins
// land on the dashboard, everyone else on their community events.
func LoginSubmit(users UserStore, cfg *config.Config, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		username := string(ctx.PostArgs().Peek("username"))
		password := ctx.PostArgs().Peek("password")

		user, err := users.UserByUsername(ctx, username)
		switch {
		case errors.Is(err, dbpkg.ErrUserNotFound):
			writeLoginPage(ctx, fasthttp.StatusUnauthorized, badCredentials)
			return
		case err != nil:
			log.Error().Err(err).Msg("login lookup failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), password) != nil {
			writeLoginPage(ctx, fasthttp.StatusUnauthorized, badCredentials)
			return
		}

		token, err := users.CreateSession(ctx, user.ID, cfg.SessionTTL)
		if err != nil {
			log.Error().Err(err).Uint("user_id", user.ID).Msg("session create failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "could not sign in")
			return
		}
		setSessionCookie(ctx, token, time.Now().Add(cfg.SessionTTL))

		if user.IsAdmin || user.Username == cfg.AdminUser {
			ctx.Redirect("/", fasthttp.StatusSeeOther)
			return
		}
		ctx.Redirect("/community/events", fasthttp.StatusSeeOther)
	}
}

// Logout ends the current session, if any, and clears the cookie.
func Logout(users UserStore, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if token := ctx.Request.Header.Cookie(httpctx.SessionCookie); len(token) > 0 {
			if err := users.DeleteSession(ctx, string(token)); err != nil {
				log.Warn().Err(err).Msg("session delete failed")
			}
		}
		setSessionCookie(ctx, "", time.Unix(0, 0))
		ctx.Redirect("/login", fasthttp.StatusSeeOther)
	}
}

func setSessionCookie(ctx *fasthttp.RequestCtx, token string, expires time.Time) {
	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)
	c.SetKey(httpctx.SessionCookie)
	c.SetValue(token)
	c.SetPath("/")
	c.SetHTTPOnly(true)
	c.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	c.SetExpire(expires)
	ctx.Response.Header.SetCookie(c)
}

func writeLoginPage(ctx *fasthttp.RequestCtx, status int, errMsg string) {
	var data map[string]any
	if errMsg != "" {
		data = map[string]any{"Error": errMsg}
	}
	var buf bytes.Buffer
	if err := ui.Templates().ExecuteTemplate(&buf, "login.html", data); err != nil {
		errResponse(ctx, fasthttp.StatusInternalServerError, "render error")
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(buf.Bytes())
}
