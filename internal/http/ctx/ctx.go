package ctx

import (
	"github.com/valyala/fasthttp"

	dbpkg "eventcheckin/internal/db"
)

const UserKey = "user"

// SessionCookie carries the opaque session token issued at login.
const SessionCookie = "checkin_session"

func SetUser(ctx *fasthttp.RequestCtx, user *dbpkg.User) {
	ctx.SetUserValue(UserKey, user)
}

func UserFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	v := ctx.UserValue(UserKey)
	if v == nil {
		return nil, false
	}
	u, ok := v.(*dbpkg.User)
	return u, ok && u != nil
}
