package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"eventcheckin/internal/config"
	dbpkg "eventcheckin/internal/db"
	"eventcheckin/internal/extension"
	"eventcheckin/internal/hooks"
	httpctx "eventcheckin/internal/http/ctx"
	"eventcheckin/internal/metabox"
)

func Dashboard() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.Redirect("/admin/posts", fasthttp.StatusSeeOther)
	}
}

func PostsPage(store Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		posts, err := store.ListPosts(ctx, 100)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load posts")
			return
		}
		data := getLayoutData(ctx, "Posts", "posts")
		data.Posts = posts
		renderLayout(ctx, data)
	}
}

type createPostForm struct {
	Title    string `validate:"required,max=255"`
	PostType string `validate:"required,max=32"`
}

func CreatePost(store Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		form := createPostForm{
			Title:    strings.TrimSpace(string(ctx.PostArgs().Peek("title"))),
			PostType: strings.TrimSpace(string(ctx.PostArgs().Peek("post_type"))),
		}
		if err := validate.Struct(form); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "title and post_type required")
			return
		}

		post := &dbpkg.Post{Title: form.Title, PostType: form.PostType, Status: dbpkg.StatusPublish}
		if user, ok := httpctx.UserFromCtx(ctx); ok {
			post.AuthorID = user.ID
		}
		if err := store.CreatePost(ctx, post); err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to create post")
			return
		}

		ctx.Redirect("/admin/posts/"+strconv.FormatUint(post.ID, 10)+"/edit", fasthttp.StatusSeeOther)
	}
}

// EditPost renders the admin edit screen. Meta boxes come from the
// add-meta-boxes action.
func EditPost(store Store, reg *hooks.Registry, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		post, ok := loadPost(ctx, store)
		if !ok {
			return
		}

		screen := &metabox.Screen{Post: post}
		if err := hooks.DoAction(ctx, reg, extension.ActionAddMetaBoxes, screen); err != nil {
			log.Error().Err(err).Uint64("post_id", post.ID).Msg("add meta boxes failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to build edit screen")
			return
		}

		data := getLayoutData(ctx, "Edit "+post.Title, "edit")
		data.Post = post
		data.MetaBoxes = screen.Boxes
		renderLayout(ctx, data)
	}
}

// CommunityEvents lists the signed-in user's submitted events with a form to
// submit another.
func CommunityEvents(store Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		posts, err := store.ListPostsByAuthor(ctx, user.ID, 100)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load events")
			return
		}
		data := getLayoutData(ctx, "My events", "community_events")
		data.Posts = posts
		renderLayout(ctx, data)
	}
}

// CommunitySubmit creates an event authored by the signed-in user.
func CommunitySubmit(store Store, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		form := createPostForm{
			Title:    strings.TrimSpace(string(ctx.PostArgs().Peek("title"))),
			PostType: cfg.TicketPostTypes[0],
		}
		if err := validate.Struct(form); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "title required")
			return
		}

		post := &dbpkg.Post{Title: form.Title, PostType: form.PostType, Status: dbpkg.StatusPublish, AuthorID: user.ID}
		if err := store.CreatePost(ctx, post); err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to create event")
			return
		}
		ctx.Redirect("/community/events/"+strconv.FormatUint(post.ID, 10)+"/edit", fasthttp.StatusSeeOther)
	}
}

// CommunityEdit renders the community contributor edit page of an event.
// Only the event's author and admins get it; others see 404.
// The tickets module is followed by the community tickets template action.
func CommunityEdit(store Store, reg *hooks.Registry, cfg *config.Config, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		post, ok := loadPost(ctx, store)
		if !ok {
			return
		}
		if !cfg.TicketEnabled(post.PostType) || !canEdit(user, post) {
			errResponse(ctx, fasthttp.StatusNotFound, "event not found")
			return
		}

		tickets, err := store.ListTickets(ctx, post.ID)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load tickets")
			return
		}

		var after bytes.Buffer
		page := &metabox.Page{Post: post, CommunityEdit: true, W: &after}
		if err := hooks.DoAction(ctx, reg, extension.ActionCommunityTickets, page); err != nil {
			log.Error().Err(err).Uint64("post_id", post.ID).Msg("community tickets template action failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to render community page")
			return
		}

		data := getLayoutData(ctx, "Edit "+post.Title, "community")
		data.Post = post
		data.Tickets = tickets
		data.AfterTickets = template.HTML(after.String())
		renderLayout(ctx, data)
	}
}

func canEdit(user *dbpkg.User, post *dbpkg.Post) bool {
	if user.IsAdmin {
		return true
	}
	return post.AuthorID != 0 && post.AuthorID == user.ID
}

func loadPost(ctx *fasthttp.RequestCtx, store Store) (*dbpkg.Post, bool) {
	id, ok := pathID(ctx)
	if !ok {
		return nil, false
	}
	post, err := store.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, dbpkg.ErrPostNotFound) {
			errResponse(ctx, fasthttp.StatusNotFound, "post not found")
			return nil, false
		}
		errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load post")
		return nil, false
	}
	return post, true
}
