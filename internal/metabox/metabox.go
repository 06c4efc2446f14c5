// Package metabox renders the event API key on the admin edit screen and
// on the community edit page.
package metabox

import (
	"bytes"
	"context"
	"html/template"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/message"

	"eventcheckin/internal/checkin"
	dbpkg "eventcheckin/internal/db"
	ui "eventcheckin/web"
)

const (
	BoxID            = "event_tickets_event_api"
	KnowledgeBaseURL = "https://theeventscalendar.com/knowledgebase/k/using-qr-codes-with-event-tickets-plus/"

	linkPlaceholder = "%KB_LINK%"
)

// Keys is the key provisioning the renderer relies on.
type Keys interface {
	EnsureKey(ctx context.Context, eventID uint64) error
	Key(ctx context.Context, eventID uint64) (string, error)
}

// Translator hands out printers for a text domain.
type Translator interface {
	Printer(domain string) *message.Printer
}

// Box is one meta box on an edit screen.
type Box struct {
	ID      string
	Title   string
	Context string
	Body    template.HTML
}

// Screen is an admin edit screen collecting meta boxes for Post.
type Screen struct {
	Post  *dbpkg.Post
	Boxes []Box
}

func (s *Screen) AddMetaBox(b Box) {
	s.Boxes = append(s.Boxes, b)
}

// Page is a template render point on the front end. Post is nil when the
// page is not editing a post.
type Page struct {
	Post          *dbpkg.Post
	CommunityEdit bool
	W             io.Writer
}

type Renderer struct {
	keys          Keys
	ticketEnabled func(postType string) bool
	tr            Translator
	log           zerolog.Logger
}

func NewRenderer(keys Keys, ticketEnabled func(postType string) bool, tr Translator, log zerolog.Logger) *Renderer {
	return &Renderer{keys: keys, ticketEnabled: ticketEnabled, tr: tr, log: log}
}

// AddEventAPIMetaBox adds the API key box to screens of ticket-enabled posts,
// provisioning a key first when the post has none.
func (r *Renderer) AddEventAPIMetaBox(ctx context.Context, s *Screen) error {
	if s.Post == nil || !r.ticketEnabled(s.Post.PostType) {
		return nil
	}

	r.ensureKey(ctx, s.Post.ID)

	var buf bytes.Buffer
	if err := r.RenderMetaBox(ctx, &buf, s.Post); err != nil {
		return err
	}

	p := r.tr.Printer(checkin.TextDomain)
	s.AddMetaBox(Box{
		ID:      BoxID,
		Title:   p.Sprintf("Event Check-in API"),
		Context: "side",
		Body:    template.HTML(buf.String()),
	})
	return nil
}

// RenderMetaBox writes the read-only key field and its help text. A post
// without a key renders an empty field.
func (r *Renderer) RenderMetaBox(ctx context.Context, w io.Writer, post *dbpkg.Post) error {
	key, err := r.keys.Key(ctx, post.ID)
	if err != nil {
		r.log.Warn().Err(err).Uint64("post_id", post.ID).Msg("failed to read event api key")
		key = ""
	}

	p := r.tr.Printer(checkin.TextDomain)
	link := `<a href="` + template.HTMLEscapeString(KnowledgeBaseURL) + `" target="_blank" rel="noopener noreferrer">` +
		template.HTMLEscapeString(p.Sprintf("QR Code App")) + `</a>`
	help := template.HTMLEscapeString(p.Sprintf("Copy this API into the %s to allow checkin for this Event Only.", linkPlaceholder))
	help = strings.Replace(help, linkPlaceholder, link, 1)

	return ui.Templates().ExecuteTemplate(w, "event_api_metabox", map[string]any{
		"APIKey": key,
		"Help":   template.HTML(help),
	})
}

// AddCommunityTicketsAPIBox renders the API key section on the community
// edit page. Other pages, and pages without a post, are left alone.
func (r *Renderer) AddCommunityTicketsAPIBox(ctx context.Context, pg *Page) error {
	if pg.Post == nil || !pg.CommunityEdit {
		return nil
	}

	r.ensureKey(ctx, pg.Post.ID)

	var box bytes.Buffer
	if err := r.RenderMetaBox(ctx, &box, pg.Post); err != nil {
		return err
	}

	p := r.tr.Printer(checkin.TextDomain)
	return ui.Templates().ExecuteTemplate(pg.W, "community_api_box", map[string]any{
		"Title": p.Sprintf("Event API Key"),
		"Box":   template.HTML(box.String()),
	})
}

// ensureKey provisions a key; a failure leaves the field empty.
func (r *Renderer) ensureKey(ctx context.Context, postID uint64) {
	if err := r.keys.EnsureKey(ctx, postID); err != nil {
		r.log.Error().Err(err).Uint64("post_id", postID).Msg("failed to provision event api key")
	}
}
