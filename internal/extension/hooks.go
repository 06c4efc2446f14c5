package extension

import (
	"context"

	"github.com/rs/zerolog"

	"eventcheckin/internal/checkin"
	"eventcheckin/internal/hooks"
	"eventcheckin/internal/i18n"
	"eventcheckin/internal/metabox"
)

// Hook names the host dispatches on.
const (
	ActionTicketAdded         = "tickets.ticket_added"
	ActionAddMetaBoxes        = "admin.add_meta_boxes"
	ActionCommunityTickets    = "community.template_part.tickets"
	ActionLoadTextDomains     = "extension.load_text_domains"
	FilterRequestedAPIIsValid = "tickets_plus.requested_api_is_valid"
)

// TicketAdded is the argument of ActionTicketAdded.
type TicketAdded struct {
	EventID  uint64
	TicketID uint64
}

// Provider binds the extension's callbacks to hook names.
type Provider struct {
	checkin *checkin.Handler
	boxes   *metabox.Renderer
	langDir string
	log     zerolog.Logger
}

func NewProvider(h *checkin.Handler, boxes *metabox.Renderer, langDir string, log zerolog.Logger) *Provider {
	return &Provider{checkin: h, boxes: boxes, langDir: langDir, log: log}
}

// Register adds all actions and filters to reg. The returned handles can be
// passed to reg.Remove to unhook a single callback.
func (p *Provider) Register(reg *hooks.Registry) []hooks.Handle {
	return []hooks.Handle{
		hooks.AddAction(reg, ActionLoadTextDomains, hooks.DefaultPriority, p.loadTextDomains),
		hooks.AddAction(reg, ActionTicketAdded, hooks.DefaultPriority, p.ticketAdded),
		hooks.AddAction(reg, ActionAddMetaBoxes, hooks.DefaultPriority, p.boxes.AddEventAPIMetaBox),
		hooks.AddAction(reg, ActionCommunityTickets, hooks.DefaultPriority, p.boxes.AddCommunityTicketsAPIBox),
		hooks.AddFilter(reg, FilterRequestedAPIIsValid, hooks.DefaultPriority, p.checkin.IsValid),
	}
}

func (p *Provider) ticketAdded(ctx context.Context, t TicketAdded) error {
	if err := p.checkin.EnsureKey(ctx, t.EventID); err != nil {
		return err
	}
	p.log.Debug().Uint64("event_id", t.EventID).Uint64("ticket_id", t.TicketID).Msg("event api key ensured")
	return nil
}

func (p *Provider) loadTextDomains(ctx context.Context, l *i18n.Loader) error {
	return l.LoadTextDomain(checkin.TextDomain, p.langDir)
}
