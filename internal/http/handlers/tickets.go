package handlers

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"gorm.io/datatypes"

	"eventcheckin/internal/config"
	dbpkg "eventcheckin/internal/db"
	"eventcheckin/internal/extension"
	"eventcheckin/internal/hooks"
)

var validate = validator.New()

type createTicketRequest struct {
	Name       string         `json:"name" validate:"required,max=128"`
	Provider   string         `json:"provider" validate:"omitempty,oneof=rsvp tribe-commerce woo edd"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// CreateTicket adds a ticket to an event and fires the ticket-added action,
// which provisions the event's API key.
func CreateTicket(store Store, reg *hooks.Registry, cfg *config.Config, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		eventID, ok := pathID(ctx)
		if !ok {
			return
		}

		var req createTicketRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := validate.Struct(req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid ticket: "+err.Error())
			return
		}
		if req.Provider == "" {
			req.Provider = "rsvp"
		}

		post, err := store.GetPost(ctx, eventID)
		if err != nil {
			if errors.Is(err, dbpkg.ErrPostNotFound) {
				errResponse(ctx, fasthttp.StatusNotFound, "event not found")
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load event")
			return
		}
		if !cfg.TicketEnabled(post.PostType) {
			errResponse(ctx, fasthttp.StatusBadRequest, "tickets are not enabled for post type "+post.PostType)
			return
		}

		ticket := &dbpkg.Ticket{
			EventID:    eventID,
			Name:       req.Name,
			Provider:   req.Provider,
			Attributes: datatypes.JSONMap(req.Attributes),
		}
		if err := store.CreateTicket(ctx, ticket); err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist ticket")
			return
		}
		ticketsAdded.WithLabelValues(ticket.Provider).Inc()

		added := extension.TicketAdded{EventID: eventID, TicketID: ticket.ID}
		if err := hooks.DoAction(ctx, reg, extension.ActionTicketAdded, added); err != nil {
			log.Error().Err(err).Uint64("event_id", eventID).Uint64("ticket_id", ticket.ID).Msg("ticket added action failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "ticket saved but event api key could not be provisioned")
			return
		}

		jsonResponse(ctx, fasthttp.StatusCreated, map[string]any{
			"id":       ticket.ID,
			"event_id": ticket.EventID,
			"name":     ticket.Name,
			"provider": ticket.Provider,
		})
	}
}
