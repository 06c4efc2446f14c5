package handlers

import (
	"crypto/subtle"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"eventcheckin/internal/checkin"
	"eventcheckin/internal/config"
	"eventcheckin/internal/extension"
	"eventcheckin/internal/hooks"
)

// ValidateQR answers whether the api_key of a scanner request may check in
// tickets for event_id. The site-wide key is checked first; the
// requested-api-is-valid filter chain then gets the chance to accept it.
func ValidateQR(reg *hooks.Registry, cfg *config.Config, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var qr checkin.QRData
		if err := json.Unmarshal(ctx.PostBody(), &qr); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}

		valid := defaultValidity(cfg, qr)
		if valid {
			checkinValidations.WithLabelValues("global").Inc()
		}

		filtered, err := hooks.ApplyFilters(ctx, reg, extension.FilterRequestedAPIIsValid, valid, qr)
		if err != nil {
			log.Error().Err(err).Uint64("event_id", qr.EventID).Msg("api key validation failed")
			checkinValidations.WithLabelValues("error").Inc()
			errResponse(ctx, fasthttp.StatusInternalServerError, "validation failed")
			return
		}

		switch {
		case filtered && !valid:
			checkinValidations.WithLabelValues("event").Inc()
		case !filtered:
			checkinValidations.WithLabelValues("rejected").Inc()
		}

		jsonResponse(ctx, fasthttp.StatusOK, map[string]any{"valid": filtered})
	}
}

func defaultValidity(cfg *config.Config, qr checkin.QRData) bool {
	if cfg.GlobalAPIKey == "" || qr.APIKey == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*qr.APIKey), []byte(cfg.GlobalAPIKey)) == 1
}
