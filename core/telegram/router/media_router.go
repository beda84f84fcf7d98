package router

import (
	"time"

	tg "github.com/akorchev/gptbot/core/telegram"
	"github.com/akorchev/gptbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MediaOptions declares the handlers media updates are routed to.
// Voice receives voice notes; Media receives every other recognized
// media kind (audio, video, video notes, documents).
type MediaOptions struct {
	Voice tele.HandlerFunc
	Media tele.HandlerFunc
}

// MediaRoutes binds media endpoints to the provided handlers, wrapped with
// the shared recover and logging middleware.
func MediaRoutes(opts MediaOptions) []tg.Route {
	wrap := func(name string, h tele.HandlerFunc) tele.HandlerFunc {
		inner := func(c tele.Context) error {
			start := time.Now()
			if h == nil {
				logHandlerSummary(c, name, start, "skip", "ok", nil)
				return nil
			}
			return handleWithSummary(c, name, start, "", "", func() error {
				return h(c)
			})
		}
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(inner))
	}

	routes := []tg.Route{
		{Endpoint: tele.OnVoice, Handler: wrap("voice", opts.Voice)},
	}
	for _, ep := range []string{tele.OnAudio, tele.OnVideo, tele.OnVideoNote, tele.OnDocument} {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: wrap("media", opts.Media)})
	}
	return routes
}
