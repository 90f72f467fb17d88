package router

import (
	"log/slog"
	"sort"

	"github.com/m3rciful/gobot-ui/core/logger"
	tg "github.com/m3rciful/gobot-ui/core/telegram"
	"github.com/m3rciful/gobot-ui/core/telegram/commands"
	"github.com/m3rciful/gobot-ui/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes binds every registered command and its slash aliases, sorted by
// name. When deep-link routes exist, /start is left to StartRoute.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	all := reg.Commands()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	var routes []tg.Route
	for _, name := range names {
		if name == "/start" && reg.HasStartRoutes() {
			continue
		}
		cmd := all[name]
		h := middleware.LoggerMiddleware(middleware.RecoverMiddleware(cmd.Handler))
		if cmd.AdminOnly {
			h = admin(h)
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range cmd.Aliases {
			if a := commands.Normalize(alias); a != name && all[a].Handler == nil {
				routes = append(routes, tg.Route{Endpoint: a, Handler: h})
			}
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "commands"),
		slog.Int("commands", len(names)),
		slog.Int("routes", len(routes)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
