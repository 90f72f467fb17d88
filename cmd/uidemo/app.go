package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/gobot-ui/core/bootstrap"
	"github.com/m3rciful/gobot-ui/core/cmd"
	coreconfig "github.com/m3rciful/gobot-ui/core/config"
	"github.com/m3rciful/gobot-ui/core/logger"
	"github.com/m3rciful/gobot-ui/core/payload"
	tg "github.com/m3rciful/gobot-ui/core/telegram"
	"github.com/m3rciful/gobot-ui/core/telegram/commands"
	"github.com/m3rciful/gobot-ui/core/telegram/deeplink"
	"github.com/m3rciful/gobot-ui/core/telegram/layout"
	"github.com/m3rciful/gobot-ui/core/telegram/middleware"
	"github.com/m3rciful/gobot-ui/core/telegram/router"
	"github.com/m3rciful/gobot-ui/core/telegram/state"
	"github.com/m3rciful/gobot-ui/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

type app struct {
	cfg     *coreconfig.Config
	infra   *bootstrap.Result
	reg     *tg.Registry
	manager *state.Manager
	cache   *state.Cache
}

func newApp(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()
	infra, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		infra:   infra,
		reg:     tg.NewRegistry(),
		manager: state.NewManager(infra.Storage),
		cache:   state.NewCache(cfg.Layout.CacheSize, cfg.Layout.CacheTTL),
	}, nil
}

func (a *app) TelegramRunOptions() (tg.RunOptions, error) {
	mws := append(tg.DefaultMiddlewares(a.cfg, nil), tg.Middleware{
		Name: "session",
		Use:  state.WithSessionCache(a.infra.Storage, a.cache),
	})
	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    a.reg,
		Middlewares: mws,
		Wire:        a.wire,
		OnStop: func(ctx context.Context, _ tg.Runtime) error {
			return a.infra.Close()
		},
	}, nil
}

// wire registers everything that needs the bot identity: layout rendering edits
// only messages sent by this bot, and deep links need its username.
func (a *app) wire(ctx context.Context, bot *tele.Bot, reg *tg.Registry) ([]tg.Middleware, []tg.Route, error) {
	username := a.cfg.Telegram.Username
	if username == "" && bot.Me != nil {
		username = bot.Me.Username
	}
	var botID int64
	if bot.Me != nil {
		botID = bot.Me.ID
	}

	lm := &layout.Middleware{
		Bot:      bot,
		BotID:    botID,
		Handlers: layout.NewHandlers(),
		Storage:  a.infra.Storage,
		Cache:    a.cache,
	}
	sc := newSchemas(a.cfg.Payload.CallbackSeparator, a.cfg.Payload.DeepLinkSeparator)
	s := &screens{schemas: sc, username: username}

	menu := lm.Named(screenMenu, s.menu)
	lm.Handlers.Add(screenDateDone, s.dateDone)

	reg.RegisterCommand("/start", commands.Command{Handler: menu, Description: "Open the main menu"})
	reg.RegisterCommand("/menu", commands.Command{Handler: menu, Description: "Open the main menu", Hidden: true})

	err := errors.Join(
		reg.RegisterCallback(menuData.String(), menu),
		reg.RegisterCallback(dateAskData.String(), lm.Named("date.ask", s.askDate)),
		reg.RegisterCallback(dateCancelData.String(),
			middleware.InState(stateAwaitDate)(lm.Named("date.cancel", s.cancelDate))),
		reg.RegisterCallbackMatcher("page", sc.page, lm.Named("page", s.page)),
		reg.RegisterCallbackMatcher("item", sc.item.Schema, lm.Named("item", s.item)),
		reg.RegisterCallbackMatcher("remind", sc.remind, s.remind),
		reg.RegisterStart("referral", sc.referral, func(r payload.Record) bool {
			from, err := r.Int("from")
			return err == nil && from > 0
		}, lm.Named("referral", s.referral)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("register routes: %w", err)
	}
	a.manager.RegisterHandler(stateAwaitDate, lm.Handle(s.enterDate))

	textOpts := ui.BindFallbacks(reg, fallbacks{})

	routes := []tg.Route{
		router.StartRoute(reg, router.StartOptions{}),
		router.CallbackRoute(reg, router.CallbackOptions{}),
		{Endpoint: tele.OnQuery, Handler: a.shareArticle(username, sc)},
	}
	routes = append(routes, router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: a.cfg.Telegram.AdminID})...)
	routes = append(routes, router.TextRoutes(a.manager, reg, textOpts)...)

	logger.Info(ctx, "app", "wired",
		slog.String("username", username),
		slog.Int("layouts", len(lm.Handlers.Names())),
		slog.String("storage", a.cfg.Storage.Driver),
	)
	return []tg.Middleware{{Name: "layout", Use: lm.Use}}, routes, nil
}

// shareArticle answers inline queries with an invitation carrying the sender's
// referral deep link.
func (a *app) shareArticle(username string, sc schemas) tele.HandlerFunc {
	return func(c tele.Context) error {
		if username == "" || c.Sender() == nil {
			return c.Answer(&tele.QueryResponse{})
		}
		link, err := deeplink.URL(username, sc.referral, c.Sender().ID)
		if err != nil {
			return err
		}
		article, err := ui.NewShareArticle("invite", "Invite to the catalog",
			"Browse the catalog with me!", "Open the bot", link)
		if err != nil {
			return err
		}
		return c.Answer(&tele.QueryResponse{
			Results:    tele.Results{article},
			CacheTime:  60,
			IsPersonal: true,
		})
	}
}
