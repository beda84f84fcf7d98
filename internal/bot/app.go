package bot

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	coretelegram "github.com/akorchev/gptbot/core/telegram"
	"github.com/akorchev/gptbot/core/telegram/commands"
	"github.com/akorchev/gptbot/core/telegram/router"
	tgsender "github.com/akorchev/gptbot/core/telegram/sender"
	"github.com/akorchev/gptbot/internal/credentials"
	"github.com/akorchev/gptbot/internal/dialog"
	"github.com/akorchev/gptbot/internal/openai"
)

// App wires the dialogue machine, the credential store and the OpenAI
// client into a runnable Telegram bot.
type App struct {
	cfg *AppConfig
	db  *sqlx.DB

	sessions   *dialog.Registry
	machine    *dialog.Machine
	dispatcher *tgsender.Dispatcher
}

// New builds the application. The cipher is constructed first so that a
// missing or malformed encryption key fails startup instead of failing the
// first user.
func New(cfg *AppConfig, db *sqlx.DB) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config")
	}

	cipher, err := credentials.NewCipher(cfg.Store.EncryptionKey)
	if err != nil {
		return nil, err
	}
	store, err := credentials.NewPostgres(db, cipher)
	if err != nil {
		return nil, err
	}

	client := openai.NewClient(cfg.OpenAI)

	return &App{
		cfg:      cfg,
		db:       db,
		sessions: dialog.NewRegistry(),
		machine:  dialog.NewMachine(store, assistant{client: client}),
	}, nil
}

// TelegramRunOptions assembles the registry, routes and middleware chain.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Restart the bot and show the menu",
	})
	reg.RegisterCommand("/apikey", commands.Command{
		Handler:     a.handleAPIKeyCommand,
		Description: "Set your OpenAI API key",
		Hidden:      true,
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleStats,
		Description: "Runtime statistics",
		AdminOnly:   true,
		Hidden:      true,
	})

	if err := reg.RegisterCallback(cbImageCount, a.handleImageCountCallback); err != nil {
		return coretelegram.RunOptions{}, err
	}
	if err := reg.RegisterCallback(cbImageSize, a.handleImageSizeCallback); err != nil {
		return coretelegram.RunOptions{}, err
	}
	reg.SetTextFallback(a.handleText)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(fsmAdapter{app: a}, reg, router.TextOptions{
		UnknownText: a.handleText,
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.MediaRoutes(router.MediaOptions{
		Voice: a.handleVoice,
		Media: a.handleMedia,
	})...)

	a.dispatcher = tgsender.NewDispatcher(tgsender.Options{})

	return coretelegram.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    reg,
		Dispatcher:  a.dispatcher,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
	}, nil
}

// fsmAdapter exposes the session registry as the text router's dialogue
// manager: any chat mid-flow sends every text to the machine.
type fsmAdapter struct {
	app *App
}

func (f fsmAdapter) InProgress(userID int64) bool {
	return f.app.sessions.InProgress(userID)
}

func (f fsmAdapter) ManagerHandler(c tele.Context) error {
	return f.app.handleText(c)
}
