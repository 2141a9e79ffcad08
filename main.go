package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	contractx "github.com/tinyagents/tinyagents-bot/bot/contract"
	ledgerx "github.com/tinyagents/tinyagents-bot/bot/ledger"
	paymentx "github.com/tinyagents/tinyagents-bot/bot/payment"
	routerx "github.com/tinyagents/tinyagents-bot/bot/router"
	webhookx "github.com/tinyagents/tinyagents-bot/bot/webhook"
	configx "github.com/tinyagents/tinyagents-bot/pkg/config"
	groqx "github.com/tinyagents/tinyagents-bot/pkg/groq"
	_ "github.com/tinyagents/tinyagents-bot/pkg/logger/autoload"
	telegramx "github.com/tinyagents/tinyagents-bot/pkg/telegram"
)

type AppConfig struct {
	Addr          string `envconfig:"ADDR" default:":8080"`
	LedgerBackend string `envconfig:"LEDGER_BACKEND" default:"supabase"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")

	telegramCfg := configx.MustNew[telegramx.Config]("TELEGRAM")
	bot := telegramx.MustNew(*telegramCfg)

	groqCfg := configx.MustNew[groqx.Config]("GROQ")
	generator := groqx.MustNew(*groqCfg)

	ledger := newLedger(appCfg.LedgerBackend)

	paymentCfg := configx.MustNew[paymentx.Config]("STRIPE")
	if missing := paymentCfg.MissingConfig(); len(missing) > 0 {
		log.Warn().Strs("missing", missing).Msg("payment is not fully configured; /buy and credit grants will fail until these are set")
	}
	checkout := paymentx.NewCheckout(*paymentCfg, nil)
	events := paymentx.NewEvents(*paymentCfg, ledger)

	router := routerx.New(ledger, generator, checkout, bot)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodPost, "/api/telegram", webhookx.NewTelegramHandler(router))
	r.Method(http.MethodPost, "/api/stripe", webhookx.NewStripeHandler(events))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	log.Info().Str("addr", appCfg.Addr).Str("ledger_backend", appCfg.LedgerBackend).Msg("tiny agents bot listening")
	if err := http.ListenAndServe(appCfg.Addr, r); err != nil {
		log.Fatal().Err(err).Msg("http server stopped")
	}
}

func newLedger(backend string) contractx.Ledger {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "postgres":
		cfg := configx.MustNew[ledgerx.PostgresConfig]("POSTGRES")
		store, err := ledgerx.NewPostgresStore(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres ledger init failed")
		}
		return store
	case "supabase", "":
		cfg := configx.MustNew[ledgerx.SupabaseConfig]("SUPABASE")
		store, err := ledgerx.NewSupabaseStore(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("supabase ledger init failed")
		}
		return store
	default:
		log.Fatal().Str("backend", backend).Msg("unknown ledger backend")
		return nil
	}
}
