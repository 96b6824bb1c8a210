package main

import (
	"github.com/rs/zerolog/log"

	"github.com/E011011101001/HEAL-backend/internal/chatbot"
	"github.com/E011011101001/HEAL-backend/internal/config"
	"github.com/E011011101001/HEAL-backend/internal/db"
	"github.com/E011011101001/HEAL-backend/internal/enrich"
	"github.com/E011011101001/HEAL-backend/internal/langsvc"
	clog "github.com/E011011101001/HEAL-backend/internal/log"
	"github.com/E011011101001/HEAL-backend/internal/server"
	"github.com/E011011101001/HEAL-backend/internal/service"
	"github.com/E011011101001/HEAL-backend/internal/store"
	"github.com/E011011101001/HEAL-backend/internal/ws"
)

func main() {
	// main 负责加载配置、初始化日志、连接数据库并把各层装配起来。
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	clog.Init(cfg.Env)

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}
	if cfg.SeedDemo {
		if err := db.SeedDemo(gdb); err != nil {
			log.Fatal().Err(err).Msg("db seed")
		}
	}

	users := store.NewUserStore(gdb)
	rooms := store.NewRoomStore(gdb)
	messages := store.NewMessageStore(gdb)
	terms := store.NewTermStore(gdb)
	history := store.NewHistoryStore(gdb, terms)

	lang := langsvc.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel)
	bots := chatbot.NewPool(lang)
	catalog := enrich.NewCatalog(terms, lang)
	enricher := enrich.NewEnricher(catalog, messages, lang, cfg.LangTimeout)

	sessions := ws.NewSessionManager(users, rooms, cfg.JWTSecret)
	router := ws.NewMessageRouter(sessions, messages, rooms, users, enricher, bots)
	hub := ws.NewHub(router)
	defer hub.Shutdown()

	handlers := server.NewHandlers(cfg,
		service.NewUserService(cfg, gdb, users),
		service.NewRoomService(rooms, users, bots),
		service.NewMessageService(rooms, messages, terms),
		service.NewTermService(terms),
		service.NewHistoryService(users, terms, history),
	)

	r := server.SetupRouter(cfg, gdb, handlers, hub, sessions)
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
