package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agentchat/internal/agent"
	"agentchat/internal/auth"
	"agentchat/internal/chat"
	"agentchat/internal/config"
	"agentchat/internal/db"
	"agentchat/internal/httpapi"
	"agentchat/internal/provider"
	"agentchat/internal/roles"
	"agentchat/internal/session"
	"agentchat/internal/store"
	"agentchat/internal/tavily"
	"agentchat/internal/user"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	database, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	gateway, err := provider.New(cfg, nil)
	if err != nil {
		log.Fatalf("configure providers: %v", err)
	}

	searcher := tavily.NewClient(cfg, nil)
	if !searcher.Configured() {
		log.Printf("TAVILY_API_KEY is not set; web search requests will fail")
	}

	chatStore := store.New(database)
	catalog := roles.New()
	orchestrator := agent.New(gateway, catalog, searcher, cfg.SearchMaxResults)
	interactor := chat.NewInteractor(chatStore, session.NewManager(chatStore), orchestrator, gateway, catalog)

	handler := httpapi.NewHandler(
		user.NewStore(database),
		auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		interactor,
	)

	srv := &http.Server{
		Addr:         cfg.ListenAddress(),
		Handler:      httpapi.NewRouter(cfg, handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 130 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("api listening on %s", cfg.ListenAddress())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
