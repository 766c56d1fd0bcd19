package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sofia-backend/internal/api"
	"sofia-backend/internal/config"
	"sofia-backend/internal/crypto"
	"sofia-backend/internal/handlers"
	"sofia-backend/internal/llm"
	"sofia-backend/internal/mail"
	"sofia-backend/internal/search"
	"sofia-backend/internal/services"
	"sofia-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	log.Println("Starting Sofia Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Database Connection Pool
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(dbCtx); err != nil {
		log.Fatalf("FATAL: Unable to ping database: %v\n", err)
	}
	log.Println("Database connection pool established and pinged successfully.")

	// 3. Initialize Dependencies (Store, Services, Handlers)
	pgStore := postgres.NewPostgresStore(dbpool)
	log.Println("Postgres store initialized.")

	aead, err := crypto.NewAESGCM(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("FATAL: Failed to create AES-GCM cipher: %v", err)
	}
	log.Println("AES-GCM cipher initialized.")

	// --- LLM Provider Registry ---
	llmRegistry := llm.NewRegistry()
	if cfg.GeminiAPIKey != "" {
		llmRegistry.Register(llm.NewGeminiProvider(cfg.GeminiAPIKey, ""))
	}
	if cfg.GroqAPIKey != "" {
		llmRegistry.Register(llm.NewGroqProvider(cfg.GroqAPIKey, ""))
	}
	log.Println("LLM provider registry initialized and populated.")

	searchClient := search.NewClient(cfg.SerperAPIKey)
	mailer := mail.NewMailer(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailSender, cfg.MailEnabled)

	// --- Initialize Services ---
	authService := services.NewAuthService(pgStore, cfg, mailer)
	log.Println("AuthService initialized.")
	userService := services.NewUserService(pgStore, cfg)
	log.Println("UserService initialized.")
	chatService := services.NewChatService(llmRegistry, searchClient, userService, cfg.LLMProvider)
	log.Println("ChatService initialized.")
	historyService := services.NewHistoryService(pgStore)
	log.Println("HistoryService initialized.")
	libraryService := services.NewLibraryService(pgStore, aead)
	log.Println("LibraryService initialized.")

	// --- Initialize Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	userHandlers := handlers.NewUserHandlers(userService)
	chatHandlers := handlers.NewChatHandlers(chatService)
	historyHandlers := handlers.NewHistoryHandlers(historyService)
	libraryHandlers := handlers.NewLibraryHandlers(libraryService)
	log.Println("Handlers initialized.")

	// 4. Setup Router & Inject Dependencies
	routerDeps := api.RouterDependencies{
		Config:          cfg,
		Store:           pgStore,
		AuthHandler:     authHandler,
		UserHandlers:    userHandlers,
		ChatHandlers:    chatHandlers,
		HistoryHandlers: historyHandlers,
		LibraryHandlers: libraryHandlers,
	}
	router := api.NewRouter(routerDeps)
	log.Println("HTTP router configured.")

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Production hardening: Set timeouts to avoid Slowloris attacks
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second, // AI responses can take a while
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
		log.Fatal("Forcing shutdown due to error.")
	}

	log.Println("Server shutdown complete.")
}
