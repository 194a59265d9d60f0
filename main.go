// Entry point for the CTRCD risk serving shim
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cardioml/ctrcd-risk/utils"
	"github.com/rs/cors"
)

const serviceVersion = "v0.1.0"

func main() {
	args := os.Args[1:]

	configPath := ""
	portOverride := 0
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h", "--help", "help":
			printHelp()
			return
		case "--version", "-v":
			fmt.Println("ctrcd-risk version:", serviceVersion)
			return
		case "--config":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --config requires a file path")
				os.Exit(1)
			}
			i++
			configPath = args[i]
		case "--port":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --port requires a port number")
				os.Exit(1)
			}
			i++
			p, err := strconv.Atoi(args[i])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid port %q\n", args[i])
				os.Exit(1)
			}
			portOverride = p
		default:
			fmt.Fprintln(os.Stderr, "Unknown argument. Use --help for usage.")
			os.Exit(1)
		}
	}

	cfg, err := utils.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if portOverride != 0 {
		cfg.Server.Port = portOverride
	}

	if err := utils.InitLogger(cfg.Logging); err != nil {
		log.Printf("Failed to initialize logger: %v", err)
	}

	runServer(cfg)
}

func runServer(cfg *utils.Config) {
	server := NewServer(cfg)

	handler := server.Router()
	if cfg.Server.EnableCORS {
		c := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		})
		handler = c.Handler(handler)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		utils.GetLogger().Info("starting server",
			utils.String("addr", addr),
			utils.Component("server"))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	utils.GetLogger().Info("shutting down server", utils.Component("server"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server cleanup failed: %v", err)
	}

	utils.GetLogger().Info("server exited", utils.Component("server"))
}

func printHelp() {
	fmt.Println("Usage:")
	fmt.Println("  ctrcd-risk [--config <file>] [--port <port>]   Start the prediction server")
	fmt.Println("  -h, --help, help                               Show this help message")
	fmt.Println("  -v, --version                                  Show version")
	fmt.Println()
	fmt.Println("Environment overrides: CTRCD_HOST, CTRCD_PORT, CTRCD_MODEL_DIR,")
	fmt.Println("CTRCD_THRESHOLD, CTRCD_LOG_LEVEL")
}
