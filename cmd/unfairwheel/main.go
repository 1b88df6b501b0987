package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dilbagh/theunfairwheel/internal/app"
	"github.com/dilbagh/theunfairwheel/internal/config"
	"github.com/dilbagh/theunfairwheel/internal/logger"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	green  = "\033[32m"
	bold   = "\033[1m"
)

// showStartupBanner prints a small logo, deliberately plain next to the
// teacher's race animation — there's no derby to animate here.
func showStartupBanner() {
	width := 44
	border := ""
	for i := 0; i < width; i++ {
		border += "═"
	}
	logo := []string{
		" _____ _          _   _       __       _      ",
		"|_   _| |_ ___    | | | |_ __ / _| __ _(_)_ __ ",
		"  | | | __/ _ \\   | | | | '_ \\| |_ / _` | | '__|",
		"  | | | ||  __/   | |_| | | | |  _| (_| | | |   ",
		"  |_|  \\__\\___|    \\___/|_| |_|_|  \\__,_|_|_|   ",
		"              Wheel                             ",
	}

	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		for len(line) < width {
			line += " "
		}
		fmt.Printf("  %s║%s%s%s║%s\n", cyan, yellow, line[:width], cyan, reset)
	}
	fmt.Printf("  %s╚%s╝%s\n\n", cyan, border, reset)
}

var version = "dev"

// cycleLogLevel cycles through debug -> info -> warn -> error.
func cycleLogLevel(appLog *logger.SlogLogger) {
	current := appLog.GetLevel()
	var next string

	switch current.String() {
	case "DEBUG":
		next = "info"
	case "INFO":
		next = "warn"
	case "WARN":
		next = "error"
	case "ERROR":
		next = "debug"
	default:
		next = "info"
	}

	appLog.SetLevel(logger.ParseLevel(next))
	fmt.Printf("%sLog level: %s%s%s\n", green, yellow, next, reset)
}

// printKeyboardHelp displays all available keyboard shortcuts.
func printKeyboardHelp() {
	fmt.Printf("\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	fmt.Printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Printf("    %sq%s      - Quit server\n", cyan, reset)
	fmt.Printf("    %s?%s      - Show this help\n\n", cyan, reset)
}

func main() {
	port := flag.Int("port", 8081, "HTTP server port")
	dbPath := flag.String("db", "unfairwheel.db", "checkpoint database path")
	redisAddr := flag.String("redis", "", "metadata store Redis address (overrides METADATA_REDIS_ADDR)")
	authSecret := flag.String("authsecret", "", "JWT signing secret (overrides AUTH_SECRET)")
	frontendOrigin := flag.String("frontend-origin", "", "allowed frontend origin for CORS (overrides FRONTEND_ORIGIN)")
	logLevel := flag.String("loglevel", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	noKeyboard := flag.Bool("nokeyboard", false, "disable keyboard shortcuts")
	showVersion := flag.Bool("version", false, "show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `The Unfair Wheel - weighted random picker for small groups

Usage:
  unfairwheel [options]

Options:
  -port int             HTTP server port (default 8081)
  -db string             checkpoint database path (default "unfairwheel.db")
  -redis string          metadata store Redis address
  -authsecret string     JWT signing secret
  -frontend-origin str   allowed frontend origin for CORS
  -loglevel string       log level: debug, info, warn, error (default "info")
  -nokeyboard            disable keyboard shortcuts
  -version               show version and exit
  -help                  show this help message

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("unfairwheel %s\n", version)
		os.Exit(0)
	}

	showStartupBanner()

	cfg := config.Load()
	if *redisAddr != "" {
		cfg.MetadataRedisAddr = *redisAddr
	}
	if *authSecret != "" {
		cfg.AuthSecret = *authSecret
	}
	if *frontendOrigin != "" {
		cfg.FrontendOrigin = *frontendOrigin
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	cfg.CheckpointDBPath = *dbPath

	appLog := logger.NewWithLevel(logger.ParseLevel(cfg.LogLevel))

	a, err := app.New(appLog, cfg)
	if err != nil {
		log.Fatal("failed to initialize application:", err)
	}
	defer a.Close()

	addr := fmt.Sprintf(":%d", *port)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Run(addr)
	}()

	time.Sleep(100 * time.Millisecond)

	if !*noKeyboard {
		printKeyboardHelp()
		go listenForKeyboard(appLog)
	} else {
		fmt.Printf("\n%skeyboard shortcuts disabled%s\n\n", yellow, reset)
	}

	if err := <-serverErr; err != nil {
		log.Fatal(err)
	}
}
