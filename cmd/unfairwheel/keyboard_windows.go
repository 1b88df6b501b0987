//go:build windows
// +build windows

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dilbagh/theunfairwheel/internal/logger"
)

// listenForKeyboard listens for keyboard input on Windows. Terminal raw
// mode is more involved than the unix/darwin ioctl calls, so this falls
// back to simple line-based reading, matching what the teacher does here.
func listenForKeyboard(appLog *logger.SlogLogger) {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			continue
		}

		switch strings.ToLower(string(buf[0])) {
		case "h":
			if appLog.IsHTTPLoggingEnabled() {
				appLog.DisableHTTPLogging()
				fmt.Printf("%sHTTP logging disabled%s\n", yellow, reset)
			} else {
				appLog.EnableHTTPLogging()
				fmt.Printf("%sHTTP logging enabled%s\n", green, reset)
			}
		case "l":
			cycleLogLevel(appLog)
		case "q":
			fmt.Printf("%sShutting down server...%s\n", yellow, reset)
			os.Exit(0)
		case "?":
			printKeyboardHelp()
		}
	}
}
