package utils

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
)

var (
	infoColor  = color.New(color.FgCyan)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	debugColor = color.New(color.FgHiBlack)

	logger = log.New(os.Stdout, "", log.Ldate|log.Ltime)

	// DebugEnabled turns LogDebug on; set from LOG_DEBUG at startup.
	DebugEnabled bool
)

// LogInfo prints an informational line in cyan.
func LogInfo(format string, v ...interface{}) {
	logger.Print(infoColor.Sprintf("[INFO] %s", fmt.Sprintf(format, v...)))
}

// LogWarn prints a warning in yellow.
func LogWarn(format string, v ...interface{}) {
	logger.Print(warnColor.Sprintf("[WARN] %s", fmt.Sprintf(format, v...)))
}

// LogError prints an error in red.
func LogError(format string, v ...interface{}) {
	logger.Print(errorColor.Sprintf("[ERROR] %s", fmt.Sprintf(format, v...)))
}

// LogDebug prints a debug line in gray when DebugEnabled is set.
func LogDebug(format string, v ...interface{}) {
	if !DebugEnabled {
		return
	}
	logger.Print(debugColor.Sprintf("[DEBUG] %s", fmt.Sprintf(format, v...)))
}
