package utils

import (
	"fmt"
	"log"
	"time"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorGray   = "\033[90m"
)

func logWithLevel(levelColor, level, component, message string, args ...interface{}) {
	formattedMessage := message
	if len(args) > 0 {
		formattedMessage = fmt.Sprintf(message, args...)
	}
	log.Printf("%s[%s]%s %s[%s]%s %s",
		levelColor, level, ColorReset,
		ColorCyan, component, ColorReset,
		formattedMessage)
}

func LogInfo(component, message string, args ...interface{}) {
	logWithLevel(ColorWhite, "INFO", component, message, args...)
}

func LogSuccess(component, message string, args ...interface{}) {
	logWithLevel(ColorGreen, "SUCCESS", component, message, args...)
}

func LogWarning(component, message string, args ...interface{}) {
	logWithLevel(ColorYellow, "WARNING", component, message, args...)
}

func LogDebug(component, message string, args ...interface{}) {
	logWithLevel(ColorPurple, "DEBUG", component, message, args...)
}

func LogError(component, message string, err error) {
	if err != nil {
		log.Printf("%s[ERROR]%s %s[%s]%s %s: %s%v%s",
			ColorRed, ColorReset,
			ColorCyan, component, ColorReset,
			message,
			ColorRed, err, ColorReset)
	} else {
		logWithLevel(ColorRed, "ERROR", component, message)
	}
}

func LogDB(operation, detail string) {
	log.Printf("%s[DB]%s %s[%s]%s %s",
		ColorGray, ColorReset,
		ColorWhite, operation, ColorReset,
		detail)
}

func LogResponse(path string, statusCode int, duration time.Duration) {
	color := ColorGreen
	if statusCode >= 400 && statusCode < 500 {
		color = ColorYellow
	} else if statusCode >= 500 {
		color = ColorRed
	}

	log.Printf("%s[RESPONSE]%s %s | Status: %s%d%s | Duration: %s%v%s",
		ColorGray, ColorReset,
		path,
		color, statusCode, ColorReset,
		ColorWhite, duration, ColorReset)
}
