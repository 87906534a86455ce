package utils

import (
	"log"
	"strings"
	"unicode"

	"github.com/anoixa/image-theatre/config"
)

// LogIfDev 仅在开发环境输出日志
func LogIfDev(msg string) {
	if config.IsDevelopment() {
		log.Println(msg)
	}
}

// LogIfDevf 仅在开发环境输出格式化日志
func LogIfDevf(format string, args ...interface{}) {
	if config.IsDevelopment() {
		log.Printf(format, args...)
	}
}

func SanitizeLogMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == '\n' || r == '\t' {
			sb.WriteRune(' ')
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func SanitizeLogUsername(username string) string {
	if len(username) > 50 {
		username = username[:50] + "..."
	}
	return SanitizeLogMessage(username)
}
