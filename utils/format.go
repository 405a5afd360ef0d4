package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatPoints renders a point amount with thousands separators ("1,250").
func FormatPoints(points int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", points)
}
