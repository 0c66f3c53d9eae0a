package utils

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TruncateString truncates string to specified length
func TruncateString(s string, length int) string {
	if length <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	if length <= 3 {
		return string(runes[:length])
	}
	return string(runes[:length-3]) + "..."
}

// ShortenAddress renders a wallet address as 0x1234...abcd
func ShortenAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// RoundToDecimal rounds value to specified decimal places
func RoundToDecimal(value float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(value*shift) / shift
}

// FormatAmount formats a token amount without trailing zeros
func FormatAmount(amount float64) string {
	s := fmt.Sprintf("%.6f", RoundToDecimal(amount, 6))
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// FormatMoney renders value with two decimals and thousands separators
func FormatMoney(value float64) string {
	s := fmt.Sprintf("%.2f", math.Abs(RoundToDecimal(value, 2)))
	whole, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	if value < 0 && s != "0.00" {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}

// FormatPercent renders a ratio such as 0.085 as 8.50%
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

// RemoveDuplicate removes duplicate strings, keeping the first occurrence
func RemoveDuplicate(slice []string) []string {
	seen := make(map[string]bool, len(slice))
	result := make([]string, 0, len(slice))
	for _, item := range slice {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}

// FormatTime formats time to standard format
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
