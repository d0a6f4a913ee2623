// Package format renders ledger values for display: truncated addresses,
// scaled balances, and input validation shared with dashboard clients.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Address truncates an address to its first and last length characters,
// joined by an ellipsis. Short addresses pass through unchanged.
func Address(address string, length int) string {
	if address == "" {
		return ""
	}
	if length <= 0 {
		length = 8
	}
	if len(address) <= length*2 {
		return address
	}
	return address[:length] + "..." + address[len(address)-length:]
}

// Balance renders a raw balance string with K/M scaling. Unparseable input
// renders as "0".
func Balance(balance string) string {
	value, err := strconv.ParseFloat(strings.TrimSpace(balance), 64)
	if err != nil {
		return "0"
	}

	switch {
	case value == 0:
		return "0"
	case value < 0.001:
		return "<0.001"
	case value < 1:
		return strconv.FormatFloat(value, 'f', 3, 64)
	case value < 1000:
		return strconv.FormatFloat(value, 'f', 2, 64)
	case value < 1000000:
		return fmt.Sprintf("%.1fK", value/1000)
	default:
		return fmt.Sprintf("%.1fM", value/1000000)
	}
}

// Timestamp renders an epoch-millisecond timestamp in the dashboard's
// date style.
func Timestamp(epochMillis int64) string {
	return time.UnixMilli(epochMillis).Format("Jan 2, 2006 15:04")
}

// ValidProductID reports whether id is a positive decimal integer.
func ValidProductID(id string) bool {
	n, err := strconv.Atoi(id)
	return err == nil && n > 0
}

// ValidMetadata reports whether metadata has at least three meaningful
// characters.
func ValidMetadata(metadata string) bool {
	return len(strings.TrimSpace(metadata)) >= 3
}
