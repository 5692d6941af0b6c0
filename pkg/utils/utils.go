package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

func TruncateString(str string, num int) string {
	if len(str) <= num {
		return str
	}
	if num <= 3 {
		return str[:num]
	}
	return str[0:num-3] + "..."
}

// TruncateAddress keeps the first start and last end characters of an
// address. Addresses that already fit are returned unmodified.
func TruncateAddress(address string, start, end int) string {
	if address == "" {
		return ""
	}
	if len(address) <= start+end {
		return address
	}
	return address[:start] + "..." + address[len(address)-end:]
}

// ShortAddress is TruncateAddress with the default 5/5 split.
func ShortAddress(address string) string {
	return TruncateAddress(address, 5, 5)
}

func AddCommas(s string) string {
	if len(s) == 0 {
		return s
	}
	parts := strings.Split(s, ".")
	integerPart := parts[0]
	sign := ""
	if strings.HasPrefix(integerPart, "-") {
		sign = "-"
		integerPart = integerPart[1:]
	}

	n := len(integerPart)
	if n <= 3 {
		return s
	}

	var result strings.Builder
	result.WriteString(sign)
	remainder := n % 3
	if remainder > 0 {
		result.WriteString(integerPart[:remainder])
		result.WriteString(",")
	}
	for i := remainder; i < n; i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(integerPart[i : i+3])
	}

	if len(parts) > 1 {
		result.WriteString(".")
		result.WriteString(parts[1])
	}
	return result.String()
}

func FormatFloat(f float64, decimals int) string {
	return AddCommas(fmt.Sprintf("%.*f", decimals, f))
}

// FormatPlain prints f with the shortest representation, e.g. 100 or 2.5.
func FormatPlain(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Round rounds to the nearest integer with halves rounding up.
func Round(f float64) int64 {
	return int64(math.Floor(f + 0.5))
}

// TimeLeft renders the remaining time until expiry as "Xh Ym left", or
// "Expired" once the deadline is reached. Both parts are floor-truncated.
func TimeLeft(expiresAt, now time.Time) string {
	diff := expiresAt.Sub(now)
	if diff <= 0 {
		return "Expired"
	}
	hours := int64(diff / time.Hour)
	minutes := int64((diff % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm left", hours, minutes)
}

// FormatTimestamp renders a unix-seconds contribution time in UTC.
func FormatTimestamp(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("Jan 2, 03:04 PM") + " UTC"
}

// FormatDateTime renders a campaign date in the local zone.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Local().Format("Jan 2, 06, 03:04 PM")
}

// FormatClock renders the wall clock shown in the header.
func FormatClock(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05") + " GMT"
}

// FormatUpdated renders the "last updated" stamp.
func FormatUpdated(t time.Time) string {
	return t.Format("15:04:05")
}

// JoinURL appends path segments to a base URL.
func JoinURL(base string, segments ...string) string {
	out := strings.TrimRight(base, "/")
	for _, s := range segments {
		out += "/" + strings.Trim(s, "/")
	}
	return out
}
