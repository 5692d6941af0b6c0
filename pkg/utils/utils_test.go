package utils

import (
	"testing"
	"time"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		input    string
		length   int
		expected string
	}{
		{"hello world", 5, "he..."},
		{"short", 10, "short"},
		{"exact", 5, "exact"},
		{"", 5, ""},
		{"abc", 2, "ab"},
		{"abc", 3, "abc"},
	}

	for _, tt := range tests {
		result := TruncateString(tt.input, tt.length)
		if result != tt.expected {
			t.Errorf("TruncateString(%q, %d) = %q; want %q", tt.input, tt.length, result, tt.expected)
		}
	}
}

func TestTruncateAddress(t *testing.T) {
	tests := []struct {
		input      string
		start, end int
		expected   string
	}{
		{"ABCDEFGHIJKLMNOP", 5, 5, "ABCDE...LMNOP"},
		{"ABCDEFGHIJ", 5, 5, "ABCDEFGHIJ"},
		{"ABCDEFGH", 5, 5, "ABCDEFGH"},
		{"9AXqJW8tchVG3vKEFYzmNeA6Q5C93LDGwGegsF9HZso3", 5, 6, "9AXqJ...9HZso3"},
		{"", 5, 5, ""},
	}

	for _, tt := range tests {
		result := TruncateAddress(tt.input, tt.start, tt.end)
		if result != tt.expected {
			t.Errorf("TruncateAddress(%q, %d, %d) = %q; want %q", tt.input, tt.start, tt.end, result, tt.expected)
		}
	}
}

func TestAddCommas(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"123", "123"},
		{"1234", "1,234"},
		{"123456", "123,456"},
		{"1234567", "1,234,567"},
		{"1234.56", "1,234.56"},
		{"-1234", "-1,234"},
		{"", ""},
	}

	for _, tt := range tests {
		result := AddCommas(tt.input)
		if result != tt.expected {
			t.Errorf("AddCommas(%q) = %q; want %q", tt.input, result, tt.expected)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input    float64
		decimals int
		expected string
	}{
		{1234.5678, 2, "1,234.57"},
		{1234.5, 2, "1,234.50"},
		{0, 2, "0.00"},
	}

	for _, tt := range tests {
		result := FormatFloat(tt.input, tt.decimals)
		if result != tt.expected {
			t.Errorf("FormatFloat(%f, %d) = %q; want %q", tt.input, tt.decimals, result, tt.expected)
		}
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		input    float64
		expected int64
	}{
		{52.76, 53},
		{2.5, 3},
		{2.49, 2},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Round(tt.input); got != tt.expected {
			t.Errorf("Round(%v) = %d; want %d", tt.input, got, tt.expected)
		}
	}
}

func TestTimeLeft(t *testing.T) {
	now := time.Date(2025, 8, 19, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		expiry   time.Time
		expected string
	}{
		{"exactly now", now, "Expired"},
		{"in the past", now.Add(-time.Minute), "Expired"},
		{"ninety minutes", now.Add(90 * time.Minute), "1h 30m left"},
		{"floor not round", now.Add(59*time.Minute + 59*time.Second), "0h 59m left"},
		{"multi day", now.Add(49*time.Hour + 5*time.Minute), "49h 5m left"},
	}
	for _, tt := range tests {
		if got := TimeLeft(tt.expiry, now); got != tt.expected {
			t.Errorf("%s: TimeLeft = %q; want %q", tt.name, got, tt.expected)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	got := FormatTimestamp(1724035680)
	if got != "Aug 19, 02:48 AM UTC" {
		t.Errorf("FormatTimestamp = %q", got)
	}
}

func TestFormatClock(t *testing.T) {
	got := FormatClock(time.Date(2025, 8, 19, 1, 2, 3, 0, time.UTC))
	if got != "2025-08-19 01:02:03 GMT" {
		t.Errorf("FormatClock = %q", got)
	}
}

func TestJoinURL(t *testing.T) {
	if got := JoinURL("https://solscan.io/", "tx", "abc"); got != "https://solscan.io/tx/abc" {
		t.Errorf("JoinURL = %q", got)
	}
	if got := JoinURL("http://h/api/campaigns", "id-1", "qr"); got != "http://h/api/campaigns/id-1/qr" {
		t.Errorf("JoinURL = %q", got)
	}
}
