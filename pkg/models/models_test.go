package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampUnmarshal(t *testing.T) {
	want := time.Date(2025, 8, 19, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"zoned", `"2025-08-19T10:30:00Z"`, want},
		{"offset", `"2025-08-19T12:30:00+02:00"`, want},
		{"naive", `"2025-08-19T10:30:00"`, want},
		{"naive fraction", `"2025-08-19T10:30:00.000000"`, want},
		{"space separated", `"2025-08-19 10:30:00"`, want},
		{"null", `null`, time.Time{}},
		{"empty", `""`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.input), &ts))
			assert.True(t, tt.want.Equal(ts.Time), "got %v", ts.Time)
		})
	}

	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestTimestampMarshalZeroIsNull(t *testing.T) {
	b, err := json.Marshal(Campaign{})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"created_at":null`)
}

func TestCampaignResponseQRKey(t *testing.T) {
	primary := "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
	assert.Equal(t, "cmp_1a2b3c4d", CampaignResponse{CampaignID: "cmp_1a2b3c4d", Campaign: &Campaign{ID: primary}}.QRKey())
	assert.Equal(t, "", CampaignResponse{Campaign: &Campaign{ID: primary}}.QRKey())
}

func TestContributionSetCountMismatch(t *testing.T) {
	set := ContributionSet{TransactionCount: 2, Transactions: []Transaction{{Signature: "s1"}}}
	assert.True(t, set.CountMismatch())

	set.TransactionCount = 1
	assert.False(t, set.CountMismatch())
}

func TestEscrowBalanceReprice(t *testing.T) {
	b := EscrowBalanceSnapshot{BalanceSOL: 2, BalanceUSD: 300}
	r := b.Reprice(100)

	assert.Equal(t, 200.0, r.BalanceUSD)
	assert.Equal(t, 300.0, b.BalanceUSD)
}
