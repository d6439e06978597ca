package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func snapshot(identifiers ...string) Snapshot {
	s := Snapshot{PackageName: "weekly-blast"}
	for i, id := range identifiers {
		s.Entries = append(s.Entries, Entry{Identifier: id, Rank: i + 1})
	}
	return s
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		username string
		snap     Snapshot
		wantRank int
		wantOK   bool
	}{
		{
			name:     "exact match",
			username: "alice",
			snap:     snapshot("bob", "alice", "carol"),
			wantRank: 2,
			wantOK:   true,
		},
		{
			name:     "local leading zero stripped",
			username: "01711000000",
			snap:     snapshot("1711000000"),
			wantRank: 1,
			wantOK:   true,
		},
		{
			name:     "remote leading zero stripped",
			username: "1711000000",
			snap:     snapshot("01711000000"),
			wantRank: 1,
			wantOK:   true,
		},
		{
			name:     "no match",
			username: "mallory",
			snap:     snapshot("alice", "bob"),
			wantOK:   false,
		},
		{
			name:     "first match wins",
			username: "0777",
			snap:     snapshot("777", "0777"),
			wantRank: 1,
			wantOK:   true,
		},
		{
			name:     "empty snapshot",
			username: "alice",
			snap:     Snapshot{},
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rank, ok := Match(tt.username, tt.snap)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantRank, rank)
			}
		})
	}
}

func TestMatch_AllZeroIdentifier(t *testing.T) {
	// "0" must not collapse to "" and accidentally match everything.
	_, ok := Match("0", snapshot("alice"))
	assert.False(t, ok)

	rank, ok := Match("0", snapshot("00"))
	assert.True(t, ok, "zero-only identifiers normalize to the same key")
	assert.Equal(t, 1, rank)
}
