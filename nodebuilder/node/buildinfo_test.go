package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSemanticVersion(t *testing.T) {
	tests := []struct {
		name            string
		buildInfo       BuildInfo
		expectedVersion string
	}{
		{
			name:            "Empty Semantic Version",
			buildInfo:       BuildInfo{},
			expectedVersion: emptyValue,
		},
		{
			name: "Non-empty Semantic Version",
			buildInfo: BuildInfo{
				SemanticVersion: "0.4.1",
			},
			expectedVersion: "v0.4.1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expectedVersion, tc.buildInfo.GetSemanticVersion())
		})
	}
}

func TestBuildInfo_CommitShortSha(t *testing.T) {
	tests := []struct {
		name       string
		lastCommit string
		want       string
	}{
		{"empty", "", "unknown"},
		{"short", "abc123", "abc123"},
		{"exact", "abcdefg", "abcdefg"},
		{"long", "abcdefghijk", "abcdefg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &BuildInfo{LastCommit: tt.lastCommit}
			require.Equal(t, tt.want, b.CommitShortSha())
		})
	}
}

func TestBuildInfo_String(t *testing.T) {
	info := GetBuildInfo()
	info.SemanticVersion = "1.0.0"
	out := info.String()
	assert.Contains(t, out, "Semantic version: v1.0.0")
	assert.Contains(t, out, info.GolangVersion)
}
