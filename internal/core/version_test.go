package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.10.0", "1.9.0", 1},
		{"1.0.0", "1.0.1", -1},
		{"2.0.0.Final", "2.0.0.Beta1", 1},
		{"1.0.0-rev00000002", "1.0.0-rev00000010", -1},
		{"1.0.0-rev00000001", "1.0.0-rev00000001", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sign(CompareVersions(tt.a, tt.b)), "%s vs %s", tt.a, tt.b)
	}
}

func sign(value int) int {
	switch {
	case value > 0:
		return 1
	case value < 0:
		return -1
	default:
		return 0
	}
}

func TestHighestVersion(t *testing.T) {
	latest, ok := HighestVersion([]string{"1.2.0", "1.10.0", "1.9.5"})
	require.True(t, ok)
	assert.Equal(t, "1.10.0", latest)

	_, ok = HighestVersion(nil)
	assert.False(t, ok)
}

func TestMatchingVersionsIsAnchored(t *testing.T) {
	got, err := MatchingVersions([]string{"1.0.0", "1.0.1", "11.0.0", "1.1.0"}, `1\.0\..*`)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"1.0.0", "1.0.1"}, got); diff != "" {
		t.Fatalf("matching versions mismatch (-want +got):\n%s", diff)
	}

	_, err = MatchingVersions([]string{"1.0.0"}, "1.(")
	require.Error(t, err)
}

func TestIsSnapshotVersion(t *testing.T) {
	assert.True(t, IsSnapshotVersion("1.0.0-SNAPSHOT"))
	assert.False(t, IsSnapshotVersion("1.0.0.Final"))
}
