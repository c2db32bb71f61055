package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuplicatePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    DuplicatePolicy
		wantErr bool
	}{
		{name: "skip", raw: "skip", want: DuplicateSkip},
		{name: "error", raw: "error", want: DuplicateError},
		{name: "replace", raw: "replace", want: DuplicateReplace},
		{name: "version", raw: "version", want: DuplicateVersion},
		{name: "empty resolves to default", raw: "", want: DefaultDuplicatePolicy},
		{name: "unknown value", raw: "overwrite", wantErr: true},
		{name: "case sensitive", raw: "Skip", wantErr: true},
		{name: "whitespace is not trimmed", raw: " skip", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			policy, err := ParseDuplicatePolicy(tt.raw)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfiguration)
				assert.Contains(t, err.Error(), tt.raw)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, policy)
		})
	}
}

func TestDuplicatePolicy_RequiresLookup(t *testing.T) {
	t.Parallel()

	assert.True(t, DuplicateSkip.RequiresLookup())
	assert.True(t, DuplicateError.RequiresLookup())
	assert.False(t, DuplicateReplace.RequiresLookup())
	assert.False(t, DuplicateVersion.RequiresLookup())
}
