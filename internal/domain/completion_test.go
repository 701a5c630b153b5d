package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompletion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "api path", raw: "api: /api/v1/namespaces", want: "/api/v1/namespaces"},
		{name: "name label", raw: "name: subcloud1\n", want: "subcloud1"},
		{name: "value keeps later colons", raw: "api: 18002/v1/alarms?q=a:b", want: "18002/v1/alarms?q=a:b"},
		{name: "empty value", raw: "api:", want: ""},
		{name: "no colon", raw: "/api/v1/pods", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseCompletion(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEndpointFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeInstanceName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "System Controller", NormalizeInstanceName(` "System Controller". `))
	assert.Equal(t, "subcloud1", NormalizeInstanceName("**subcloud1**"))
	assert.Equal(t, "subcloud2", NormalizeInstanceName("`subcloud2`"))
}
