package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown"}

	tests := []struct {
		name      string
		format    string
		supported []string
		wantErr   string
	}{
		{name: "json", format: "json", supported: supported},
		{name: "markdown", format: "markdown", supported: supported},
		{name: "unknown", format: "xml", supported: supported, wantErr: "unsupported output format 'xml'. Supported formats: [json text markdown]"},
		{name: "case sensitive", format: "JSON", supported: supported, wantErr: "unsupported output format 'JSON'. Supported formats: [json text markdown]"},
		{name: "empty", format: "", supported: supported, wantErr: "unsupported output format ''. Supported formats: [json text markdown]"},
		{name: "no restrictions", format: "xml", supported: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supported)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestResolveOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown"}

	got, err := ResolveOutputFormat("", "text", supported)
	assert.NoError(t, err)
	assert.Equal(t, "text", got)

	got, err = ResolveOutputFormat("markdown", "text", supported)
	assert.NoError(t, err)
	assert.Equal(t, "markdown", got)

	_, err = ResolveOutputFormat("yaml", "text", supported)
	assert.Error(t, err)
}
