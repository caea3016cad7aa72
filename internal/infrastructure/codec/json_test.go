package codec

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/update-requests/internal/domain/workflow"
)

func TestJSONCodec_Parse(t *testing.T) {
	c := NewJSONCodec()

	tests := []struct {
		name    string
		input   string
		want    interface{}
		wantErr bool
	}{
		{name: "object", input: `{"status":"Shipped"}`, want: map[string]interface{}{"status": "Shipped"}},
		{name: "number kept exact", input: `{"qty":9007199254740993}`, want: map[string]interface{}{"qty": json.Number("9007199254740993")}},
		{name: "array", input: `[1, 2]`, want: []interface{}{json.Number("1"), json.Number("2")}},
		{name: "string", input: `"Shipped"`, want: "Shipped"},
		{name: "empty", input: "  ", wantErr: true},
		{name: "malformed", input: `{"status":`, wantErr: true},
		{name: "trailing data", input: `{} {}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, workflow.ErrInvalidPayload))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONCodec_Render(t *testing.T) {
	c := NewJSONCodec()

	out, err := c.Render(map[string]interface{}{"name": "a<b"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"a<b"}`, out)

	_, err = c.Render(make(chan int))
	assert.Error(t, err)
}
