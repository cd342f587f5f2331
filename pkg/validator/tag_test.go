package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCreateTag(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantName  string
		wantColor string
		field     string
		code      Code
	}{
		{name: "Name only", body: `{"name":" Marketing "}`, wantName: "Marketing"},
		{name: "Name and colour", body: `{"name":"News","color":"Blue"}`, wantName: "News", wantColor: "blue"},
		{name: "Missing name", body: `{"color":"red"}`, field: "name", code: CodeMissingRequiredField},
		{name: "Blank name", body: `{"name":"   "}`, field: "name", code: CodeMissingRequiredField},
		{name: "Name not a string", body: `{"name":7}`, field: "name", code: CodeInvalidType},
		{name: "Unknown colour", body: `{"name":"x","color":"orange"}`, field: "color", code: CodeInvalidEnumValue},
		{name: "Name too long", body: `{"name":"` + strings.Repeat("a", MaxTagNameLength+1) + `"}`, field: "name", code: CodeInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ValidateCreateTag([]byte(tt.body))

			if tt.field != "" {
				assert.Nil(t, in)
				verrs := mustErrors(t, err)
				fe := verrs.Field(tt.field)
				require.NotNil(t, fe)
				assert.Equal(t, tt.code, fe.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, in.Name)
			assert.Equal(t, tt.wantColor, in.Color)
		})
	}
}

func TestValidateCreateTag_NameAtLimit(t *testing.T) {
	in, err := ValidateCreateTag([]byte(`{"name":"` + strings.Repeat("é", MaxTagNameLength) + `"}`))

	require.NoError(t, err)
	assert.Equal(t, MaxTagNameLength, len([]rune(in.Name)))
}
