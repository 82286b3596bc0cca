package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	got, err := NormalizeTags([]string{" Travel", "food", "", "travel", "  ", "Beach"})
	require.NoError(t, err)
	assert.Equal(t, []string{"beach", "food", "travel"}, got)

	got, err = NormalizeTags(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NormalizeTags([]string{strings.Repeat("x", MaxTagLen+1)})
	assert.Error(t, err)

	many := make([]string, MaxTags+1)
	for i := range many {
		many[i] = strings.Repeat("t", i+1)
	}
	_, err = NormalizeTags(many)
	assert.Error(t, err)
}

func TestValidatePostText(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidatePostText("a sunny day", "Porto"))
	assert.Error(t, ValidatePostText(strings.Repeat("d", MaxDescriptionLen+1), ""))
	assert.Error(t, ValidatePostText("", strings.Repeat("l", MaxLocationLen+1)))
}

func TestNormalizeCommentBody(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"trimmed", "  nice shot \n", "nice shot", false},
		{"empty", "", "", true},
		{"whitespace only", " \t\n ", "", true},
		{"at limit", strings.Repeat("é", MaxCommentLen), strings.Repeat("é", MaxCommentLen), false},
		{"over limit", strings.Repeat("a", MaxCommentLen+1), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeCommentBody(tt.body)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
