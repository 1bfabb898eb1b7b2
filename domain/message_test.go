package domain

import (
	"strings"
	"testing"

	"github.com/abdullayevf/chat-app/errors"
	"github.com/stretchr/testify/require"
)

func TestNormalizeContent_Trims_Surrounding_Whitespace(t *testing.T) {
	req := require.New(t)

	content, err := NormalizeContent("  hello world \n")

	req.NoError(err)
	req.Equal("hello world", content)
}

func TestNormalizeContent_Rejects_Empty_And_Whitespace_Only(t *testing.T) {
	req := require.New(t)

	_, err := NormalizeContent("")
	req.ErrorIs(err, errors.ErrEmptyContent)

	_, err = NormalizeContent("   \t\n  ")
	req.ErrorIs(err, errors.ErrEmptyContent)
}

func TestNormalizeContent_Limit_Counts_Runes_After_Trimming(t *testing.T) {
	req := require.New(t)

	// Given exactly the maximum, padded with whitespace that trimming removes
	atLimit := strings.Repeat("é", MaxContentLength)
	content, err := NormalizeContent("  " + atLimit + "  ")
	req.NoError(err)
	req.Equal(atLimit, content)

	// When one rune over the maximum
	_, err = NormalizeContent(strings.Repeat("é", MaxContentLength+1))
	req.ErrorIs(err, errors.ErrContentTooLong)
}
