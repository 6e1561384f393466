package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTutorMode(t *testing.T) {
	mode, err := ParseTutorMode(" exam_prep ")
	require.NoError(t, err)
	assert.Equal(t, ModeExamPrep, mode)

	mode, err = ParseTutorMode("Practice")
	require.NoError(t, err)
	assert.Equal(t, ModePractice, mode)

	_, err = ParseTutorMode("quiz")
	assert.Error(t, err)
}

func TestParseTheme(t *testing.T) {
	assert.Equal(t, ThemeLight, ParseTheme("LIGHT"))
	assert.Equal(t, ThemeDark, ParseTheme("dark"))
	assert.Equal(t, ThemeDark, ParseTheme(""))
}

func TestSessionID(t *testing.T) {
	id := NewSessionID()
	assert.False(t, id.IsZero())

	parsed, err := NewSessionIDFromString(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equals(parsed))

	_, err = NewSessionIDFromString("")
	assert.Error(t, err)
	_, err = NewSessionIDFromString("not-a-uuid")
	assert.Error(t, err)

	data, err := json.Marshal(struct {
		ID SessionID `json:"id"`
	}{ID: id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+id.String()+`"}`, string(data))
}
