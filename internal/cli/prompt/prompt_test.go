package prompt

import (
	"errors"
	"fmt"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
)

func TestMenu(t *testing.T) {
	t.Run("AllActions", func(t *testing.T) {
		items := menu([]string{"清洗", "保留"}, MenuOptions{AllowUndo: true, AllowSubmit: true})

		labels := make([]string, len(items))
		for i, it := range items {
			labels[i] = it.Label
		}
		assert.Equal(t, []string{"清洗", "保留", labelOther, labelUndo, labelSubmit, labelQuit}, labels)
		assert.Equal(t, Choice{Action: ActionClassify, Category: "保留"}, items[1].Choice)
		assert.Equal(t, "2", items[1].Hint)
		assert.True(t, items[2].Other)
		assert.Equal(t, ActionUndo, items[3].Choice.Action)
		assert.Equal(t, ActionSubmit, items[4].Choice.Action)
		assert.Equal(t, ActionQuit, items[5].Choice.Action)
	})

	t.Run("NothingToUndoOrSubmit", func(t *testing.T) {
		items := menu(nil, MenuOptions{})
		assert.Len(t, items, 2)
		assert.True(t, items[0].Other)
		assert.Equal(t, ActionQuit, items[1].Choice.Action)
	})
}

func TestParseCategories(t *testing.T) {
	assert.Equal(t, []string{"cat", "dog"}, ParseCategories(" cat, dog ,,cat"))
	assert.Empty(t, ParseCategories(" , "))
}

func TestNotBlank(t *testing.T) {
	assert.Error(t, notBlank("   "))
	assert.NoError(t, notBlank("dog"))
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, wrapError(nil))
	assert.ErrorIs(t, wrapError(promptui.ErrInterrupt), ErrAborted)
	assert.ErrorIs(t, wrapError(fmt.Errorf("read: %w", promptui.ErrEOF)), ErrAborted)

	other := errors.New("tty closed")
	assert.Equal(t, other, wrapError(other))
	assert.False(t, IsAborted(other))
}
