package submissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classifieds-bot/internal/locales"
	"classifieds-bot/internal/outbound"
)

func newTestSubmission(step Step) *Submission {
	s := New(10, 20, "seller", "old bike, rides fine")
	s.Step = step
	return s
}

func firstText(t *testing.T, cmds []outbound.Command) outbound.SendText {
	t.Helper()
	require.NotEmpty(t, cmds)
	st, ok := cmds[0].(outbound.SendText)
	require.True(t, ok, "expected a SendText command")
	return st
}

func TestApplyTextManualEntry(t *testing.T) {
	locales.Init("en")
	lz := locales.NewLocalizer("en")

	s := newTestSubmission(StepAwaitingManualText)
	cmds, completed, err := applyText(s, "my own wording", lz)

	require.NoError(t, err)
	assert.False(t, completed)
	assert.Equal(t, "my own wording", s.ImprovedText)
	assert.Equal(t, StepCollectingPhotos, s.Step)
	assert.Equal(t, int64(20), firstText(t, cmds).ChatID)
}

func TestApplyTextDuringPhotoCollection(t *testing.T) {
	locales.Init("en")
	lz := locales.NewLocalizer("en")

	s := newTestSubmission(StepCollectingPhotos)
	cmds, completed, err := applyText(s, "not a photo", lz)

	assert.ErrorIs(t, err, ErrPhotosExpected)
	assert.False(t, completed)
	assert.Empty(t, cmds)
	assert.Equal(t, StepCollectingPhotos, s.Step, "error must not change state")
}

func TestApplyTextAddressThenPrice(t *testing.T) {
	locales.Init("en")
	lz := locales.NewLocalizer("en")

	s := newTestSubmission(StepAwaitingAddress)
	cmds, completed, err := applyText(s, "5 Main St", lz)
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Equal(t, "5 Main St", s.Address)
	assert.Equal(t, StepAwaitingPrice, s.Step)
	firstText(t, cmds)

	cmds, completed, err = applyText(s, "1000", lz)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Empty(t, cmds)
	assert.Equal(t, "1000", s.Price)
	assert.Equal(t, StatusPending, s.Status)
	assert.Equal(t, StepSubmitted, s.Step)
}

func TestApplyTextWhileActiveElsewhere(t *testing.T) {
	locales.Init("en")
	lz := locales.NewLocalizer("en")

	for _, step := range []Step{StepAwaitingConfirmation, StepSubmitted} {
		s := newTestSubmission(step)
		_, _, err := applyText(s, "hello again", lz)
		assert.ErrorIs(t, err, ErrAlreadyPending, "step %s", step)
		assert.Equal(t, step, s.Step)
	}
}

func TestApplyKeepAndEdit(t *testing.T) {
	locales.Init("en")
	lz := locales.NewLocalizer("en")

	s := newTestSubmission(StepAwaitingConfirmation)
	cmds, err := applyKeep(s, lz)
	require.NoError(t, err)
	assert.Equal(t, StepCollectingPhotos, s.Step)
	firstText(t, cmds)

	// Keep/edit are only valid while the confirmation keyboard is up.
	_, err = applyKeep(s, lz)
	assert.ErrorIs(t, err, ErrWrongStep)

	s = newTestSubmission(StepAwaitingConfirmation)
	cmds, err = applyEditRequest(s, lz)
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingManualText, s.Step)
	firstText(t, cmds)

	_, err = applyEditRequest(s, lz)
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestApplyAlbum(t *testing.T) {
	locales.Init("en")
	lz := locales.NewLocalizer("en")

	s := newTestSubmission(StepCollectingPhotos)
	cmds, err := applyAlbum(s, []string{"f1", "f2", "f3"}, lz)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2", "f3"}, s.Photos)
	assert.Equal(t, StepAwaitingAddress, s.Step)
	firstText(t, cmds)

	s = newTestSubmission(StepAwaitingPrice)
	_, err = applyAlbum(s, []string{"f1"}, lz)
	assert.ErrorIs(t, err, ErrWrongStep)
}
