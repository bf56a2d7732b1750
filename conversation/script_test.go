package conversation

import (
	"testing"
	"time"

	"cafe-telegram/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPauser time.Duration

func (p fixedPauser) Delay(time.Duration) time.Duration { return time.Duration(p) }

func texts(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func runSurprise(t *testing.T, h *harness) {
	t.Helper()
	require.NoError(t, h.press(guestID, models.Button{Action: models.ActMenu}))
	require.NoError(t, h.press(guestID, models.Button{Action: models.ActCategory, Category: models.CategorySurprise}))
	assert.Equal(t, StateScripted, h.state(guestID))

	// a choice outside the offered set changes nothing
	require.NoError(t, h.press(guestID, models.Button{Action: models.ActScript, Choice: "caviar"}))
	assert.Equal(t, StateScripted, h.state(guestID))

	require.NoError(t, h.press(guestID, models.Button{Action: models.ActScript, Category: models.CategorySurprise, Choice: "fish"}))
	assert.Equal(t, StateIdle, h.state(guestID), "state is final before any pause")
}

func TestSurpriseWithoutPauses(t *testing.T) {
	h := newHarness(t)
	runSurprise(t, h)

	msgs := texts(h.out.to(guestID))
	require.GreaterOrEqual(t, len(msgs), 3)
	tail := msgs[len(msgs)-3:]
	assert.Equal(t, "🐱 Кот задумался...", tail[0])
	assert.Contains(t, tail[1], "Кот одобрил")
	assert.Equal(t, "🎁 Мурр!", tail[2])

	ack, ok := findChoice(h.last(adminID), models.ActAcknowledge)
	require.True(t, ok)
	assert.Equal(t, guestID, ack.UserID)
	assert.Equal(t, "fish", ack.Choice)
}

func TestSurprisePauseOnlyDelaysPresentation(t *testing.T) {
	instant := newHarness(t)
	runSurprise(t, instant)
	want := texts(instant.out.to(guestID))

	h := newHarness(t, func(o *Options) { o.Pauser = fixedPauser(20 * time.Millisecond) })
	runSurprise(t, h)

	// the admin has already been told and the guest can keep going
	_, ok := findChoice(h.last(adminID), models.ActAcknowledge)
	assert.True(t, ok)
	require.NoError(t, h.press(guestID, models.Button{Action: models.ActMenu}))
	assert.Equal(t, StateBrowsingCategories, h.state(guestID))

	h.ctrl.Wait()
	got := texts(h.out.to(guestID))
	assert.ElementsMatch(t, append(want, texts([]models.Message{categoriesMessage()})...), got)
}

func TestBanquetReservation(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.press(guestID, models.Button{Action: models.ActMenu}))
	require.NoError(t, h.press(guestID, models.Button{Action: models.ActCategory, Category: models.CategoryBanquet}))
	assert.Equal(t, StateAwaitingGuestCount, h.state(guestID))

	assert.ErrorIs(t, h.press(guestID, models.Button{Action: models.ActService, Choice: "royal"}), ErrRejected)

	for _, bad := range []string{"много", "0", "201", "-3"} {
		require.NoError(t, h.say(guestID, bad))
		assert.Equal(t, StateAwaitingGuestCount, h.state(guestID), bad)
		assert.Contains(t, h.last(guestID).Text, "от 1 до 200")
	}
	require.NoError(t, h.say(guestID, " 12 "))
	assert.Equal(t, StateAwaitingServiceLevel, h.state(guestID))

	assert.ErrorIs(t, h.say(guestID, "festive"), ErrRejected)
	require.NoError(t, h.press(guestID, models.Button{Action: models.ActService, Category: models.CategoryBanquet, Choice: "festive"}))
	assert.Equal(t, StateIdle, h.state(guestID))
	assert.Contains(t, h.last(guestID).Text, "12 гостей")

	req := h.last(adminID)
	assert.Contains(t, req.Text, "Гостей: 12")
	assert.Contains(t, req.Text, "@guest")
	ack, ok := findChoice(req, models.ActAcknowledge)
	require.True(t, ok)

	// only the administrator may acknowledge
	assert.Error(t, h.press(guestID, ack))

	require.NoError(t, h.press(adminID, ack))
	assert.Contains(t, h.last(guestID).Text, "банкет подтверждён")
	assert.Contains(t, h.last(guestID).Text, "Праздничный")
	assert.Equal(t, "Подтверждение отправлено гостю.", h.last(adminID).Text)
}

func TestSurpriseAcknowledgeRelay(t *testing.T) {
	h := newHarness(t)
	runSurprise(t, h)
	ack, ok := findChoice(h.last(adminID), models.ActAcknowledge)
	require.True(t, ok)

	require.NoError(t, h.press(adminID, ack))
	assert.Contains(t, h.last(guestID).Text, "сюрприз подтверждён")
}
