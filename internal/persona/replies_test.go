package persona_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/naina/internal/persona"
)

func TestReplies_Deterministic(t *testing.T) {
	r := persona.NewReplies(persona.NewSequencePicker(0, 1, 99))

	assert.Equal(t, persona.GentleRejections()[0], r.GentleRejection())
	assert.Equal(t, persona.GentleRejections()[1], r.GentleRejection())
	assert.Equal(t, persona.GentleRejections()[99%5], r.GentleRejection())
}

func TestReplies_Templates(t *testing.T) {
	r := persona.NewReplies(nil)

	assert.Equal(t, "Chalo Ravi, time for some reality check! 💅", r.Taunt("Ravi"))
	assert.Equal(t,
		"Ravi said: you loser\n\nRespond back with gaalis and a savage comeback.",
		r.HostileMessage("Ravi", "you loser"))

	notice := r.ApprovalNotice("Ravi", "7", "you are so sexy")
	assert.Contains(t, notice, "/approve 7")
	assert.Contains(t, notice, "/deny 7")
	assert.Contains(t, notice, "you are so sexy")
}

func TestReplies_RandomAlwaysInTable(t *testing.T) {
	r := persona.NewReplies(nil)
	for range 50 {
		assert.Contains(t, persona.RudeRejections(), r.RudeRejection())
		assert.Contains(t, persona.GentleRejections(), r.GentleRejection())
	}
}

func TestReplies_Fun(t *testing.T) {
	r := persona.NewReplies(persona.NewSequencePicker(5))

	assert.Equal(t, "🎲 You rolled: 6", r.Dice())
	assert.Equal(t, "💕 Love Meter: 6%", r.LoveMeter())
	assert.Equal(t, "Flip result: Tails 🪙", r.Flip())

	for _, got := range []string{r.Joke(), r.Quote(), r.Tip(), r.Compliment(), r.Fortune(), r.Dare(), r.Truth()} {
		assert.NotEmpty(t, strings.TrimSpace(got))
	}
}

func TestSequencePicker(t *testing.T) {
	p := persona.NewSequencePicker(-1, 3)
	assert.Equal(t, 1, p.IntN(2))
	assert.Equal(t, 1, p.IntN(2))
	assert.Equal(t, 0, persona.NewSequencePicker().IntN(10))
}
