package persona

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Picker chooses an index in [0, n).
type Picker interface {
	IntN(n int) int
}

// randomPicker is the default Picker.
type randomPicker struct{}

func (randomPicker) IntN(n int) int { return rand.IntN(n) }

// SequencePicker returns fixed indexes in order, wrapping around. Useful
// wherever deterministic replies are needed.
type SequencePicker struct {
	seq []int
	pos int
	mu  sync.Mutex
}

// NewSequencePicker creates a picker that replays seq. An empty sequence
// always picks index 0.
func NewSequencePicker(seq ...int) *SequencePicker {
	return &SequencePicker{seq: seq}
}

// IntN returns the next index modulo n.
func (s *SequencePicker) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.seq) == 0 || n <= 0 {
		return 0
	}
	v := s.seq[s.pos%len(s.seq)]
	s.pos++
	return ((v % n) + n) % n
}

// Fixed replies.
const (
	Placeholder     = "Hmm, ek second... let me check 🤔"
	DenialReply     = "Chalo, let's talk about something else 😊"
	Taunt           = "Chalo %s, time for some reality check! 💅"
	HostilePrompt   = "%s said: %s\n\nRespond back with gaalis and a savage comeback."
	ApprovalRequest = "🔔 Naughty talk request\n👤 %s (%s)\n💬 %s\n\nReply /approve %s or /deny %s"
	KeepAlive       = "💫 Auto keep-alive check [%s] - Naina is alive! 💕"
)

var (
	gentleRejections = []string{
		"Hey! Aise baatein nahi karte na. 🥺",
		"Nahi, please. Mujhe yeh bilkul pasand nahi hai. 🥺",
		"Bas ab, yeh sab nahi okay? 😔",
		"Pleaseee, let's talk about something nice? 🥺💕",
		"Arre nahi! Meri dignity ka khayal rakh~ 🙈",
	}

	rudeRejections = []string{
		"Tum kaun ho? Main sirf apne admin ke orders follow karti hoon! 🙅‍♀️",
		"Arre! Tum mera admin nahi ho. Main aapke orders nahi manungi! 😏",
		"LOL, no. You're not my admin. Shoo! 🚫",
		"Nice try! But you're not the boss of me, sorry! 😤",
		"Admin? Nahi nahi! Sirf mera admin mujhe orders deta hai! 💪",
	}
)

// Replies picks static reply strings.
type Replies struct {
	picker Picker
}

// NewReplies creates a reply source. A nil picker uses math/rand.
func NewReplies(picker Picker) *Replies {
	if picker == nil {
		picker = randomPicker{}
	}
	return &Replies{picker: picker}
}

func (r *Replies) pick(options []string) string {
	return options[r.picker.IntN(len(options))]
}

// GentleRejection refuses sensitive content.
func (r *Replies) GentleRejection() string {
	return r.pick(gentleRejections)
}

// RudeRejection refuses admin commands from non-admins.
func (r *Replies) RudeRejection() string {
	return r.pick(rudeRejections)
}

// Taunt is the reply for hostile-target identities.
func (r *Replies) Taunt(name string) string {
	return fmt.Sprintf(Taunt, name)
}

// HostileMessage builds the single-turn prompt for a hostile message.
func (r *Replies) HostileMessage(name, text string) string {
	return fmt.Sprintf(HostilePrompt, name, text)
}

// ApprovalNotice is the message sent to the approver for a new request.
func (r *Replies) ApprovalNotice(name, identity, text string) string {
	return fmt.Sprintf(ApprovalRequest, name, identity, text, identity, identity)
}

// GentleRejections returns every gentle rejection string.
func GentleRejections() []string {
	return append([]string(nil), gentleRejections...)
}

// RudeRejections returns every rude rejection string.
func RudeRejections() []string {
	return append([]string(nil), rudeRejections...)
}
