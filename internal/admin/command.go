// Package admin implements the slash-command surface: parsing, target
// resolution and execution against the moderation registry, the consent
// workflow and the session store.
package admin

import (
	"slices"
	"strings"
	"unicode"
)

// Kind identifies a command.
type Kind string

// Commands anyone may run.
const (
	KindUnknown    Kind = ""
	KindStart      Kind = "start"
	KindHelp       Kind = "help"
	KindMyInfo     Kind = "myinfo"
	KindClear      Kind = "clear"
	KindJoke       Kind = "joke"
	KindQuote      Kind = "quote"
	KindTip        Kind = "tip"
	KindCompliment Kind = "compliment"
	KindFortune    Kind = "fortune"
	KindDare       Kind = "dare"
	KindTruth      Kind = "truth"
	KindFlip       Kind = "flip"
	KindDice       Kind = "dice"
	KindLoveTest   Kind = "lovetest"
)

// Admin commands.
const (
	KindPanel            Kind = "admin"
	KindStatus           Kind = "status"
	KindStop             Kind = "stop"
	KindResume           Kind = "resume"
	KindBlock            Kind = "block"
	KindUnblock          Kind = "unblock"
	KindMute             Kind = "mute"
	KindUnmute           Kind = "unmute"
	KindAbuse            Kind = "abuse"
	KindUnabuse          Kind = "unabuse"
	KindAddLover         Kind = "addlover"
	KindRemoveLover      Kind = "removelover"
	KindBlockNaughty     Kind = "blocknaughty"
	KindUnblockNaughty   Kind = "unblocknaughty"
	KindListBlocked      Kind = "listblocked"
	KindListMuted        Kind = "listmuted"
	KindListAbuse        Kind = "listabuse"
	KindListLovers       Kind = "listlovers"
	KindListBlockNaughty Kind = "listblocknaughty"
	KindApprove          Kind = "approve"
	KindDeny             Kind = "deny"
	KindSetConsent       Kind = "setconsent"
	KindForgetConsent    Kind = "forgetconsent"
	KindReset            Kind = "reset"
	KindRestart          Kind = "restart"
	KindGroupOn          Kind = "groupon"
	KindGroupOff         Kind = "groupoff"
	KindAddAdmin         Kind = "addadmin"
	KindRemoveAdmin      Kind = "removeadmin"
	KindListAdmins       Kind = "listadmins"
	KindViewChat         Kind = "viewchat"
	KindListUsers        Kind = "listusers"
	KindBroadcast        Kind = "broadcast"
)

var userKinds = []Kind{
	KindStart, KindHelp, KindMyInfo, KindClear, KindJoke, KindQuote, KindTip,
	KindCompliment, KindFortune, KindDare, KindTruth, KindFlip, KindDice,
	KindLoveTest,
}

var adminKinds = []Kind{
	KindPanel, KindStatus, KindStop, KindResume, KindBlock, KindUnblock,
	KindMute, KindUnmute, KindAbuse, KindUnabuse, KindAddLover,
	KindRemoveLover, KindBlockNaughty, KindUnblockNaughty, KindListBlocked,
	KindListMuted, KindListAbuse, KindListLovers, KindListBlockNaughty,
	KindApprove, KindDeny, KindSetConsent, KindForgetConsent, KindReset,
	KindRestart, KindGroupOn, KindGroupOff,
	KindAddAdmin, KindRemoveAdmin, KindListAdmins, KindViewChat,
	KindListUsers, KindBroadcast,
}

// aliases maps alternate spellings to their kind.
var aliases = map[string]Kind{
	"lover": KindAddLover,
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(userKinds)+len(adminKinds)+len(aliases))
	for _, k := range userKinds {
		m[string(k)] = k
	}
	for _, k := range adminKinds {
		m[string(k)] = k
	}
	for name, k := range aliases {
		m[name] = k
	}
	return m
}()

// AdminOnly reports whether the command needs admin rights.
func (k Kind) AdminOnly() bool {
	return slices.Contains(adminKinds, k)
}

// Command is a parsed slash command.
type Command struct {
	Kind Kind
	Name string   // lower-cased name as typed, without the slash or @bot suffix
	Args []string // whitespace separated arguments
	Rest string   // everything after the name, trimmed
}

// Arg returns argument i or "".
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Parse reads "/name[@bot] args...". It reports false when text is not a
// command. Unknown names parse with KindUnknown.
func Parse(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '/' {
		return Command{}, false
	}

	head, rest := text[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, rest = head[:i], head[i:]
	}
	head, _, _ = strings.Cut(head, "@")
	head = strings.ToLower(strings.TrimSpace(head))
	if head == "" {
		return Command{}, false
	}

	cmd := Command{Kind: kindsByName[head], Name: head}
	if rest = strings.TrimSpace(rest); rest != "" {
		cmd.Args, cmd.Rest = strings.Fields(rest), rest
	}
	return cmd, true
}
