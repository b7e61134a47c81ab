package admin

import (
	"github.com/Veraticus/naina/internal/moderation"
)

const (
	welcomeAdmin = "💕 Heyy! I'm Naina, your personal AI girlfriend! 🌹\n\n" +
		"I'm here to chat, joke around, give advice, and keep you company! 😊\n\n" +
		"📝 Use /help to see all my commands!\n" +
		"You're my admin now! 👑"
	welcomeBack = "Hi babe! 💕 Welcome back!\n\nUse /help to see what I can do for you!"

	helpText = `💕 **NAINA COMMAND GUIDE** 💕

**🎮 FUN & GAMES:**
/joke - Random funny joke
/quote - Motivational quote
/tip - Daily life tips
/compliment - Sweet compliment
/fortune - Your fortune! 🔮
/dare - Get a dare challenge
/truth - Truth or dare question
/flip - Coin flip 🪙
/dice - Dice roll 🎲
/lovetest - Check love meter

**📋 USER COMMANDS:**
/clear - Clear chat history
/help - Show this help
/myinfo - Your personal status

**👑 ADMIN ONLY:**
/admin - Admin control panel
/status - Bot status
/block @user - Block user
/mute @user - Mute user
/abuse @user - Target for gaalis
/lover @user - Mark as lover`

	panelText = `👑 **ADMIN CONTROL PANEL** 👑

🚫 /block /unblock /listblocked
🔇 /mute /unmute /listmuted
😈 /abuse /unabuse /listabuse
❤️ /addlover /removelover /listlovers
🔒 /blocknaughty /unblocknaughty /listblocknaughty
✅ /approve /deny /setconsent /forgetconsent
👑 /addadmin /removeadmin /listadmins
📊 /status /listusers /viewchat
📢 /broadcast
👥 /groupon /groupoff
🔌 /stop /resume /reset /restart`

	myInfoFormat = "📱 **YOUR INFO WITH NAINA**\n" +
		"👤 User ID: %s\n" +
		"👑 Admin: %s\n" +
		"🚫 Blocked: %s\n" +
		"🔇 Muted: %s\n" +
		"❤️ Lover: %s"
	statusFormat = "🤖 **BOT STATUS**\n" +
		"✅ Status: %s\n" +
		"⏰ Uptime: %dh %dm\n" +
		"👥 Total Users: %d\n" +
		"📊 Stats: %s"

	yes      = "✅ Yes"
	no       = "❌ No"
	loverYes = "❤️ Yes"

	botStopped   = "🔌 Bot disabled! Use /resume to turn it back on."
	botResumed   = "✅ Bot is back online! 💕"
	groupEnabled = "✅ Group auto-reply ENABLED!"
	groupOff     = "🔇 Group auto-reply DISABLED!"
	dataReset    = "🔄 All data reset!"
	restarting   = "🔄 Restarting... bye! 👋"

	targetUsage    = "Usage: /%s @username or /%s user_id"
	userNotFound   = "User not found!"
	invalidUserID  = "Invalid user ID!"
	adminUsage     = "Usage: /%s <user_id>"
	adminAdded     = "✅ Admin %s added!"
	adminRemoved   = "✅ Admin %s removed!"
	approverLocked = "The approver always stays an admin!"

	noPending     = "No pending request from %s!"
	consentGiven  = "✅ Naughty talk approved for %s! 🔥"
	consentDenied = "❌ Naughty talk denied for %s."

	setConsentUsage  = "Usage: /setconsent <user_id> on|off"
	noDecision       = "No decision to change for %s! Use /approve or /deny first."
	consentSetOn     = "🔥 Naughty talk switched ON for %s."
	consentSetOff    = "🔒 Naughty talk switched OFF for %s."
	consentForgotten = "🧹 Consent record forgotten for %s."

	historyCleared = "🧹 Your chat history cleared!"
	noHistory      = "No chat history to clear!"

	viewChatHeader = "📜 Last %d messages with %s:\n\n"
	viewChatLine   = "**%s:** %s\n\n"
	viewChatEmpty  = "User not found or has no history!"
	viewChatLimit  = 20

	usersHeader = "👥 **TOTAL USERS (%d):**\n"
	noUsers     = "No users yet!"

	broadcastUsage  = "Usage: /broadcast <message>"
	broadcastFormat = "📢 **BROADCAST FROM ADMIN:**\n\n%s"
	broadcastDone   = "✅ Message sent to %d users/groups!"
)

// labelOp describes a command that adds or removes a moderation label.
type labelOp struct {
	label moderation.Label
	add   bool
	done  string
}

var labelOps = map[Kind]labelOp{
	KindBlock:          {moderation.LabelBlocked, true, "✅ User %s blocked!"},
	KindUnblock:        {moderation.LabelBlocked, false, "✅ User %s unblocked!"},
	KindMute:           {moderation.LabelMuted, true, "🔇 User %s muted!"},
	KindUnmute:         {moderation.LabelMuted, false, "✅ User %s unmuted!"},
	KindAbuse:          {moderation.LabelHostileTarget, true, "😈 User %s is now a gaali target!"},
	KindUnabuse:        {moderation.LabelHostileTarget, false, "✅ User %s removed from abuse list!"},
	KindAddLover:       {moderation.LabelAffectionateTarget, true, "❤️ User %s is now a lover! 💕"},
	KindRemoveLover:    {moderation.LabelAffectionateTarget, false, "💔 User %s is no longer a lover."},
	KindBlockNaughty:   {moderation.LabelConsentBlocked, true, "🔒 User %s blocked from naughty talk!"},
	KindUnblockNaughty: {moderation.LabelConsentBlocked, false, "✅ User %s can now receive naughty talk!"},
}

// listOp describes a command that lists one label's members.
type listOp struct {
	label  moderation.Label
	header string
	empty  string
}

var listOps = map[Kind]listOp{
	KindListBlocked:      {moderation.LabelBlocked, "🚫 **BLOCKED USERS:**", "No blocked users!"},
	KindListMuted:        {moderation.LabelMuted, "🔇 **MUTED USERS:**", "No muted users!"},
	KindListAbuse:        {moderation.LabelHostileTarget, "😈 **ABUSE TARGETS:**", "No abuse targets!"},
	KindListLovers:       {moderation.LabelAffectionateTarget, "❤️ **MY LOVERS:**", "No lovers! 💔"},
	KindListBlockNaughty: {moderation.LabelConsentBlocked, "🔒 **NAUGHTY-BLOCKED USERS:**", "No users blocked from naughty talk!"},
}

const (
	adminsHeader = "👑 **ADMINS:**"
	noAdmins     = "No admins!"
)
