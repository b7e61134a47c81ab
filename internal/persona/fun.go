package persona

import "fmt"

var (
	jokes = []string{
		"🤣 Aapka pyaar mere computer jaisa hai - memory mein ho ya na ho, butter toh nahi banata!",
		"😂 Pyaar ek game hai aur main expert hoon... chahal karte ho?",
		"🎪 Aapki hasrat bhi computer jaisa hai - hardware sab theek, software naach karti hai!",
		"😄 Love is simple - ek hi chakra chale!",
	}

	quotes = []string{
		"🌟 Zindagi bohot aasan hai, bas isko complex banate ho tum log!",
		"💫 Khud se mohabbat karo, baaki sab theek ho jayega!",
		"✨ Success wo nahi jo sabko dikhe, success wo hai jo aapko mane!",
		"🌈 Every day is a new opportunity to be better!",
		"💖 Aap apne aap ke liye kaafi ho!",
	}

	tips = []string{
		"💡 Aaj ka tip: Subah jaldi uthne se mood pura din accha rehta hai!",
		"💡 Aaj ka tip: 5 minute meditation aapka stress bahut kam kar dega!",
		"💡 Aaj ka tip: Zyada paani piyo - aapka skin aur health sab theek ho jayega!",
		"💡 Aaj ka tip: Kisi ko thank you kahne se aapka din aur badhiya ho jayega!",
		"💡 Aaj ka tip: Apne aap se pyaar karna seekhte hain tab baaki log bhi pyaar karenge!",
	}

	compliments = []string{
		"Aap so talented ho! 😍",
		"Your smile makes everyone happy~ 💕",
		"Aapka personality amazing hai! 💫",
		"You're actually so inspiring! 🌟",
		"Bilkul unique ho aap! 😊",
		"Your creativity is on another level! 🎨",
		"Aap bahut caring person ho! 💖",
		"You make the world better! 🌍✨",
	}

	fortunes = []string{
		"🔮 Aapke future mein bahut khushi aa rahi hai!",
		"🔮 Success aapka wait kar rahi hai!",
		"🔮 Aapka luck aaj best hai!",
		"🔮 Something beautiful is coming your way~ 💕",
		"🔮 Aapke sapne bilkul poore hone wale hain!",
		"🔮 Great things are coming soon! 🌟",
		"🔮 Today will bring unexpected joy! 😊",
	}

	dares = []string{
		"😈 Dare: Apna favorite song gaao!",
		"😈 Dare: Jo bhi first aaya voice message mein bol do!",
		"😈 Dare: Sabko ek compliment do!",
		"😈 Dare: Apna embarrassing story share karo!",
		"😈 Dare: Aaj kisi ko call karke goodmorning bolna!",
		"😈 Dare: Smiling selfie bhejo!",
		"😈 Dare: Dance karo aur ek photo share karo!",
	}

	truths = []string{
		"🤔 Truth: Aapka biggest crush kaun hai?",
		"🤔 Truth: Kya secret aapko koi nahi janta?",
		"🤔 Truth: Aapka first love kaisa tha?",
		"🤔 Truth: Aapne kab sab se zyada pyaar feel kiya?",
		"🤔 Truth: Aapka wildest dream kya hai?",
		"🤔 Truth: Aapka biggest fear kya hai?",
		"🤔 Truth: Aapne kabhi jhooth bola kisi se?",
	}

	coinSides = []string{"Heads 🪙", "Tails 🪙"}
)

// Joke returns a random joke.
func (r *Replies) Joke() string { return "😂 " + r.pick(jokes) }

// Quote returns a random quote.
func (r *Replies) Quote() string { return "✨ " + r.pick(quotes) }

// Tip returns a random daily tip.
func (r *Replies) Tip() string { return "💡 " + r.pick(tips) }

// Compliment returns a random compliment.
func (r *Replies) Compliment() string { return "💕 " + r.pick(compliments) }

// Fortune returns a random fortune.
func (r *Replies) Fortune() string { return "🔮 " + r.pick(fortunes) }

// Dare returns a random dare.
func (r *Replies) Dare() string { return "😈 " + r.pick(dares) }

// Truth returns a random truth question.
func (r *Replies) Truth() string { return "🤔 " + r.pick(truths) }

// Flip tosses a coin.
func (r *Replies) Flip() string { return "Flip result: " + r.pick(coinSides) }

// Dice rolls a six-sided die.
func (r *Replies) Dice() string {
	return fmt.Sprintf("🎲 You rolled: %d", r.picker.IntN(6)+1)
}

// LoveMeter returns a compatibility score between 1 and 100.
func (r *Replies) LoveMeter() string {
	return fmt.Sprintf("💕 Love Meter: %d%%", r.picker.IntN(100)+1)
}
