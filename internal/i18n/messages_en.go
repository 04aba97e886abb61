package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Error messages
	"error.generic":      "Something went wrong. Please try again.",
	"error.unauthorized": "Sorry, this bot is private.",
	"error.taste.usage":  "Usage: /taste <key> <value>\nExample: /taste favorite_artists Sid Sriram, DSP",
	"error.taste.save":   "Couldn't save that preference. Please try again.",

	// Bot status messages
	"bot.startup": "🎶 Hey! Tell me how you feel or what you're up to, and I'll build you a playlist.\n\nCommands:\n/taste <key> <value> - save a preference\n/profile - show saved preferences\n/myid - show your user ID",
	"bot.working": "🎧 On it...",

	// Playlist rendering
	"playlist.header":      "🎶 %s\n%s\n",
	"playlist.entry":       "%d. %s - %s",
	"playlist.more":        "... and %d more",
	"playlist.flow":        "\n🌊 %s",
	"playlist.duration":    "\n⏱ %s",
	"playlist.url":         "\n🔗 %s",
	"playlist.strategy":    "\n🎯 Strategy: %s",
	"playlist.mood":        "\n💫 Mood: %s",
	"playlist.empty":       "I couldn't find any songs for that. Could you tell me more about what you're in the mood for?",
	"playlist.local_only":  "\n⚠️ Couldn't save the playlist to your library, but here it is:",

	// Profile messages
	"profile.empty":  "No preferences saved yet. Use /taste <key> <value> to add one.",
	"profile.header": "🎨 Your taste profile:",
	"profile.entry":  "• %s: %s",
	"profile.saved":  "Saved: %s = %s",

	// Misc
	"myid.reply": "Your user ID: %d",
}
