// Package consts contains constants for the feed domain
package consts

// Command represents a bot command
type Command struct {
	Name        string
	Description string
	AdminOnly   bool
}

// Bot commands
var (
	CommandStart       = Command{Name: "start", Description: "Start the bot"}
	CommandHelp        = Command{Name: "help", Description: "Show help message"}
	CommandFeed        = Command{Name: "feed", Description: "Latest posts"}
	CommandSaved       = Command{Name: "saved", Description: "Your saved posts"}
	CommandSuggest     = Command{Name: "suggest", Description: "Suggest a channel"}
	CommandFeedback    = Command{Name: "feedback", Description: "Send feedback"}
	CommandStats       = Command{Name: "stats", Description: "Bot statistics", AdminOnly: true}
	CommandAddChannel  = Command{Name: "addchannel", Description: "Add a channel", AdminOnly: true}
	CommandSuggestions = Command{Name: "suggestions", Description: "Suggested channels", AdminOnly: true}
	CommandUpdate      = Command{Name: "update", Description: "Fetch new posts now", AdminOnly: true}
)

// AllCommands contains all available bot commands for menu registration
var AllCommands = []Command{
	CommandStart,
	CommandHelp,
	CommandFeed,
	CommandSaved,
	CommandSuggest,
	CommandFeedback,
	CommandStats,
	CommandAddChannel,
	CommandSuggestions,
	CommandUpdate,
}

// Main menu button labels
const (
	ButtonFeed    = "📰 Feed"
	ButtonSaved   = "⭐ Saved"
	ButtonSuggest = "💡 Suggest channel"
	ButtonHelp    = "❓ Help"
)

// SuggestionsShown is how many suggestions the admin listing prints
const SuggestionsShown = 10
