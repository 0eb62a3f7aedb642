package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Conte777/tgnewsfeed/internal/domain/feed/consts"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/dto"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/entities"
)

// maxMessageLength is the Telegram limit for one text message, in runes
const maxMessageLength = 4096

const dateLayout = "02.01.2006 15:04"

func channelLabel(username string, title *string) string {
	if title != nil && *title != "" {
		return *title
	}
	return "@" + username
}

// formatPost renders a post with a channel and date header, clamped to one message
func formatPost(post entities.PostWithChannel) string {
	header := fmt.Sprintf("📡 %s\n🕒 %s UTC\n\n", channelLabel(post.ChannelUsername, post.ChannelTitle), post.Date.UTC().Format(dateLayout))
	room := maxMessageLength - utf8.RuneCountInString(header)
	return header + clampRunes(post.Text, room)
}

func clampRunes(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-1]) + "…"
}

func formatStats(stats *entities.Stats) string {
	return fmt.Sprintf(
		"📊 Bot statistics\n\n👥 Users: %d\n📝 Posts: %d\n📡 Channels: %d\n❤️ Saved posts: %d",
		stats.Users, stats.Posts, stats.Channels, stats.SavedPosts,
	)
}

func formatSuggestions(summary *dto.SuggestionsSummary) string {
	if summary.Total == 0 {
		return "No channels have been suggested yet."
	}

	var sb strings.Builder
	sb.WriteString("📋 Suggested channels:\n\n")

	for i, s := range summary.Latest {
		fmt.Fprintf(&sb, "%d. @%s\n", i+1, s.ChannelUsername)
		if s.UserID != nil {
			fmt.Fprintf(&sb, "   From: %d\n", *s.UserID)
		}
		fmt.Fprintf(&sb, "   Date: %s\n", s.CreatedAt.UTC().Format(dateLayout))
		if s.Comment != nil {
			fmt.Fprintf(&sb, "   Comment: %s\n", *s.Comment)
		}
		sb.WriteString("\n")
	}

	if rest := summary.Total - len(summary.Latest); rest > 0 {
		fmt.Fprintf(&sb, "…and %d more\n\n", rest)
	}

	sb.WriteString("To add a channel use /addchannel @username")
	return sb.String()
}

func formatAddChannel(result *dto.AddChannelResult) string {
	return fmt.Sprintf("✅ Channel @%s added.\n\nPosts fetched: %d", result.Username, result.PostsAdded)
}

func helpText(isAdmin bool) string {
	var sb strings.Builder
	sb.WriteString("I collect posts from public Telegram channels into one feed.\n\n")
	for _, cmd := range consts.AllCommands {
		if cmd.AdminOnly {
			continue
		}
		fmt.Fprintf(&sb, "/%s - %s\n", cmd.Name, cmd.Description)
	}

	if isAdmin {
		sb.WriteString("\nAdmin commands:\n")
		for _, cmd := range consts.AllCommands {
			if cmd.AdminOnly {
				fmt.Fprintf(&sb, "/%s - %s\n", cmd.Name, cmd.Description)
			}
		}
	}
	return sb.String()
}
