package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/Conte777/tgnewsfeed/internal/domain/feed/consts"
)

// Callback actions carried in inline button data
const (
	actionSave   = "save"
	actionUnsave = "unsave"
	actionFeed   = "feed"
	actionSaved  = "saved"
)

// callbackData is a decoded inline button payload.
// Post actions use ChannelID and MessageID, page actions use Offset.
type callbackData struct {
	Action    string
	ChannelID uint
	MessageID int
	Offset    int
}

func postCallback(action string, channelID uint, messageID int) string {
	return fmt.Sprintf("%s:%d:%d", action, channelID, messageID)
}

func pageCallback(action string, offset int) string {
	return fmt.Sprintf("%s:%d", action, offset)
}

// parseCallbackData decodes save:<channel>:<msg>, unsave:<channel>:<msg>, feed:<offset> and saved:<offset>
func parseCallbackData(data string) (callbackData, error) {
	parts := strings.Split(data, ":")

	switch parts[0] {
	case actionSave, actionUnsave:
		if len(parts) != 3 {
			return callbackData{}, fmt.Errorf("malformed post callback %q", data)
		}
		channelID, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil || channelID == 0 {
			return callbackData{}, fmt.Errorf("invalid channel id in callback %q", data)
		}
		messageID, err := strconv.Atoi(parts[2])
		if err != nil || messageID <= 0 {
			return callbackData{}, fmt.Errorf("invalid message id in callback %q", data)
		}
		return callbackData{Action: parts[0], ChannelID: uint(channelID), MessageID: messageID}, nil

	case actionFeed, actionSaved:
		if len(parts) != 2 {
			return callbackData{}, fmt.Errorf("malformed page callback %q", data)
		}
		offset, err := strconv.Atoi(parts[1])
		if err != nil || offset < 0 {
			return callbackData{}, fmt.Errorf("invalid offset in callback %q", data)
		}
		return callbackData{Action: parts[0], Offset: offset}, nil

	default:
		return callbackData{}, fmt.Errorf("unknown callback action %q", parts[0])
	}
}

func mainKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: consts.ButtonFeed}, {Text: consts.ButtonSaved}},
			{{Text: consts.ButtonSuggest}, {Text: consts.ButtonHelp}},
		},
		ResizeKeyboard: true,
	}
}

func postKeyboard(channelID uint, messageID int, url string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "❤️ Save", CallbackData: postCallback(actionSave, channelID, messageID)},
			{Text: "🔗 Open", URL: url},
		}},
	}
}

func savedPostKeyboard(channelID uint, messageID int, url string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "❌ Remove", CallbackData: postCallback(actionUnsave, channelID, messageID)},
			{Text: "🔗 Open", URL: url},
		}},
	}
}

func nextPageKeyboard(action string, offset int) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "➡️ Next", CallbackData: pageCallback(action, offset)},
		}},
	}
}
