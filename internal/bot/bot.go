package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Init connects to the Telegram API.
func Init(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		if err.Error() == "Unauthorized" {
			return nil, errors.New("invalid or expired Telegram token, check TELEGRAM_BOT_TOKEN")
		}
		return nil, errors.Wrap(err, "failed to connect to Telegram")
	}

	api.Debug = false
	log.Infof("Bot authorized as %s", api.Self.UserName)
	return api, nil
}

// Notifier delivers monitor notifications through the bot.
type Notifier struct {
	api *tgbotapi.BotAPI
}

// NewNotifier wraps the bot API as a notification sink.
func NewNotifier(api *tgbotapi.BotAPI) *Notifier {
	return &Notifier{api: api}
}

// Notify sends a plain-text message to the owner's chat.
func (n *Notifier) Notify(ownerID int64, text string) error {
	_, err := n.api.Send(tgbotapi.NewMessage(ownerID, text))
	return errors.Wrapf(err, "failed to deliver notification to %d", ownerID)
}
