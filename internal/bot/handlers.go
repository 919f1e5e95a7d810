package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"fiyat-bot/internal/database"
	"fiyat-bot/internal/models"
	"fiyat-bot/internal/monitor"
	"fiyat-bot/internal/scraper"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const helpText = `🤖 Price Tracking Bot

Commands:

/add <url> <target price> - Track a product page
Example: /add https://www.trendyol.com/x/y-p-123 1500

/list - Show your tracked products

/remove <id> - Stop tracking a product
Example: /remove 1

/check - Check all products now

/help - Show this message`

// Handler serves the chat commands.
type Handler struct {
	api       *tgbotapi.BotAPI
	db        *database.DB
	monitor   *monitor.Monitor
	extractor *scraper.Extractor
}

// NewHandler creates the command handler.
func NewHandler(api *tgbotapi.BotAPI, db *database.DB, mon *monitor.Monitor, extractor *scraper.Extractor) *Handler {
	return &Handler{api: api, db: db, monitor: mon, extractor: extractor}
}

// Run consumes updates until ctx is done.
func (h *Handler) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := h.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			h.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			h.handleMessage(ctx, update.Message)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	parts := strings.Fields(message.Text)
	if len(parts) == 0 {
		return
	}

	command := strings.ToLower(parts[0])
	// Strip an @botname suffix so commands work in groups.
	if idx := strings.Index(command, "@"); idx > 0 {
		command = command[:idx]
	}

	switch command {
	case "/start", "/help":
		h.reply(message.Chat.ID, helpText)
	case "/add":
		h.handleAdd(ctx, message)
	case "/list":
		h.handleList(message)
	case "/remove":
		h.handleRemove(message)
	case "/check":
		h.handleCheck(ctx, message)
	default:
		h.reply(message.Chat.ID, "Unknown command. Use /help to see the available commands.")
	}
}

// parseAddCommand validates the /add arguments. The target price must parse
// as a positive number; this runs before any network fetch.
func parseAddCommand(text string) (string, decimal.Decimal, error) {
	parts := strings.Fields(text)
	if len(parts) < 3 {
		return "", decimal.Decimal{}, errors.New("usage: /add <url> <target price>")
	}

	target, err := decimal.NewFromString(parts[2])
	if err != nil || target.Sign() <= 0 {
		return "", decimal.Decimal{}, errors.New("target price must be a positive number")
	}
	return parts[1], target, nil
}

func (h *Handler) handleAdd(ctx context.Context, message *tgbotapi.Message) {
	url, target, err := parseAddCommand(message.Text)
	if err != nil {
		h.reply(message.Chat.ID, "⚠️ "+err.Error())
		return
	}

	h.reply(message.Chat.ID, "🔍 Fetching product info...")

	res := h.extractor.Extract(ctx, url)
	if !res.Found() {
		h.reply(message.Chat.ID, "❌ Price unavailable. Check the link; the page may be loaded by JavaScript.")
		return
	}

	product := models.Product{
		URL:         url,
		OwnerID:     message.From.ID,
		LastPrice:   decimal.NullDecimal{Decimal: *res.Price, Valid: true},
		LastStock:   res.Stock,
		TargetPrice: target,
	}
	if res.Promo != nil {
		product.LastPromoPrice = decimal.NullDecimal{Decimal: *res.Promo, Valid: true}
	}

	if err := h.db.UpsertProduct(product); err != nil {
		log.WithError(err).Error("Failed to store product")
		h.reply(message.Chat.ID, "❌ Failed to save the product, please try again.")
		return
	}

	text := fmt.Sprintf("✅ Product added!\n\nPrice: %s TL", res.Price.StringFixed(2))
	if res.Promo != nil {
		text += fmt.Sprintf("\nPromo: %s TL", res.Promo.StringFixed(2))
	}
	text += fmt.Sprintf("\nStock: %s\nTarget: %s TL", res.Stock.Label(), target.StringFixed(2))
	h.reply(message.Chat.ID, text)
}

func (h *Handler) handleList(message *tgbotapi.Message) {
	products, err := h.db.ListByOwner(message.From.ID)
	if err != nil {
		log.WithError(err).Error("Failed to list products")
		h.reply(message.Chat.ID, "❌ Failed to load your products.")
		return
	}

	if len(products) == 0 {
		h.reply(message.Chat.ID, "📭 No products tracked yet.")
		return
	}

	var b strings.Builder
	b.WriteString("📋 Your products:\n\n")
	for _, p := range products {
		b.WriteString(fmt.Sprintf("🆔 %d\n", p.ID))
		if p.LastPrice.Valid {
			b.WriteString(fmt.Sprintf("💰 Price: %s TL", p.LastPrice.Decimal.StringFixed(2)))
			if p.LastPromoPrice.Valid {
				b.WriteString(fmt.Sprintf(" | Promo: %s TL", p.LastPromoPrice.Decimal.StringFixed(2)))
			}
			b.WriteString("\n")
		} else {
			b.WriteString("💰 Price: not checked yet\n")
		}
		b.WriteString(fmt.Sprintf("🎯 Target: %s TL | 📦 %s\n", p.TargetPrice.StringFixed(2), p.LastStock.Label()))
		b.WriteString(fmt.Sprintf("🔗 %s\n\n", p.URL))
	}
	h.reply(message.Chat.ID, b.String())
}

func (h *Handler) handleRemove(message *tgbotapi.Message) {
	parts := strings.Fields(message.Text)
	if len(parts) < 2 {
		h.reply(message.Chat.ID, "⚠️ Usage: /remove <id>")
		return
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		h.reply(message.Chat.ID, "⚠️ Invalid id.")
		return
	}

	removed, err := h.db.DeleteProduct(id, message.From.ID)
	if err != nil {
		log.WithError(err).Error("Failed to remove product")
		h.reply(message.Chat.ID, "❌ Failed to remove the product.")
		return
	}
	if !removed {
		h.reply(message.Chat.ID, "❌ Product not found.")
		return
	}
	h.reply(message.Chat.ID, "🗑️ Product removed.")
}

func (h *Handler) handleCheck(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	h.reply(chatID, "⏳ Checking all products...")

	go func() {
		err := h.monitor.CheckAll(ctx)
		switch {
		case errors.Is(err, monitor.ErrCheckInProgress):
			h.reply(chatID, "⏳ A check is already running, try again in a moment.")
		case err != nil:
			log.WithError(err).Error("Manual check failed")
			h.reply(chatID, "❌ Check failed.")
		default:
			h.reply(chatID, "✅ Check complete.")
		}
	}()
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.WithError(err).Warnf("Failed to send reply to %d", chatID)
	}
}
