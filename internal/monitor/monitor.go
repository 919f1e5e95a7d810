package monitor

import (
	"context"
	"fmt"
	"time"

	"fiyat-bot/internal/models"
	"fiyat-bot/internal/scraper"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ErrCheckInProgress is returned when a monitoring cycle is already running.
var ErrCheckInProgress = errors.New("a check is already running")

// Store is the persistence the monitor needs.
type Store interface {
	ListAll() ([]models.Product, error)
	UpdateObserved(id int64, price, promo decimal.NullDecimal, stock models.StockState) error
}

// Extractor obtains a fresh observation for a product URL.
type Extractor interface {
	Extract(ctx context.Context, url string) scraper.Result
}

// Notifier delivers a message to a product owner. Delivery is best-effort.
type Notifier interface {
	Notify(ownerID int64, text string) error
}

// Monitor re-checks tracked products and decides when to notify their owners.
type Monitor struct {
	store     Store
	extractor Extractor
	notifier  Notifier
	interval  time.Duration

	// Single execution slot: scheduled and manual runs never overlap.
	slot chan struct{}
}

// New creates a monitor.
func New(store Store, extractor Extractor, notifier Notifier, interval time.Duration) *Monitor {
	m := &Monitor{
		store:     store,
		extractor: extractor,
		notifier:  notifier,
		interval:  interval,
		slot:      make(chan struct{}, 1),
	}
	m.slot <- struct{}{}
	return m
}

// Start runs a cycle immediately and then on every tick until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	log.Infof("Monitor started, checking products every %v", m.interval)

	m.runCycle(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Monitor stopped")
			return
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

func (m *Monitor) runCycle(ctx context.Context) {
	if err := m.CheckAll(ctx); err != nil && !errors.Is(err, ErrCheckInProgress) {
		log.WithError(err).Error("Monitoring cycle failed")
	}
}

// CheckAll performs one full pass over all tracked products, sequentially.
// A concurrent call is rejected with ErrCheckInProgress rather than queued.
// No single item may abort the cycle for the others.
func (m *Monitor) CheckAll(ctx context.Context) error {
	select {
	case <-m.slot:
	default:
		return ErrCheckInProgress
	}
	defer func() { m.slot <- struct{}{} }()

	products, err := m.store.ListAll()
	if err != nil {
		return errors.Wrap(err, "failed to list products")
	}

	for _, p := range products {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		m.checkProduct(ctx, p)
	}
	return nil
}

func (m *Monitor) checkProduct(ctx context.Context, p models.Product) {
	res := m.extractor.Extract(ctx, p.URL)
	if !res.Found() {
		// A failed fetch is never a price or stock change.
		log.Warnf("Extraction failed for product %d (%s), skipping this cycle", p.ID, p.URL)
		return
	}

	var message string

	if priceChanged(p.LastPrice, *res.Price) || res.Stock != p.LastStock {
		if err := m.store.UpdateObserved(p.ID, toNull(res.Price), toNull(res.Promo), res.Stock); err != nil {
			log.WithError(err).Errorf("Failed to persist product %d", p.ID)
			return
		}
		message = changeMessage(p, res)
	}

	// Evaluated on the freshly observed price every cycle, with no sent-once
	// latch. When both conditions hold, the target message replaces the
	// change message: at most one notification per product per cycle.
	if res.Price.Cmp(p.TargetPrice) <= 0 {
		message = targetMessage(p, res)
	}

	if message == "" {
		return
	}
	if err := m.notifier.Notify(p.OwnerID, message); err != nil {
		log.WithError(err).Warnf("Failed to notify owner %d for product %d", p.OwnerID, p.ID)
	}
}

func priceChanged(last decimal.NullDecimal, current decimal.Decimal) bool {
	return !last.Valid || !last.Decimal.Equal(current)
}

func toNull(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func changeMessage(p models.Product, res scraper.Result) string {
	oldPrice := "-"
	if p.LastPrice.Valid {
		oldPrice = p.LastPrice.Decimal.StringFixed(2) + " TL"
	}
	return fmt.Sprintf(
		"📢 Price/stock updated!\n\nNew: %s TL\nOld: %s\nStock: %s\n🔗 %s",
		res.Price.StringFixed(2), oldPrice, res.Stock.Label(), p.URL,
	)
}

func targetMessage(p models.Product, res scraper.Result) string {
	return fmt.Sprintf(
		"🎯 Target price reached!\nNew price: %s TL\n🔗 %s",
		res.Price.StringFixed(2), p.URL,
	)
}
