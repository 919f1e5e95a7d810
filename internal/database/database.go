package database

import (
	"database/sql"

	"fiyat-bot/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DB wraps the sqlite connection.
type DB struct {
	conn *sql.DB
}

// New opens the database and creates the schema if needed.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db := &DB{conn: conn}

	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info("Database initialized")
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) init() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		owner_id INTEGER NOT NULL,
		last_price TEXT,
		last_promo_price TEXT,
		last_stock TEXT NOT NULL DEFAULT 'unknown',
		target_price TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(url, owner_id)
	);
	`

	if _, err := db.conn.Exec(createTableSQL); err != nil {
		return errors.Wrap(err, "failed to create products table")
	}
	return nil
}

// UpsertProduct inserts a product or, when the owner already tracks the same
// URL, replaces the stored values in place (the row id is preserved).
func (db *DB) UpsertProduct(p models.Product) error {
	_, err := db.conn.Exec(
		`INSERT INTO products (url, owner_id, last_price, last_promo_price, last_stock, target_price)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url, owner_id) DO UPDATE SET
			last_price = excluded.last_price,
			last_promo_price = excluded.last_promo_price,
			last_stock = excluded.last_stock,
			target_price = excluded.target_price`,
		p.URL, p.OwnerID, nullDecimalValue(p.LastPrice), nullDecimalValue(p.LastPromoPrice),
		string(p.LastStock), p.TargetPrice.String(),
	)
	return errors.Wrap(err, "failed to upsert product")
}

// ListAll returns every tracked product.
func (db *DB) ListAll() ([]models.Product, error) {
	rows, err := db.conn.Query(
		"SELECT id, url, owner_id, last_price, last_promo_price, last_stock, target_price, created_at FROM products")
	if err != nil {
		return nil, errors.Wrap(err, "failed to query products")
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ListByOwner returns the products tracked by one owner.
func (db *DB) ListByOwner(ownerID int64) ([]models.Product, error) {
	rows, err := db.conn.Query(
		"SELECT id, url, owner_id, last_price, last_promo_price, last_stock, target_price, created_at FROM products WHERE owner_id = ?",
		ownerID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query products for owner %d", ownerID)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// DeleteProduct removes a product by id, scoped to its owner.
// Returns false when no such row exists.
func (db *DB) DeleteProduct(id, ownerID int64) (bool, error) {
	res, err := db.conn.Exec("DELETE FROM products WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete product")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateObserved stores the latest extraction result for a product.
func (db *DB) UpdateObserved(id int64, price, promo decimal.NullDecimal, stock models.StockState) error {
	_, err := db.conn.Exec(
		"UPDATE products SET last_price = ?, last_promo_price = ?, last_stock = ? WHERE id = ?",
		nullDecimalValue(price), nullDecimalValue(promo), string(stock), id,
	)
	return errors.Wrapf(err, "failed to update product %d", id)
}

func scanProducts(rows *sql.Rows) ([]models.Product, error) {
	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(rows *sql.Rows) (models.Product, error) {
	var p models.Product
	var lastPrice, lastPromo sql.NullString
	var stock, target string
	if err := rows.Scan(&p.ID, &p.URL, &p.OwnerID, &lastPrice, &lastPromo, &stock, &target, &p.CreatedAt); err != nil {
		return p, errors.Wrap(err, "failed to scan product row")
	}

	var err error
	if p.LastPrice, err = parseNullDecimal(lastPrice); err != nil {
		return p, err
	}
	if p.LastPromoPrice, err = parseNullDecimal(lastPromo); err != nil {
		return p, err
	}
	if p.TargetPrice, err = decimal.NewFromString(target); err != nil {
		return p, errors.Wrapf(err, "invalid target price %q", target)
	}
	p.LastStock = models.StockState(stock)
	return p, nil
}

func parseNullDecimal(s sql.NullString) (decimal.NullDecimal, error) {
	if !s.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.NullDecimal{}, errors.Wrapf(err, "invalid stored price %q", s.String)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func nullDecimalValue(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}
