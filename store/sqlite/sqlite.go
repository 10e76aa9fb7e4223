/*
Package sqlite provides the SQLite-backed sales database.

PURPOSE:
  Holds the relational sales schema that the relational pull reads from
  (ingest.SQLSource). The server can pull from it at startup, and the
  seed command writes demo scenarios into it. In production, the same
  schema lives in PostgreSQL and is read through the pgx driver.

KEY TABLES:
  Productos:      Product catalogue (ProductoID, NombreProducto)
  Ventas:         Sale headers (VentaID, FechaDeVenta)
  DetalleVentas:  Sale lines (VentaID, ProductoID, CantidadVendida)

INDEXES:
  - idx_productos_nombre:       Unique product names (the product identifier)
  - idx_detalle_venta:          Join from header to lines
  - idx_ventas_fecha:           Chronological pull

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./sales.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  src := ingest.NewSQLSource(store.DB())
  records, err := src.Pull(ctx)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - ingest/sql.go: The sales join
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/demand-engine/demand"
)

// dateLayout is how FechaDeVenta is written. The column is declared DATE so
// the driver scans it back as time.Time.
const dateLayout = "2006-01-02"

// Store is the SQLite sales database.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the sales database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases are per connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for read-only consumers such as ingest.SQLSource.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS Productos (
		ProductoID INTEGER PRIMARY KEY AUTOINCREMENT,
		NombreProducto TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_productos_nombre
		ON Productos(NombreProducto);

	CREATE TABLE IF NOT EXISTS Ventas (
		VentaID INTEGER PRIMARY KEY AUTOINCREMENT,
		FechaDeVenta DATE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ventas_fecha
		ON Ventas(FechaDeVenta);

	CREATE TABLE IF NOT EXISTS DetalleVentas (
		DetalleID INTEGER PRIMARY KEY AUTOINCREMENT,
		VentaID INTEGER NOT NULL REFERENCES Ventas(VentaID) ON DELETE CASCADE,
		ProductoID INTEGER NOT NULL REFERENCES Productos(ProductoID),
		CantidadVendida NUMERIC NOT NULL CHECK (CantidadVendida >= 0)
	);

	CREATE INDEX IF NOT EXISTS idx_detalle_venta
		ON DetalleVentas(VentaID);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PRODUCTS
// =============================================================================

// Product is a catalogue entry.
type Product struct {
	ID   int64
	Name string
}

// SaveProduct inserts a product by name, or returns the existing one.
func (s *Store) SaveProduct(ctx context.Context, name string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveProduct(ctx, s.db, name)
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func saveProduct(ctx context.Context, db execQuerier, name string) (Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, &demand.ValidationError{Field: "NombreProducto", Reason: "empty"}
	}

	_, err := db.ExecContext(ctx,
		"INSERT INTO Productos (NombreProducto) VALUES (?) ON CONFLICT(NombreProducto) DO NOTHING",
		name,
	)
	if err != nil {
		return Product{}, fmt.Errorf("failed to save product: %w", err)
	}

	p := Product{Name: name}
	err = db.QueryRowContext(ctx,
		"SELECT ProductoID FROM Productos WHERE NombreProducto = ?", name,
	).Scan(&p.ID)
	if err != nil {
		return Product{}, fmt.Errorf("failed to load product: %w", err)
	}
	return p, nil
}

// ListProducts returns the catalogue ordered by name.
func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT ProductoID, NombreProducto FROM Productos ORDER BY NombreProducto")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// =============================================================================
// SALES
// =============================================================================

// SaleLine is one product on a sale.
type SaleLine struct {
	ProductID int64
	Quantity  decimal.Decimal
}

// Sale is a sale header with its lines.
type Sale struct {
	ID     int64
	SoldAt time.Time
	Lines  []SaleLine
}

// SaveSale writes the header and all lines atomically and returns the new
// VentaID.
func (s *Store) SaveSale(ctx context.Context, sale Sale) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	id, err := saveSale(ctx, sqlTx, sale)
	if err != nil {
		return 0, err
	}
	return id, sqlTx.Commit()
}

func saveSale(ctx context.Context, db execQuerier, sale Sale) (int64, error) {
	if len(sale.Lines) == 0 {
		return 0, &demand.ValidationError{Field: "DetalleVentas", Reason: "a sale needs at least one line"}
	}

	res, err := db.ExecContext(ctx,
		"INSERT INTO Ventas (FechaDeVenta) VALUES (?)",
		sale.SoldAt.UTC().Format(dateLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sale: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, line := range sale.Lines {
		if line.Quantity.IsNegative() {
			return 0, &demand.ValidationError{Field: "CantidadVendida", Reason: "must not be negative"}
		}
		_, err := db.ExecContext(ctx,
			"INSERT INTO DetalleVentas (VentaID, ProductoID, CantidadVendida) VALUES (?, ?, ?)",
			id, line.ProductID, line.Quantity.String(),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert sale line: %w", err)
		}
	}
	return id, nil
}

// SaveRecords writes a batch of sales records as sales, one sale per
// calendar day, creating products as needed. All or nothing.
func (s *Store) SaveRecords(ctx context.Context, records []demand.SalesRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	productIDs := make(map[demand.ProductID]int64)
	byDay := make(map[time.Time][]SaleLine)
	for _, r := range records {
		id, ok := productIDs[r.Product]
		if !ok {
			p, err := saveProduct(ctx, sqlTx, string(r.Product))
			if err != nil {
				return 0, err
			}
			id = p.ID
			productIDs[r.Product] = id
		}
		day := r.Day()
		byDay[day] = append(byDay[day], SaleLine{ProductID: id, Quantity: r.Quantity})
	}

	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	for _, d := range days {
		if _, err := saveSale(ctx, sqlTx, Sale{SoldAt: d, Lines: byDay[d]}); err != nil {
			return 0, err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, err
	}
	return len(days), nil
}

// CountSales returns the number of sale headers.
func (s *Store) CountSales(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM Ventas").Scan(&n)
	return n, err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"DetalleVentas", "Ventas", "Productos"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
