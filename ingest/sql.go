package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/demand-engine/demand"
)

// salesQuery joins sale headers, line items and products. The product
// name is the product identifier.
const salesQuery = `
	SELECT v.VentaID, v.FechaDeVenta, p.NombreProducto, d.CantidadVendida
	FROM Ventas v
	JOIN DetalleVentas d ON d.VentaID = v.VentaID
	JOIN Productos p ON p.ProductoID = d.ProductoID
	ORDER BY v.FechaDeVenta, v.VentaID`

// SQLSource pulls sales records from the relational sales database. Any
// database/sql driver works; the server registers sqlite3 and pgx.
type SQLSource struct {
	DB *sql.DB
}

func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{DB: db}
}

// Pull runs the sales join once on a single dedicated connection. The
// connection and the result set are released on every return path.
func (s *SQLSource) Pull(ctx context.Context) ([]demand.SalesRecord, error) {
	start := time.Now()

	conn, err := s.DB.Conn(ctx)
	if err != nil {
		return nil, &demand.ExternalSourceError{Op: "connect", Err: err}
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, salesQuery)
	if err != nil {
		return nil, &demand.ExternalSourceError{Op: "query", Err: err}
	}
	defer rows.Close()

	var records []demand.SalesRecord
	for rows.Next() {
		var (
			saleID  int64
			soldAt  time.Time
			product string
			qty     decimal.Decimal
		)
		if err := rows.Scan(&saleID, &soldAt, &product, &qty); err != nil {
			return nil, &demand.ExternalSourceError{Op: "scan", Err: fmt.Errorf("row %d: %w", len(records)+1, err)}
		}
		records = append(records, demand.SalesRecord{
			Date:     soldAt,
			Product:  demand.ProductID(product),
			Quantity: qty,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &demand.ExternalSourceError{Op: "read", Err: err}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("sales query returned no rows: %w", demand.ErrNoData)
	}

	zerolog.Ctx(ctx).Debug().
		Int("records", len(records)).
		Dur("took", time.Since(start)).
		Msg("pulled sales from database")
	return records, nil
}
