package executor

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"catalystcore/xerrors"
)

const timeLayout = time.RFC3339Nano

// Store is the §6 executed_orders table, grounded on store/strategy.go's
// database/sql-backed shape (the same pattern position.Store uses).
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and ensures
// the executed_orders schema exists. It is safe to point this at the same
// file position.Store uses; the two keep independent connections.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrStateCorruption, "opening executor store", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS executed_orders (
			order_id TEXT PRIMARY KEY,
			client_order_id TEXT,
			ticker TEXT NOT NULL,
			signal_id TEXT,
			side TEXT NOT NULL,
			order_type TEXT NOT NULL,
			quantity TEXT NOT NULL,
			filled_quantity TEXT,
			limit_price TEXT,
			stop_price TEXT,
			filled_avg_price TEXT,
			status TEXT NOT NULL,
			submitted_at TIMESTAMP NOT NULL,
			filled_at TIMESTAMP,
			cancelled_at TIMESTAMP,
			error_message TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executed_orders_ticker ON executed_orders(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_executed_orders_status ON executed_orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_executed_orders_signal_id ON executed_orders(signal_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return xerrors.Wrap(xerrors.ErrStateCorruption, "initializing executor schema", err)
		}
	}
	return nil
}

func (s *Store) insert(o *ExecutedOrder) error {
	now := time.Now().Format(timeLayout)
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO executed_orders (
			order_id, client_order_id, ticker, signal_id, side, order_type,
			quantity, filled_quantity, limit_price, stop_price, filled_avg_price,
			status, submitted_at, filled_at, cancelled_at, error_message,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.OrderID, o.ClientOrderID, o.Ticker, o.SignalID, string(o.Side), string(o.OrderType),
		o.Quantity.String(), nullableDecimal(nonZeroPtr(o.FilledQuantity)), nullableDecimal(o.LimitPrice),
		nullableDecimal(o.StopPrice), nullableDecimal(o.FilledAvgPrice),
		string(o.Status), o.SubmittedAt.Format(timeLayout), nullableTime(o.FilledAt), nullableTime(o.CancelledAt),
		o.ErrorMessage, now, now,
	)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "saving executed order "+o.OrderID, err)
	}
	return nil
}

func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func nonZeroPtr(d decimal.Decimal) *decimal.Decimal {
	if d.IsZero() {
		return nil
	}
	return &d
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(timeLayout)
}
