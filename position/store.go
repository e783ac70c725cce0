package position

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"catalystcore/broker"
	"catalystcore/xerrors"
)

const timeLayout = time.RFC3339Nano

// Store is the §3/§6 `positions`/`closed_positions` embedded relational
// store, grounded on store/strategy.go's one-struct-around-a-*sql.DB shape.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrStateCorruption, "opening position store", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS positions (
			position_id TEXT PRIMARY KEY,
			ticker TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity TEXT NOT NULL,
			entry_price TEXT NOT NULL,
			current_price TEXT NOT NULL,
			cost_basis TEXT NOT NULL,
			market_value TEXT NOT NULL,
			unrealized_pnl TEXT NOT NULL,
			unrealized_pnl_pct TEXT NOT NULL,
			stop_loss_price TEXT,
			take_profit_price TEXT,
			opened_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			entry_order_id TEXT,
			signal_id TEXT,
			strategy TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS closed_positions (
			position_id TEXT PRIMARY KEY,
			ticker TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity TEXT NOT NULL,
			entry_price TEXT NOT NULL,
			exit_price TEXT NOT NULL,
			cost_basis TEXT NOT NULL,
			realized_pnl TEXT NOT NULL,
			realized_pnl_pct TEXT NOT NULL,
			opened_at TIMESTAMP NOT NULL,
			closed_at TIMESTAMP NOT NULL,
			hold_duration_seconds INTEGER NOT NULL,
			exit_reason TEXT,
			exit_order_id TEXT,
			entry_order_id TEXT,
			signal_id TEXT,
			strategy TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_ticker ON positions(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_opened_at ON positions(opened_at)`,
		`CREATE INDEX IF NOT EXISTS idx_closed_positions_ticker ON closed_positions(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_closed_positions_closed_at ON closed_positions(closed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_closed_positions_strategy ON closed_positions(strategy)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return xerrors.Wrap(xerrors.ErrStateCorruption, "initializing position schema", err)
		}
	}
	return nil
}

func (s *Store) upsertPosition(p *Managed) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO positions (
			position_id, ticker, side, quantity,
			entry_price, current_price,
			cost_basis, market_value,
			unrealized_pnl, unrealized_pnl_pct,
			stop_loss_price, take_profit_price,
			opened_at, updated_at,
			entry_order_id, signal_id, strategy
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.PositionID, p.Ticker, string(p.Side), p.Quantity.String(),
		p.EntryPrice.String(), p.CurrentPrice.String(),
		p.CostBasis.String(), p.MarketValue.String(),
		p.UnrealizedPnL.String(), p.UnrealizedPnLPct.String(),
		nullableDecimal(p.StopLossPrice), nullableDecimal(p.TakeProfitPrice),
		p.OpenedAt.Format(timeLayout), p.UpdatedAt.Format(timeLayout),
		p.EntryOrderID, p.SignalID, p.Strategy,
	)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "saving position "+p.PositionID, err)
	}
	return nil
}

func (s *Store) deletePosition(positionID string) error {
	_, err := s.db.Exec(`DELETE FROM positions WHERE position_id = ?`, positionID)
	return err
}

func (s *Store) loadOpenPositions() ([]*Managed, error) {
	rows, err := s.db.Query(`
		SELECT position_id, ticker, side, quantity,
		       entry_price, current_price,
		       cost_basis, market_value,
		       unrealized_pnl, unrealized_pnl_pct,
		       stop_loss_price, take_profit_price,
		       opened_at, updated_at,
		       entry_order_id, signal_id, strategy
		FROM positions
	`)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrStateCorruption, "loading positions", err)
	}
	defer rows.Close()

	var out []*Managed
	for rows.Next() {
		var (
			p                                   Managed
			side                                string
			quantity, entry, current            string
			costBasis, marketValue              string
			unrealizedPnL, unrealizedPnLPct      string
			stopLoss, takeProfit                 sql.NullString
			openedAt, updatedAt                  string
		)
		if err := rows.Scan(
			&p.PositionID, &p.Ticker, &side, &quantity,
			&entry, &current,
			&costBasis, &marketValue,
			&unrealizedPnL, &unrealizedPnLPct,
			&stopLoss, &takeProfit,
			&openedAt, &updatedAt,
			&p.EntryOrderID, &p.SignalID, &p.Strategy,
		); err != nil {
			return nil, xerrors.Wrap(xerrors.ErrStateCorruption, "scanning position row", err)
		}
		p.Side = broker.PositionSide(side)
		p.Quantity = mustDecimal(quantity)
		p.EntryPrice = mustDecimal(entry)
		p.CurrentPrice = mustDecimal(current)
		p.CostBasis = mustDecimal(costBasis)
		p.MarketValue = mustDecimal(marketValue)
		p.UnrealizedPnL = mustDecimal(unrealizedPnL)
		p.UnrealizedPnLPct = mustDecimal(unrealizedPnLPct)
		if stopLoss.Valid {
			d := mustDecimal(stopLoss.String)
			p.StopLossPrice = &d
		}
		if takeProfit.Valid {
			d := mustDecimal(takeProfit.String)
			p.TakeProfitPrice = &d
		}
		p.OpenedAt, _ = time.Parse(timeLayout, openedAt)
		p.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *Store) insertClosedPosition(c *Closed) error {
	tx, err := s.db.Begin()
	if err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "closing position "+c.PositionID, err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO closed_positions (
			position_id, ticker, side, quantity,
			entry_price, exit_price,
			cost_basis, realized_pnl, realized_pnl_pct,
			opened_at, closed_at, hold_duration_seconds,
			exit_reason, exit_order_id,
			entry_order_id, signal_id, strategy
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.PositionID, c.Ticker, string(c.Side), c.Quantity.String(),
		c.EntryPrice.String(), c.ExitPrice.String(),
		c.CostBasis.String(), c.RealizedPnL.String(), c.RealizedPnLPct.String(),
		c.OpenedAt.Format(timeLayout), c.ClosedAt.Format(timeLayout), c.HoldDurationSeconds,
		string(c.ExitReason), c.ExitOrderID,
		c.EntryOrderID, c.SignalID, c.Strategy,
	)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "inserting closed position "+c.PositionID, err)
	}
	if _, err := tx.Exec(`DELETE FROM positions WHERE position_id = ?`, c.PositionID); err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "removing open position "+c.PositionID, err)
	}
	return tx.Commit()
}

func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
