package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordFill(f FillRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(fill_id, order_id, account_id, symbol, side, quantity, price, commission, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FillID, f.OrderID, f.AccountID, f.Symbol, f.Side,
		f.Quantity, f.Price, f.Commission, f.Time,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, account_id, total, available, frozen, portfolio)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Time, e.AccountID, e.Total, e.Available, e.Frozen, e.Portfolio,
	)
	return err
}

// ListFillsByOrder returns the fills recorded against one order, oldest
// first.
func (j *SQLiteJournal) ListFillsByOrder(orderID string) ([]FillRecord, error) {
	rows, err := j.db.Query(`
		SELECT fill_id, order_id, account_id, symbol, side, quantity, price, commission, time
		FROM fills WHERE order_id = ? ORDER BY time, fill_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		var f FillRecord
		if err := rows.Scan(&f.FillID, &f.OrderID, &f.AccountID, &f.Symbol, &f.Side,
			&f.Quantity, &f.Price, &f.Commission, &f.Time); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
