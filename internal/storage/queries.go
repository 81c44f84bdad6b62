package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"organize/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the statements of one user's ledger.
type Queries struct {
	db     DBTX
	userID string
}

func New(db DBTX, userID string) *Queries {
	return &Queries{db: db, userID: userID}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, userID: q.userID}
}

const transactionColumns = `id, description, amount_cents, type, category, date, month,
	payment_method, card_id, installment_current, installment_total,
	parent_id, transfer_id, is_adjustment, anticipation_of`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t              core.Transaction
		amount         int64
		typ, method    string
		date, month    string
		current, total sql.NullInt64
		adjustment     int64
	)
	err := row.Scan(&t.ID, &t.Description, &amount, &typ, &t.Category, &date, &month,
		&method, &t.CardID, &current, &total, &t.ParentID, &t.TransferID, &adjustment, &t.AnticipationOf)
	if err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("record %s: %w", t.ID, err)
	}
	t.Amount = core.Cents(amount)
	t.Type = core.TransactionType(typ)
	t.Date = d
	t.Month = core.MonthKey(month)
	t.PaymentMethod = core.PaymentMethod(method)
	t.IsAdjustment = adjustment != 0
	if current.Valid && total.Valid {
		t.Installment = &core.Installment{Current: int(current.Int64), Total: int(total.Int64)}
	}
	return t, nil
}

func (q *Queries) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY date, description, id`,
		q.userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ?`,
		q.userID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return t, err
}

func (q *Queries) UpsertTransaction(ctx context.Context, t core.Transaction) error {
	var current, total sql.NullInt64
	if t.Installment != nil {
		current = sql.NullInt64{Int64: int64(t.Installment.Current), Valid: true}
		total = sql.NullInt64{Int64: int64(t.Installment.Total), Valid: true}
	}
	adjustment := 0
	if t.IsAdjustment {
		adjustment = 1
	}
	_, err := q.db.ExecContext(ctx, `
INSERT INTO transactions (user_id, `+transactionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, id) DO UPDATE SET
	description = excluded.description,
	amount_cents = excluded.amount_cents,
	type = excluded.type,
	category = excluded.category,
	date = excluded.date,
	month = excluded.month,
	payment_method = excluded.payment_method,
	card_id = excluded.card_id,
	installment_current = excluded.installment_current,
	installment_total = excluded.installment_total,
	parent_id = excluded.parent_id,
	transfer_id = excluded.transfer_id,
	is_adjustment = excluded.is_adjustment,
	anticipation_of = excluded.anticipation_of,
	updated_at = CURRENT_TIMESTAMP`,
		q.userID, t.ID, t.Description, t.Amount.Cents, string(t.Type), t.Category,
		t.Date.String(), t.Month.String(), string(t.PaymentMethod), t.CardID,
		current, total, t.ParentID, t.TransferID, adjustment, t.AnticipationOf)
	return err
}

func (q *Queries) DeleteTransaction(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND id = ?`, q.userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (q *Queries) CountCardReferences(ctx context.Context, cardID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = ? AND card_id = ?`,
		q.userID, cardID).Scan(&n)
	return n, err
}

func (q *Queries) ListCards(ctx context.Context) ([]core.Card, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, name, holder, limit_cents, closing_day, due_day, color
FROM cards WHERE user_id = ? ORDER BY name, id`, q.userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Card
	for rows.Next() {
		var (
			c     core.Card
			limit int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Holder, &limit, &c.ClosingDay, &c.DueDay, &c.Color); err != nil {
			return nil, err
		}
		c.Limit = core.Cents(limit)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) UpsertCard(ctx context.Context, c core.Card) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO cards (user_id, id, name, holder, limit_cents, closing_day, due_day, color)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, id) DO UPDATE SET
	name = excluded.name,
	holder = excluded.holder,
	limit_cents = excluded.limit_cents,
	closing_day = excluded.closing_day,
	due_day = excluded.due_day,
	color = excluded.color`,
		q.userID, c.ID, c.Name, c.Holder, c.Limit.Cents, c.ClosingDay, c.DueDay, c.Color)
	return err
}

func (q *Queries) DeleteCard(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM cards WHERE user_id = ? AND id = ?`, q.userID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("card %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// GetSettings returns the stored settings document and whether one exists.
func (q *Queries) GetSettings(ctx context.Context) (core.UserSettings, bool, error) {
	var doc string
	err := q.db.QueryRowContext(ctx,
		`SELECT document FROM user_settings WHERE user_id = ?`, q.userID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserSettings{}, false, nil
	}
	if err != nil {
		return core.UserSettings{}, false, err
	}
	var s core.UserSettings
	if err := json.Unmarshal([]byte(doc), &s); err != nil {
		return core.UserSettings{}, false, fmt.Errorf("decode settings: %w", err)
	}
	if s.CategoryLimits == nil {
		s.CategoryLimits = map[string]core.Money{}
	}
	return s, true, nil
}

func (q *Queries) SaveSettings(ctx context.Context, s core.UserSettings) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = q.db.ExecContext(ctx, `
INSERT INTO user_settings (user_id, document) VALUES (?, ?)
ON CONFLICT (user_id) DO UPDATE SET document = excluded.document, updated_at = CURRENT_TIMESTAMP`,
		q.userID, string(doc))
	return err
}

func (q *Queries) GetRevision(ctx context.Context) (int64, error) {
	var rev int64
	err := q.db.QueryRowContext(ctx,
		`SELECT revision FROM ledger_revisions WHERE user_id = ?`, q.userID).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return rev, err
}

func (q *Queries) BumpRevision(ctx context.Context) (int64, error) {
	var rev int64
	err := q.db.QueryRowContext(ctx, `
INSERT INTO ledger_revisions (user_id, revision) VALUES (?, 1)
ON CONFLICT (user_id) DO UPDATE SET revision = revision + 1
RETURNING revision`, q.userID).Scan(&rev)
	return rev, err
}
