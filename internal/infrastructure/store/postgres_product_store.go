package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/checkout"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const productColumns = `id, name, price, inventory, category,
	COALESCE(tags, '') AS tags,
	COALESCE(keywords, '') AS keywords,
	COALESCE(thumbnail_url, '') AS thumbnail_url,
	COALESCE(gallery_urls, '') AS gallery_urls,
	COALESCE(tagline, '') AS tagline,
	COALESCE(description, '') AS description,
	discount_percent, added_date, restock_date`

// PostgresProductStore is the inventory store backed by the product table.
type PostgresProductStore struct {
	db *sqlx.DB
}

func NewPostgresProductStore(db *sqlx.DB) *PostgresProductStore {
	return &PostgresProductStore{db: db}
}

func (s *PostgresProductStore) Get(ctx context.Context, id int) (*product.Product, bool, error) {
	var p product.Product
	err := s.db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM product WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable(err, "get product %d", id)
	}
	return &p, true, nil
}

func (s *PostgresProductStore) List(ctx context.Context, filter product.Filter, sort product.Sort, limit, offset int) ([]product.Product, error) {
	where, args := filterClause(filter)
	query := `SELECT ` + productColumns + ` FROM product` + where + orderClause(sort) + ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	products := []product.Product{}
	if err := s.db.SelectContext(ctx, &products, s.db.Rebind(query), args...); err != nil {
		return nil, unavailable(err, "list products")
	}
	return products, nil
}

func (s *PostgresProductStore) Count(ctx context.Context, filter product.Filter) (int, error) {
	where, args := filterClause(filter)
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM product`+where), args...); err != nil {
		return 0, unavailable(err, "count products")
	}
	return n, nil
}

func (s *PostgresProductStore) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	if err := s.db.SelectContext(ctx, &categories, `SELECT DISTINCT category FROM product ORDER BY category`); err != nil {
		return nil, unavailable(err, "load categories")
	}
	return categories, nil
}

func (s *PostgresProductStore) Insert(ctx context.Context, n product.NewProduct) (*product.Product, error) {
	var row struct {
		ID        int       `db:"id"`
		AddedDate time.Time `db:"added_date"`
	}
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO product (name, price, inventory, category, tags, keywords, thumbnail_url,
			gallery_urls, tagline, description, discount_percent, restock_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, added_date`,
		n.Name, n.Price, n.Inventory, n.Category, n.Tags, n.Keywords, n.ThumbnailURL,
		n.GalleryURLs, n.Tagline, n.Description, n.DiscountPercent, n.RestockDate,
	).StructScan(&row)
	if err != nil {
		return nil, unavailable(err, "insert product %q", n.Name)
	}
	p := n.Build(row.ID, row.AddedDate)
	return &p, nil
}

func (s *PostgresProductStore) Save(ctx context.Context, p *product.Product) error {
	res, err := s.db.NamedExecContext(ctx,
		`UPDATE product SET name = :name, price = :price, inventory = :inventory,
			category = :category, tags = :tags, keywords = :keywords,
			thumbnail_url = :thumbnail_url, gallery_urls = :gallery_urls, tagline = :tagline,
			description = :description, discount_percent = :discount_percent,
			restock_date = :restock_date
		 WHERE id = :id`, p)
	if err != nil {
		return unavailable(err, "save product %d", p.ID)
	}
	return requireRow(res, product.ErrProductNotFound, "save product %d", p.ID)
}

func (s *PostgresProductStore) Delete(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM product WHERE id = $1`, id)
	if err != nil {
		return unavailable(err, "delete product %d", id)
	}
	return requireRow(res, product.ErrProductNotFound, "delete product %d", id)
}

// WithinTx runs fn in a database transaction. Rows read through the
// transaction are locked with SELECT ... FOR UPDATE until it ends.
func (s *PostgresProductStore) WithinTx(ctx context.Context, fn func(tx checkout.InventoryTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable(err, "begin inventory transaction")
	}

	if err := fn(&postgresInventoryTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable(err, "commit inventory transaction")
	}
	return nil
}

type postgresInventoryTx struct {
	tx *sqlx.Tx
}

func (t *postgresInventoryTx) Inventory(ctx context.Context, id int) (int, error) {
	var inventory int
	err := t.tx.GetContext(ctx, &inventory, `SELECT inventory FROM product WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, product.ErrProductNotFound
	}
	if err != nil {
		return 0, unavailable(err, "lock product %d", id)
	}
	return inventory, nil
}

func (t *postgresInventoryTx) Decrement(ctx context.Context, id int, amount int) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE product SET inventory = inventory - $1 WHERE id = $2 AND inventory >= $1`,
		amount, id,
	)
	if err != nil {
		return unavailable(err, "decrement product %d", id)
	}
	return requireRow(res, checkout.ErrInsufficientInventory, "decrement product %d", id)
}

func filterClause(f product.Filter) (string, []any) {
	f = f.Normalize()
	var conds []string
	var args []any
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Tag != "" {
		conds = append(conds, "tags LIKE ?")
		args = append(args, "%"+escapeLike(f.Tag)+"%")
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		conds = append(conds, "(name ILIKE ? OR description ILIKE ? OR tagline ILIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(sort product.Sort) string {
	switch sort {
	case product.SortAlpha:
		return " ORDER BY name ASC, id ASC"
	case product.SortPriceHigh:
		return " ORDER BY price DESC, id ASC"
	default:
		return " ORDER BY price ASC, id ASC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// requireRow turns a zero-row result into notFound.
func requireRow(res sql.Result, notFound error, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(err, format, args...)
	}
	if n == 0 {
		return errors.Wrapf(notFound, format, args...)
	}
	return nil
}

var (
	_ product.Repository      = (*PostgresProductStore)(nil)
	_ checkout.InventoryStore = (*PostgresProductStore)(nil)
)
