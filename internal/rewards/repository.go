package rewards

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/database"
)

const (
	productColumns    = `id, name, description, leaf_cost, stock, image_key, created_at, updated_at`
	collectionColumns = `id, account_id, product_id, product_name, quantity, leaf_points, collection_id, location, status, collected_at, created_at`
)

// Repository handles products and collections.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a rewards repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.LeafCost, &p.Stock, &p.ImageKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanCollection(row rowScanner) (*models.CollectInformation, error) {
	var c models.CollectInformation
	err := row.Scan(&c.ID, &c.AccountID, &c.ProductID, &c.ProductName, &c.Quantity, &c.LeafPoints, &c.CollectionID,
		&c.Location, &c.Status, &c.CollectedAt, &c.CreatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrCollectionNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreateProduct inserts p.
func (r *Repository) CreateProduct(ctx context.Context, p *models.Product) error {
	const q = `INSERT INTO products (name, description, leaf_cost, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.Name, p.Description, p.LeafCost, p.Stock).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetProduct returns a product by id.
func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// ListProducts returns all products by name.
func (r *Repository) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// UpdateProduct overwrites the editable fields of p.
func (r *Repository) UpdateProduct(ctx context.Context, p *models.Product) error {
	const q = `UPDATE products SET name = $1, description = $2, leaf_cost = $3, stock = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, p.Name, p.Description, p.LeafCost, p.Stock, p.ID).Scan(&p.UpdatedAt)
	if database.IsNoRows(err) {
		return ErrProductNotFound
	}
	return err
}

// SetProductImage stores the image key and returns the previous one.
func (r *Repository) SetProductImage(ctx context.Context, id uuid.UUID, key string) (string, error) {
	const q = `UPDATE products p SET image_key = $1, updated_at = NOW()
		FROM (SELECT image_key FROM products WHERE id = $2 FOR UPDATE) old
		WHERE p.id = $2
		RETURNING old.image_key`
	var prev string
	err := r.pool.QueryRow(ctx, q, key, id).Scan(&prev)
	if database.IsNoRows(err) {
		return "", ErrProductNotFound
	}
	return prev, err
}

// DeleteProduct removes a product that was never redeemed.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrProductInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Redeem takes stock and leaf points and records c in one transaction. c must carry AccountID,
// ProductID, Quantity, CollectionID and Location; the rest is filled in. It returns the remaining balance.
func (r *Repository) Redeem(ctx context.Context, c *models.CollectInformation) (int, error) {
	var balance int
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var cost int
		err := tx.QueryRow(ctx, `UPDATE products SET stock = stock - $2, updated_at = NOW()
			WHERE id = $1 AND stock >= $2
			RETURNING name, leaf_cost`, c.ProductID, c.Quantity).Scan(&c.ProductName, &cost)
		if database.IsNoRows(err) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, c.ProductID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrProductNotFound
			}
			return ErrOutOfStock
		}
		if err != nil {
			return fmt.Errorf("take stock: %w", err)
		}

		c.LeafPoints = cost * c.Quantity
		err = tx.QueryRow(ctx, `UPDATE accounts SET leaf_points = leaf_points - $2, updated_at = NOW()
			WHERE id = $1 AND leaf_points >= $2
			RETURNING leaf_points`, c.AccountID, c.LeafPoints).Scan(&balance)
		if database.IsNoRows(err) {
			return ErrInsufficientPoints
		}
		if err != nil {
			return fmt.Errorf("debit leaf points: %w", err)
		}

		const q = `INSERT INTO collect_informations (account_id, product_id, product_name, quantity, leaf_points, collection_id, location)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, status, created_at`
		err = tx.QueryRow(ctx, q, c.AccountID, c.ProductID, c.ProductName, c.Quantity, c.LeafPoints, c.CollectionID, c.Location).
			Scan(&c.ID, &c.Status, &c.CreatedAt)
		if database.IsUniqueViolation(err, "collect_informations_collection_id_key") {
			return ErrCollectionIDCollision
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *Repository) listCollections(ctx context.Context, q string, args ...interface{}) ([]models.CollectInformation, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.CollectInformation{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// ListCollections returns collections, optionally only those with status.
func (r *Repository) ListCollections(ctx context.Context, status string) ([]models.CollectInformation, error) {
	return r.listCollections(ctx, `SELECT `+collectionColumns+` FROM collect_informations
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC`, status)
}

// ListCollectionsByAccount returns an account's collections, newest first.
func (r *Repository) ListCollectionsByAccount(ctx context.Context, accountID uuid.UUID) ([]models.CollectInformation, error) {
	return r.listCollections(ctx, `SELECT `+collectionColumns+` FROM collect_informations
		WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
}

// MarkCollected flips a Pending collection to Collected.
func (r *Repository) MarkCollected(ctx context.Context, id uuid.UUID) (*models.CollectInformation, error) {
	c, err := scanCollection(r.pool.QueryRow(ctx, `UPDATE collect_informations SET status = 'Collected', collected_at = NOW()
		WHERE id = $1 AND status = 'Pending'
		RETURNING `+collectionColumns, id))
	if !errors.Is(err, ErrCollectionNotFound) {
		return c, err
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM collect_informations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyCollected
	}
	return nil, ErrCollectionNotFound
}
