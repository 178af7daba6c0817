package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/CatalogForge/internal/domain"
	"github.com/Strob0t/CatalogForge/internal/domain/sku"
)

// InsertProduct persists a product record. The canonical SKU column carries a
// unique index; inserting a taken SKU returns domain.ErrConflict so callers
// can drive deterministic collision resolution off the database itself.
func (s *Store) InsertProduct(ctx context.Context, rec sku.Record) (*sku.Record, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO products (vendor_id, vendor_code, canonical_sku)
		 VALUES ($1, $2, $3)
		 RETURNING id, vendor_id, vendor_code, canonical_sku, created_at`,
		rec.VendorID, rec.VendorCode, rec.CanonicalSKU)

	out, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert product %s: %w", rec.CanonicalSKU, domain.ErrConflict)
		}
		return nil, fmt.Errorf("insert product %s: %w", rec.CanonicalSKU, err)
	}
	return &out, nil
}

// SKUExists reports whether a canonical SKU is already taken.
func (s *Store) SKUExists(ctx context.Context, canonicalSKU string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE canonical_sku = $1)`,
		canonicalSKU).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sku exists %s: %w", canonicalSKU, err)
	}
	return exists, nil
}

// GetProductBySKU retrieves the product holding the given canonical SKU.
func (s *Store) GetProductBySKU(ctx context.Context, canonicalSKU string) (*sku.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, vendor_id, vendor_code, canonical_sku, created_at
		 FROM products WHERE canonical_sku = $1`, canonicalSKU)

	out, err := scanProduct(row)
	if err != nil {
		return nil, notFoundWrap(err, "get product %s", canonicalSKU)
	}
	return &out, nil
}

func scanProduct(row scannable) (sku.Record, error) {
	var rec sku.Record
	err := row.Scan(&rec.ID, &rec.VendorID, &rec.VendorCode, &rec.CanonicalSKU, &rec.CreatedAt)
	return rec, err
}
