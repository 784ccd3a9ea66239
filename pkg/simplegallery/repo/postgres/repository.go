package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
	"github.com/tendant/simple-gallery/pkg/simplegallery/idalloc"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL for the catalog tables.
func Schema() string {
	return schemaSQL
}

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// DB is a DBTX that can open transactions, such as *pgxpool.Pool.
type DB interface {
	DBTX
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements simplegallery.Catalog using PostgreSQL
type Repository struct {
	db DB
}

// New creates a new PostgreSQL repository
func New(db DB) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Migrate applies the catalog schema. It is idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return handlePostgresError("migrate", err)
	}
	return nil
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: record not found", operation)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "images") {
				return fmt.Errorf("%w: %s", simplegallery.ErrIdentifierConflict, pgErr.Detail)
			}
			return fmt.Errorf("%w: %s", simplegallery.ErrCollectionExists, pgErr.Detail)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: referenced collection is missing", simplegallery.ErrCollectionNotFound)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: required field %s is missing", simplegallery.ErrStorageFailure, pgErr.ColumnName)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", simplegallery.ErrInvalidCollection, pgErr.ConstraintName)
		case "42P01": // undefined_table
			return fmt.Errorf("%w: table does not exist - database migration required", simplegallery.ErrStorageFailure)
		default:
			return fmt.Errorf("%w: database error in %s: %s (code: %s)", simplegallery.ErrStorageFailure, operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("%w: database error in %s: %w", simplegallery.ErrStorageFailure, operation, err)
}

const collectionColumns = `id, slug, name_es, name_en, name_fr,
	description_es, description_en, description_fr, layout, featured,
	sort_order, location, year_range, tags, image_count, cover_image_src,
	cover_image_placeholder, cover_image_alt_es, cover_image_alt_en,
	cover_image_alt_fr, created_at, updated_at`

const imageColumns = `id, collection_id, title_es, title_en, title_fr,
	description_es, description_en, description_fr, files, original_filename,
	width, height, aspect_ratio, camera, lens, settings, location, photo_date,
	tags, sort_order, featured, mime_type, checksum, created_at, updated_at`

func scanCollection(row pgx.Row) (*simplegallery.Collection, error) {
	var c simplegallery.Collection
	err := row.Scan(
		&c.ID, &c.Slug, &c.Name.ES, &c.Name.EN, &c.Name.FR,
		&c.Description.ES, &c.Description.EN, &c.Description.FR, &c.Layout, &c.Featured,
		&c.SortOrder, &c.Location, &c.YearRange, &c.Tags, &c.ImageCount, &c.CoverImageSrc,
		&c.CoverImagePlaceholder, &c.CoverImageAlt.ES, &c.CoverImageAlt.EN,
		&c.CoverImageAlt.FR, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanImage(row pgx.Row) (*simplegallery.Image, error) {
	var img simplegallery.Image
	err := row.Scan(
		&img.ID, &img.CollectionID, &img.Title.ES, &img.Title.EN, &img.Title.FR,
		&img.Description.ES, &img.Description.EN, &img.Description.FR, &img.Files, &img.OriginalFilename,
		&img.Width, &img.Height, &img.AspectRatio, &img.Camera, &img.Lens, &img.Settings, &img.Location, &img.PhotoDate,
		&img.Tags, &img.SortOrder, &img.Featured, &img.MimeType, &img.Checksum, &img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func tags(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}

func files(f simplegallery.DerivativeSet) simplegallery.DerivativeSet {
	if f == nil {
		return simplegallery.DerivativeSet{}
	}
	return f
}

// Units of work

// WithCollection runs fn in a transaction holding a row lock on the
// collection, which serializes units on the same collection.
func (r *Repository) WithCollection(ctx context.Context, collectionID string, fn func(tx simplegallery.CatalogTx) error) error {
	pgTx, err := r.db.Begin(ctx)
	if err != nil {
		return handlePostgresError("begin", err)
	}
	defer pgTx.Rollback(ctx)

	c, err := scanCollection(pgTx.QueryRow(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = $1 FOR UPDATE`, collectionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return simplegallery.ErrCollectionNotFound
	}
	if err != nil {
		return handlePostgresError("lock collection", err)
	}

	if err := fn(&catalogTx{db: pgTx, collection: c}); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return handlePostgresError("commit", err)
	}
	return nil
}

type catalogTx struct {
	db         DBTX
	collection *simplegallery.Collection
}

func (t *catalogTx) Collection() *simplegallery.Collection {
	cp := *t.collection
	cp.Tags = append([]string(nil), t.collection.Tags...)
	return &cp
}

func (t *catalogTx) Images(ctx context.Context) ([]*simplegallery.Image, error) {
	rows, err := t.db.Query(ctx,
		`SELECT `+imageColumns+` FROM images WHERE collection_id = $1 ORDER BY sort_order, id`, t.collection.ID)
	if err != nil {
		return nil, handlePostgresError("list images", err)
	}
	defer rows.Close()

	result := make([]*simplegallery.Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, handlePostgresError("list images", err)
		}
		result = append(result, img)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("list images", err)
	}
	return result, nil
}

// MaxImageSuffix parses suffixes numerically; ids past 999 sort wrongly as text.
func (t *catalogTx) MaxImageSuffix(ctx context.Context) (int, error) {
	rows, err := t.db.Query(ctx, `SELECT id FROM images WHERE collection_id = $1`, t.collection.ID)
	if err != nil {
		return 0, handlePostgresError("max image suffix", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, handlePostgresError("max image suffix", err)
	}
	return idalloc.MaxSuffix(t.collection.ID, ids), nil
}

func (t *catalogTx) MaxSortOrder(ctx context.Context) (int, error) {
	var max int
	err := t.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(sort_order), 0) FROM images WHERE collection_id = $1`, t.collection.ID).Scan(&max)
	if err != nil {
		return 0, handlePostgresError("max sort order", err)
	}
	return max, nil
}

func (t *catalogTx) InsertImage(ctx context.Context, img *simplegallery.Image) error {
	query := `
		INSERT INTO images (` + imageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	_, err := t.db.Exec(ctx, query,
		img.ID, img.CollectionID, img.Title.ES, img.Title.EN, img.Title.FR,
		img.Description.ES, img.Description.EN, img.Description.FR, files(img.Files), img.OriginalFilename,
		img.Width, img.Height, img.AspectRatio, img.Camera, img.Lens, img.Settings, img.Location, img.PhotoDate,
		tags(img.Tags), img.SortOrder, img.Featured, img.MimeType, img.Checksum, img.CreatedAt, img.UpdatedAt)
	if err != nil {
		return handlePostgresError("insert image", err)
	}
	return nil
}

func (t *catalogTx) DeleteImage(ctx context.Context, imageID string) error {
	tag, err := t.db.Exec(ctx,
		`DELETE FROM images WHERE id = $1 AND collection_id = $2`, imageID, t.collection.ID)
	if err != nil {
		return handlePostgresError("delete image", err)
	}
	if tag.RowsAffected() == 0 {
		return simplegallery.ErrImageNotFound
	}
	return nil
}

func (t *catalogTx) RecountImages(ctx context.Context) (int, error) {
	var count int
	err := t.db.QueryRow(ctx, `
		UPDATE collections
		SET image_count = (SELECT COUNT(*) FROM images WHERE collection_id = $1),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING image_count`, t.collection.ID).Scan(&count)
	if err != nil {
		return 0, handlePostgresError("recount images", err)
	}
	return count, nil
}

// DeleteCollection deletes the locked row; images follow through the foreign
// key cascade.
func (t *catalogTx) DeleteCollection(ctx context.Context) error {
	_, err := t.db.Exec(ctx, `DELETE FROM collections WHERE id = $1`, t.collection.ID)
	if err != nil {
		return handlePostgresError("delete collection", err)
	}
	return nil
}

// Collection operations

func (r *Repository) GetCollection(ctx context.Context, id string) (*simplegallery.Collection, error) {
	c, err := scanCollection(r.db.QueryRow(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, simplegallery.ErrCollectionNotFound
	}
	if err != nil {
		return nil, handlePostgresError("get collection", err)
	}
	return c, nil
}

func (r *Repository) ListCollections(ctx context.Context) ([]*simplegallery.Collection, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+collectionColumns+` FROM collections ORDER BY sort_order, id`)
	if err != nil {
		return nil, handlePostgresError("list collections", err)
	}
	defer rows.Close()

	var result []*simplegallery.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, handlePostgresError("scan collection", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("list collections", err)
	}
	return result, nil
}

func (r *Repository) CreateCollection(ctx context.Context, c *simplegallery.Collection) error {
	query := `
		INSERT INTO collections (
			id, slug, name_es, name_en, name_fr, description_es, description_en,
			description_fr, layout, featured, sort_order, location, year_range,
			tags, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.db.Exec(ctx, query,
		c.ID, c.Slug, c.Name.ES, c.Name.EN, c.Name.FR, c.Description.ES, c.Description.EN,
		c.Description.FR, c.Layout, c.Featured, c.SortOrder, c.Location, c.YearRange,
		tags(c.Tags), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return handlePostgresError("create collection", err)
	}
	return nil
}

// UpdateCollection writes every column except image_count, which only the
// indexer maintains. The slug only changes while the collection is empty;
// the row lock taken by the update orders it against running units.
func (r *Repository) UpdateCollection(ctx context.Context, c *simplegallery.Collection) error {
	query := `
		UPDATE collections SET
			slug = $2, name_es = $3, name_en = $4, name_fr = $5,
			description_es = $6, description_en = $7, description_fr = $8,
			layout = $9, featured = $10, sort_order = $11, location = $12,
			year_range = $13, tags = $14, cover_image_src = $15,
			cover_image_placeholder = $16, cover_image_alt_es = $17,
			cover_image_alt_en = $18, cover_image_alt_fr = $19, updated_at = $20
		WHERE id = $1 AND (slug = $2 OR image_count = 0)`

	tag, err := r.db.Exec(ctx, query,
		c.ID, c.Slug, c.Name.ES, c.Name.EN, c.Name.FR,
		c.Description.ES, c.Description.EN, c.Description.FR,
		c.Layout, c.Featured, c.SortOrder, c.Location,
		c.YearRange, tags(c.Tags), c.CoverImageSrc,
		c.CoverImagePlaceholder, c.CoverImageAlt.ES,
		c.CoverImageAlt.EN, c.CoverImageAlt.FR, c.UpdatedAt)
	if err != nil {
		return handlePostgresError("update collection", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM collections WHERE id = $1)`, c.ID).Scan(&exists)
		if err != nil {
			return handlePostgresError("update collection", err)
		}
		if !exists {
			return simplegallery.ErrCollectionNotFound
		}
		return simplegallery.Reject(simplegallery.ErrInvalidCollection, "slug cannot change while the collection has images")
	}
	return nil
}

// DeleteCollection removes the collection; images go with it through the
// foreign key cascade.
func (r *Repository) DeleteCollection(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError("delete collection", err)
	}
	if tag.RowsAffected() == 0 {
		return simplegallery.ErrCollectionNotFound
	}
	return nil
}

// Image operations

func (r *Repository) GetImage(ctx context.Context, id string) (*simplegallery.Image, error) {
	img, err := scanImage(r.db.QueryRow(ctx,
		`SELECT `+imageColumns+` FROM images WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, simplegallery.ErrImageNotFound
	}
	if err != nil {
		return nil, handlePostgresError("get image", err)
	}
	return img, nil
}

func (r *Repository) ListImages(ctx context.Context, collectionID string) ([]*simplegallery.Image, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if collectionID == "" {
		rows, err = r.db.Query(ctx,
			`SELECT `+imageColumns+` FROM images ORDER BY collection_id, sort_order, id`)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+imageColumns+` FROM images WHERE collection_id = $1 ORDER BY sort_order, id`, collectionID)
	}
	if err != nil {
		return nil, handlePostgresError("list images", err)
	}
	defer rows.Close()

	var result []*simplegallery.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, handlePostgresError("scan image", err)
		}
		result = append(result, img)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("list images", err)
	}
	return result, nil
}

// UpdateImage writes metadata columns only; files and the owning collection
// are never changed.
func (r *Repository) UpdateImage(ctx context.Context, img *simplegallery.Image) error {
	query := `
		UPDATE images SET
			title_es = $2, title_en = $3, title_fr = $4,
			description_es = $5, description_en = $6, description_fr = $7,
			camera = $8, lens = $9, settings = $10, location = $11,
			photo_date = $12, tags = $13, sort_order = $14, featured = $15,
			updated_at = $16
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		img.ID, img.Title.ES, img.Title.EN, img.Title.FR,
		img.Description.ES, img.Description.EN, img.Description.FR,
		img.Camera, img.Lens, img.Settings, img.Location,
		img.PhotoDate, tags(img.Tags), img.SortOrder, img.Featured,
		img.UpdatedAt)
	if err != nil {
		return handlePostgresError("update image", err)
	}
	if tag.RowsAffected() == 0 {
		return simplegallery.ErrImageNotFound
	}
	return nil
}
