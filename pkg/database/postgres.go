package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/tony-42069/abare-v2/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// storeRecord is one record of any collection, stored as JSONB.
type storeRecord struct {
	Seq        uint64         `gorm:"primaryKey;autoIncrement"`
	Collection string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_store_records_collection_record_id,priority:1"`
	RecordID   string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_store_records_collection_record_id,priority:2"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time
}

func (storeRecord) TableName() string { return "store_records" }

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresStore keeps all collections in a single JSONB table.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects with the given configuration and migrates the record table.
// Connecting, pinging and migrating are bounded by timeout when it is positive.
func OpenPostgres(ctx context.Context, cfg *config.DBConfig, timeout time.Duration) (*PostgresStore, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	pgConfig := postgres.Config{
		DSN:                  dsnWithTimeout(cfg.GetDSN(), timeout),
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(cfg.LogLevel),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&storeRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate store_records: %w", err)
	}
	return NewPostgresStore(db), nil
}

// dsnWithTimeout appends connect_timeout, which libpq counts in whole seconds.
func dsnWithTimeout(dsn string, timeout time.Duration) string {
	if timeout <= 0 {
		return dsn
	}
	seconds := int64((timeout + time.Second - 1) / time.Second)
	return fmt.Sprintf("%s connect_timeout=%d", dsn, seconds)
}

// NewPostgresStore wraps an open gorm handle whose schema is already migrated.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Backend() string { return BackendPostgres }

func (s *PostgresStore) Collection(name string) Collection {
	return &postgresCollection{db: s.db, name: name}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// EnsureUniqueIndex creates a partial expression index over data->>field for the collection's rows.
func (s *PostgresStore) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	if !identifierPattern.MatchString(collection) || !identifierPattern.MatchString(field) {
		return fmt.Errorf("invalid index target %s.%s", collection, field)
	}
	stmt := fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_store_records_%s_%s ON store_records ((data ->> '%s')) WHERE collection = '%s'`,
		collection, field, field, collection)
	if err := s.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
		return fmt.Errorf("create unique index on %s.%s: %w", collection, field, err)
	}
	return nil
}

func (s *PostgresStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type postgresCollection struct {
	db   *gorm.DB
	name string
}

// query scopes a statement to the collection and the filter's equality constraints.
func (c *postgresCollection) query(ctx context.Context, filter Filter) (*gorm.DB, error) {
	q := c.db.WithContext(ctx).Model(&storeRecord{}).Where("collection = ?", c.name)
	for _, key := range sortedKeys(filter) {
		value := filter[key]
		if id, ok := value.(string); ok && key == IDField {
			q = q.Where("record_id = ?", id)
			continue
		}
		if value == nil {
			q = q.Where("(data -> ? IS NULL OR data -> ? = 'null'::jsonb)", key, key)
			continue
		}
		js, err := valueJSON(value)
		if err != nil {
			return nil, fmt.Errorf("encode filter %s: %w", key, err)
		}
		q = q.Where("data -> ? = ?::jsonb", key, js)
	}
	return q, nil
}

func (c *postgresCollection) first(ctx context.Context, filter Filter) (*storeRecord, error) {
	q, err := c.query(ctx, filter)
	if err != nil {
		return nil, err
	}
	var rec storeRecord
	res := q.Order("seq").Limit(1).Find(&rec)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (c *postgresCollection) FindOne(ctx context.Context, filter Filter, out any) error {
	rec, err := c.first(ctx, filter)
	if err != nil {
		return err
	}
	raw, err := fromExtJSON(rec.Data)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func (c *postgresCollection) Find(ctx context.Context, filter Filter, out any, opts ...FindOption) error {
	q, err := c.query(ctx, filter)
	if err != nil {
		return err
	}
	o := buildFindOptions(opts)
	q = q.Order("seq")
	if o.skip > 0 {
		q = q.Offset(int(o.skip))
	}
	if o.limit > 0 {
		q = q.Limit(int(o.limit))
	}

	var rows []storeRecord
	if err := q.Find(&rows).Error; err != nil {
		return err
	}
	records := make([]bson.Raw, 0, len(rows))
	for _, row := range rows {
		raw, err := fromExtJSON(row.Data)
		if err != nil {
			return err
		}
		records = append(records, raw)
	}
	return decodeAll(records, out)
}

func (c *postgresCollection) InsertOne(ctx context.Context, doc any) (string, error) {
	d, id, err := toDocument(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}
	js, err := extJSON(d)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}
	rec := storeRecord{Collection: c.name, RecordID: id, Data: datatypes.JSON(js)}
	if err := c.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", translateGormWrite(err)
	}
	return id, nil
}

// target scopes a write to the first record matching filter. The filter
// predicates stay on the outer statement so they are checked again against
// the row being written, not only against the subquery's snapshot.
func (c *postgresCollection) target(ctx context.Context, filter Filter) (*gorm.DB, error) {
	q, err := c.query(ctx, filter)
	if err != nil {
		return nil, err
	}
	first, err := c.query(ctx, filter)
	if err != nil {
		return nil, err
	}
	return q.Where("seq = (?)", first.Select("seq").Order("seq").Limit(1)), nil
}

func (c *postgresCollection) UpdateOne(ctx context.Context, filter Filter, patch Patch) (int64, error) {
	p, err := patchDocument(patch)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	js, err := extJSON(p)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}

	q, err := c.target(ctx, filter)
	if err != nil {
		return 0, err
	}
	res := q.Update("data", gorm.Expr("data || ?::jsonb", string(js)))
	if res.Error != nil {
		return 0, translateGormWrite(res.Error)
	}
	return res.RowsAffected, nil
}

func (c *postgresCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	q, err := c.target(ctx, filter)
	if err != nil {
		return 0, err
	}
	res := q.Delete(&storeRecord{})
	if res.Error != nil {
		return 0, translateGormWrite(res.Error)
	}
	return res.RowsAffected, nil
}

func translateGormWrite(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return fmt.Errorf("%w: %v", ErrWrite, err)
}
