package passport

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"soulpass/internal/passport/models"
	id "soulpass/pkg/domain"
	"soulpass/pkg/platform/sentinel"
)

// Postgres persists passports in a single table with a unique owner index.
// The owner index and the record live in one row, so create/destroy update
// both atomically for free; Execute serializes writers per record with
// SELECT ... FOR UPDATE.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a postgres-backed store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// schema uses an explicit sequence so token ids start at 0 (matching the
// ledger contract) and are never reused: DELETE does not rewind the sequence.
// Badges are JSONB because they are an opaque append-only list, not a
// relational concern.
const schema = `
CREATE SEQUENCE IF NOT EXISTS passport_token_ids START 0 MINVALUE 0;

CREATE TABLE IF NOT EXISTS passports (
	id                  BIGINT PRIMARY KEY DEFAULT nextval('passport_token_ids'),
	owner_address       TEXT NOT NULL UNIQUE,
	member_tier         TEXT NOT NULL,
	ecosystem_level     TEXT NOT NULL,
	total_reward_earned BIGINT NOT NULL,
	achievement_count   BIGINT NOT NULL,
	collectible_count   BIGINT NOT NULL,
	is_active           BOOLEAN NOT NULL,
	rank                TEXT NOT NULL,
	badges              JSONB NOT NULL DEFAULT '[]',
	custom_metadata_uri TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the passports table and id sequence if missing.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure passports schema: %w", err)
	}
	return nil
}

const passportColumns = `id, owner_address, member_tier, ecosystem_level,
	total_reward_earned, achievement_count, collectible_count, is_active,
	rank, badges, custom_metadata_uri, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, p *models.Passport) (id.TokenID, error) {
	badges, err := json.Marshal(badgesOrEmpty(p.Badges))
	if err != nil {
		return 0, fmt.Errorf("marshal badges: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Check the owner index before inserting rather than relying on
	// ON CONFLICT: the id default draws from the sequence before conflict
	// resolution, and a rejected duplicate must not consume the next token
	// id. Sequential allocation is part of the ledger contract.
	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM passports WHERE owner_address = $1)`,
		p.Owner.String(),
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check owner: %w", err)
	}
	if exists {
		return 0, sentinel.ErrConflict
	}

	var tokenID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO passports (
			owner_address, member_tier, ecosystem_level, total_reward_earned,
			achievement_count, collectible_count, is_active, rank, badges,
			custom_metadata_uri, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		p.Owner.String(), p.MemberTier, string(p.EcosystemLevel),
		int64(p.TotalRewardEarned), int64(p.AchievementCount), int64(p.CollectibleCount),
		p.Active, p.Rank, badges, p.CustomMetadataURI, p.CreatedAt, p.UpdatedAt,
	).Scan(&tokenID)
	if isUniqueViolation(err) {
		// Lost a race with a concurrent create for the same owner.
		return 0, sentinel.ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("insert passport: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create: %w", err)
	}

	p.ID = id.TokenID(tokenID)
	return p.ID, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Postgres) FindByID(ctx context.Context, tokenID id.TokenID) (*models.Passport, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+passportColumns+` FROM passports WHERE id = $1`, int64(tokenID))
	return scanPassport(row)
}

func (s *Postgres) FindByOwner(ctx context.Context, owner id.Address) (*models.Passport, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+passportColumns+` FROM passports WHERE owner_address = $1`, owner.String())
	return scanPassport(row)
}

func (s *Postgres) Execute(ctx context.Context, tokenID id.TokenID, validate func(*models.Passport) error, mutate func(*models.Passport)) (*models.Passport, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+passportColumns+` FROM passports WHERE id = $1 FOR UPDATE`, int64(tokenID))
	p, err := scanPassport(row)
	if err != nil {
		return nil, err
	}

	if validate != nil {
		if err := validate(p); err != nil {
			return nil, err
		}
	}
	owner := p.Owner
	mutate(p)
	p.Owner = owner
	p.ID = tokenID

	badges, err := json.Marshal(badgesOrEmpty(p.Badges))
	if err != nil {
		return nil, fmt.Errorf("marshal badges: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE passports SET
			member_tier = $2, ecosystem_level = $3, total_reward_earned = $4,
			achievement_count = $5, collectible_count = $6, is_active = $7,
			rank = $8, badges = $9, custom_metadata_uri = $10, updated_at = $11
		WHERE id = $1`,
		int64(tokenID), p.MemberTier, string(p.EcosystemLevel),
		int64(p.TotalRewardEarned), int64(p.AchievementCount), int64(p.CollectibleCount),
		p.Active, p.Rank, badges, p.CustomMetadataURI, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update passport: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

func (s *Postgres) Delete(ctx context.Context, tokenID id.TokenID, validate func(*models.Passport) error) (*models.Passport, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+passportColumns+` FROM passports WHERE id = $1 FOR UPDATE`, int64(tokenID))
	p, err := scanPassport(row)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(p); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM passports WHERE id = $1`, int64(tokenID)); err != nil {
		return nil, fmt.Errorf("delete passport: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count passports: %w", err)
	}
	return n, nil
}

func scanPassport(row *sql.Row) (*models.Passport, error) {
	var (
		p         models.Passport
		tokenID   int64
		owner     string
		level     string
		reward    int64
		achieved  int64
		owned     int64
		badgesRaw []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&tokenID, &owner, &p.MemberTier, &level, &reward, &achieved,
		&owned, &p.Active, &p.Rank, &badgesRaw, &p.CustomMetadataURI,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan passport: %w", err)
	}

	addr, err := id.ParseAddress(owner)
	if err != nil {
		return nil, fmt.Errorf("stored owner address is corrupt: %w", err)
	}
	if err := json.Unmarshal(badgesRaw, &p.Badges); err != nil {
		return nil, fmt.Errorf("unmarshal badges: %w", err)
	}

	p.ID = id.TokenID(tokenID)
	p.Owner = addr
	p.EcosystemLevel = models.Level(level)
	p.TotalRewardEarned = uint64(reward)
	p.AchievementCount = uint64(achieved)
	p.CollectibleCount = uint64(owned)
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	return &p, nil
}

func badgesOrEmpty(badges []string) []string {
	if badges == nil {
		return []string{}
	}
	return badges
}
