package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 5
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	if d.Pool != nil {
		d.Pool.Close()
	}
}

func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

func (d *DB) Migrate(ctx context.Context) error {
	sql := `
CREATE TABLE IF NOT EXISTS profiles (
  telegram_id BIGINT PRIMARY KEY,
  telegram_username TEXT,
  first_name TEXT,
  last_name TEXT,
  language_code TEXT,
  is_premium BOOLEAN NOT NULL DEFAULT FALSE,
  nickname TEXT,
  age INT,
  gender TEXT,
  bio TEXT,
  interests TEXT[] NOT NULL DEFAULT '{}',
  photo_url TEXT,
  social_links JSONB NOT NULL DEFAULT '{}'::jsonb,
  discoverable BOOLEAN NOT NULL DEFAULT FALSE,
  banned BOOLEAN NOT NULL DEFAULT FALSE,
  stars BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- One nickname, one profile. Reservation and claim both lean on this index
-- instead of a read-then-write pair.
CREATE UNIQUE INDEX IF NOT EXISTS profiles_nickname_uniq ON profiles(nickname);

ALTER TABLE profiles ADD COLUMN IF NOT EXISTS is_premium BOOLEAN NOT NULL DEFAULT FALSE;
ALTER TABLE profiles ADD COLUMN IF NOT EXISTS social_links JSONB NOT NULL DEFAULT '{}'::jsonb;
ALTER TABLE profiles ADD COLUMN IF NOT EXISTS stars BIGINT NOT NULL DEFAULT 0;

-- Ledger of generated names. Insert-if-absent on the primary key is the
-- atomic reservation primitive.
CREATE TABLE IF NOT EXISTS nicknames (
  nickname TEXT PRIMARY KEY,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	_, err := d.Pool.Exec(ctx, sql)
	return err
}
