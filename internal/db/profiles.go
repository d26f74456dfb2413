package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"miniapp_profile/internal/telegram"
)

var ErrProfileNotFound = errors.New("db: profile not found")

type Profile struct {
	TelegramID       int64             `json:"telegram_id"`
	TelegramUsername string            `json:"telegram_username,omitempty"`
	FirstName        string            `json:"first_name,omitempty"`
	LastName         string            `json:"last_name,omitempty"`
	LanguageCode     string            `json:"language_code,omitempty"`
	IsPremium        bool              `json:"is_premium"`
	Nickname         string            `json:"nickname,omitempty"`
	Age              *int              `json:"age,omitempty"`
	Gender           string            `json:"gender,omitempty"`
	Bio              string            `json:"bio,omitempty"`
	Interests        []string          `json:"interests"`
	PhotoURL         string            `json:"photo_url,omitempty"`
	SocialLinks      map[string]string `json:"social_links"`
	Discoverable     bool              `json:"discoverable"`
	Banned           bool              `json:"banned"`
	Stars            int64             `json:"stars"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ProfileUpdate carries a partial profile edit; nil fields stay untouched.
type ProfileUpdate struct {
	Age          *int               `json:"age"`
	Gender       *string            `json:"gender"`
	Bio          *string            `json:"bio"`
	Interests    *[]string          `json:"interests"`
	SocialLinks  *map[string]string `json:"social_links"`
	Discoverable *bool              `json:"discoverable"`
}

const profileColumns = `
  telegram_id, COALESCE(telegram_username, ''), COALESCE(first_name, ''), COALESCE(last_name, ''),
  COALESCE(language_code, ''), is_premium, COALESCE(nickname, ''), age, COALESCE(gender, ''),
  COALESCE(bio, ''), interests, COALESCE(photo_url, ''), social_links, discoverable, banned,
  stars, created_at, updated_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(
		&p.TelegramID, &p.TelegramUsername, &p.FirstName, &p.LastName,
		&p.LanguageCode, &p.IsPremium, &p.Nickname, &p.Age, &p.Gender,
		&p.Bio, &p.Interests, &p.PhotoURL, &p.SocialLinks, &p.Discoverable, &p.Banned,
		&p.Stars, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// UpsertProfile creates the profile on first login and refreshes the
// Telegram-sourced display attributes on every later one.
func (d *DB) UpsertProfile(ctx context.Context, principal telegram.Principal) (Profile, error) {
	row := d.Pool.QueryRow(ctx, `
INSERT INTO profiles (telegram_id, telegram_username, first_name, last_name, language_code, is_premium)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (telegram_id) DO UPDATE SET
  telegram_username = EXCLUDED.telegram_username,
  first_name = EXCLUDED.first_name,
  last_name = EXCLUDED.last_name,
  language_code = EXCLUDED.language_code,
  is_premium = EXCLUDED.is_premium,
  updated_at = now()
RETURNING`+profileColumns,
		principal.ID, principal.Username, principal.FirstName, principal.LastName,
		principal.LanguageCode, principal.IsPremium)

	p, err := scanProfile(row)
	if err != nil {
		return Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return p, nil
}

func (d *DB) GetProfile(ctx context.Context, telegramID int64) (Profile, error) {
	row := d.Pool.QueryRow(ctx, `SELECT`+profileColumns+` FROM profiles WHERE telegram_id = $1`, telegramID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// UpdateProfile applies a partial edit. NULL arguments keep the stored value.
func (d *DB) UpdateProfile(ctx context.Context, telegramID int64, upd ProfileUpdate) (Profile, error) {
	row := d.Pool.QueryRow(ctx, `
UPDATE profiles SET
  age = COALESCE($2, age),
  gender = COALESCE($3, gender),
  bio = COALESCE($4, bio),
  interests = COALESCE($5, interests),
  social_links = COALESCE($6, social_links),
  discoverable = COALESCE($7, discoverable),
  updated_at = now()
WHERE telegram_id = $1
RETURNING`+profileColumns,
		telegramID, upd.Age, upd.Gender, upd.Bio, upd.Interests, upd.SocialLinks, upd.Discoverable)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

func (d *DB) SetProfilePhoto(ctx context.Context, telegramID int64, photoURL string) error {
	tag, err := d.Pool.Exec(ctx,
		`UPDATE profiles SET photo_url = $2, updated_at = now() WHERE telegram_id = $1`,
		telegramID, photoURL)
	if err != nil {
		return fmt.Errorf("set profile photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
