package repository

import (
	"context"
	"errors"
	"fmt"

	"athlos-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a uniqueness constraint rejects a write
var ErrDuplicate = errors.New("already exists")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const profileColumns = `id, username, full_name, bio, location, sport,
	profile_image_url, cover_image_url, is_verified,
	followers_count, following_count, posts_count, created_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.Username, &p.FullName, &p.Bio, &p.Location, &p.Sport,
		&p.ProfileImageURL, &p.CoverImageURL, &p.IsVerified,
		&p.FollowersCount, &p.FollowingCount, &p.PostsCount, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create creates a new profile with credentials
func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile, email, passwordHash string) error {
	query := `
		INSERT INTO profiles (id, username, email, password_hash, full_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.Username, email, passwordHash, p.FullName, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username or email taken: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var p *models.Profile
	err := withRetry(ctx, func() error {
		var err error
		p, err = scanProfile(r.db.QueryRow(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetByUsername retrieves a profile by username
func (r *ProfileRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var p *models.Profile
	err := withRetry(ctx, func() error {
		var err error
		p, err = scanProfile(r.db.QueryRow(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE username = $1`, username))
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get profile by username: %w", err)
	}
	return p, nil
}

// GetCredentials retrieves a profile id and password hash by email
func (r *ProfileRepository) GetCredentials(ctx context.Context, email string) (id, passwordHash string, err error) {
	query := `SELECT id, password_hash FROM profiles WHERE email = $1`
	err = r.db.QueryRow(ctx, query, email).Scan(&id, &passwordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", ErrNotFound
		}
		return "", "", fmt.Errorf("failed to get credentials: %w", err)
	}
	return id, passwordHash, nil
}

// Update updates the editable fields of a profile
func (r *ProfileRepository) Update(ctx context.Context, p *models.Profile) error {
	query := `
		UPDATE profiles
		SET full_name = $1, bio = $2, location = $3, sport = $4,
		    profile_image_url = $5, cover_image_url = $6
		WHERE id = $7
	`
	result, err := r.db.Exec(ctx, query,
		p.FullName, p.Bio, p.Location, p.Sport,
		p.ProfileImageURL, p.CoverImageURL, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Search finds profiles whose username or full name matches the query
func (r *ProfileRepository) Search(ctx context.Context, query string, limit int) ([]*models.Profile, error) {
	sql := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE username ILIKE $1 OR full_name ILIKE $1
		ORDER BY followers_count DESC
		LIMIT $2
	`
	var profiles []*models.Profile
	err := withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx, sql, "%"+query+"%", limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		profiles, err = collectProfiles(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}
	return profiles, nil
}

// Top retrieves profiles ordered by followers count
func (r *ProfileRepository) Top(ctx context.Context, limit int) ([]*models.Profile, error) {
	sql := `
		SELECT ` + profileColumns + `
		FROM profiles
		ORDER BY followers_count DESC, created_at ASC
		LIMIT $1
	`
	var profiles []*models.Profile
	err := withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx, sql, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		profiles, err = collectProfiles(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get top profiles: %w", err)
	}
	return profiles, nil
}

func collectProfiles(rows pgx.Rows) ([]*models.Profile, error) {
	var profiles []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
