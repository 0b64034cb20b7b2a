package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/playnow/reservas-api/models"
)

var ErrReviewNotFound = errors.New("review not found")

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id int) (*models.Review, error)
	ListAllWithUsers(ctx context.Context) ([]models.Review, error)
	Delete(ctx context.Context, id int) error
}

type postgresReviewRepository struct {
	db *sql.DB
}

func NewPostgresReviewRepository(db *sql.DB) ReviewRepository {
	return &postgresReviewRepository{db: db}
}

func (r *postgresReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (usuario_id, nombre, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		nullInt(review.UserID),
		nullString(review.Name),
		review.Rating,
		review.Comment,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		return err
	}
	return nil
}

func (r *postgresReviewRepository) GetByID(ctx context.Context, id int) (*models.Review, error) {
	query := reviewSelectWithUser + ` WHERE rv.id = $1`

	review, err := scanReview(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to scan review: %w", err)
	}
	return review, nil
}

func (r *postgresReviewRepository) ListAllWithUsers(ctx context.Context) ([]models.Review, error) {
	query := reviewSelectWithUser + ` ORDER BY rv.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		review, scanErr := scanReview(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		reviews = append(reviews, *review)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *postgresReviewRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrReviewNotFound)
}

const reviewSelectWithUser = `
	SELECT
		rv.id, rv.usuario_id, rv.nombre, rv.rating, rv.comment,
		rv.created_at, rv.updated_at,
		u.id, u.username, u.email
	FROM reviews rv
	LEFT JOIN users u ON rv.usuario_id = u.id`

func scanReview(row rowScanner) (*models.Review, error) {
	var review models.Review

	var userID sql.NullInt64
	var name sql.NullString
	var joinedID sql.NullInt64
	var joinedUsername, joinedEmail sql.NullString

	err := row.Scan(
		&review.ID,
		&userID,
		&name,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
		&review.UpdatedAt,
		&joinedID,
		&joinedUsername,
		&joinedEmail,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		id := int(userID.Int64)
		review.UserID = &id
	}
	review.Name = name.String
	if joinedID.Valid {
		review.User = &models.User{
			ID:       int(joinedID.Int64),
			Username: joinedUsername.String,
			Email:    joinedEmail.String,
		}
	}

	return &review, nil
}
