package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/coursedesk/courseapi/internal/models"
)

const courseColumns = `
	c.id, c.title, c.description, c.estimated_time, c.materials_needed,
	c.user_id, c.created_at, c.updated_at,
	u.first_name, u.last_name, u.email_address`

// ListCourses returns all courses, each joined with the owner
// projection. The result is never nil.
func (p *Postgres) ListCourses(ctx context.Context) ([]models.Course, error) {
	query := `
		SELECT` + courseColumns + `
		FROM courses c
		JOIN users u ON u.id = c.user_id
		ORDER BY c.id`

	rows, err := p.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	courses := make([]models.Course, 0)
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, *course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}

	return courses, nil
}

// GetCourse returns one course by id with the owner projection.
func (p *Postgres) GetCourse(ctx context.Context, id int) (*models.Course, error) {
	query := `
		SELECT` + courseColumns + `
		FROM courses c
		JOIN users u ON u.id = c.user_id
		WHERE c.id = $1`

	course, err := scanCourse(p.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query course: %w", err)
	}

	return course, nil
}

// CreateCourse inserts a course and fills in the generated id and
// timestamps. A user_id referencing no user surfaces as a
// ValidationError.
func (p *Postgres) CreateCourse(ctx context.Context, course *models.Course) error {
	const query = `
		INSERT INTO courses (title, description, estimated_time, materials_needed, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := p.Pool.QueryRow(ctx, query,
		course.Title,
		course.Description,
		course.EstimatedTime,
		course.MaterialsNeeded,
		course.UserID,
	).Scan(&course.ID, &course.CreatedAt, &course.UpdatedAt)
	if err != nil {
		if cerr := constraintError(err); cerr != err {
			return cerr
		}
		return fmt.Errorf("insert course: %w", err)
	}

	return nil
}

// UpdateCourse overwrites the four mutable fields of the course with
// the given id and bumps updated_at. The owner is never changed.
func (p *Postgres) UpdateCourse(ctx context.Context, course *models.Course) error {
	const query = `
		UPDATE courses
		SET title = $1, description = $2, estimated_time = $3, materials_needed = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`

	err := p.Pool.QueryRow(ctx, query,
		course.Title,
		course.Description,
		course.EstimatedTime,
		course.MaterialsNeeded,
		course.ID,
	).Scan(&course.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if cerr := constraintError(err); cerr != err {
			return cerr
		}
		return fmt.Errorf("update course: %w", err)
	}

	return nil
}

// DeleteCourse removes the course with the given id.
func (p *Postgres) DeleteCourse(ctx context.Context, id int) error {
	tag, err := p.Pool.Exec(ctx, "DELETE FROM courses WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	var (
		course models.Course
		owner  models.Owner
	)
	err := row.Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.EstimatedTime,
		&course.MaterialsNeeded,
		&course.UserID,
		&course.CreatedAt,
		&course.UpdatedAt,
		&owner.FirstName,
		&owner.LastName,
		&owner.EmailAddress,
	)
	if err != nil {
		return nil, err
	}

	course.User = &owner
	return &course, nil
}
