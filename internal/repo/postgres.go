package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"eventpass/internal/model"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// isNoRows also covers ids that are not valid uuids. Scanned legacy codes are
// arbitrary text and must read as a missing record.
func isNoRows(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	return r.applyDir(migrationsDir, "*.up.sql", false)
}

func (r *repository) MigrateDown(migrationsDir string) error {
	return r.applyDir(migrationsDir, "*.down.sql", true)
}

func (r *repository) applyDir(dir, pattern string, reverse bool) error {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Str("dir", dir).Str("pattern", pattern).Int("files", len(files)).Msg("migrations applied")
	return nil
}

const eventColumns = `id, name, description, date, venue, confirmation_message, task_pdf_url,
	mail_subject, mail_body, pass_subject, pass_body, app_mail, app_pass, is_live,
	allowed_years, primary_color, background_color, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }, e *model.Event) error {
	return row.Scan(
		&e.ID, &e.Name, &e.Description, &e.Date, &e.Venue, &e.ConfirmationMessage, &e.TaskPdfURL,
		&e.MailSubject, &e.MailBody, &e.PassSubject, &e.PassBody, &e.AppMail, &e.AppPass, &e.IsLive,
		pq.Array(&e.AllowedYears), &e.PrimaryColor, &e.BackgroundColor, &e.CreatedAt, &e.UpdatedAt,
	)
}

func (r *repository) CreateEvent(ctx context.Context, e *model.Event) error {
	query := `
		INSERT INTO events (id, name, description, date, venue, confirmation_message, task_pdf_url,
			mail_subject, mail_body, pass_subject, pass_body, app_mail, app_pass, is_live,
			allowed_years, primary_color, background_color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, query,
		e.ID, e.Name, e.Description, e.Date, e.Venue, e.ConfirmationMessage, e.TaskPdfURL,
		e.MailSubject, e.MailBody, e.PassSubject, e.PassBody, e.AppMail, e.AppPass, e.IsLive,
		pq.Array(e.AllowedYears), e.PrimaryColor, e.BackgroundColor,
	)
	if err := row.Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *repository) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)

	var e model.Event
	if err := scanEvent(row, &e); err != nil {
		if isNoRows(err) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

func (r *repository) GetAllEvents(ctx context.Context) ([]model.Event, error) {
	return r.queryEvents(ctx, `SELECT `+eventColumns+` FROM events ORDER BY date DESC`)
}

func (r *repository) GetLiveEvents(ctx context.Context, now time.Time) ([]model.Event, error) {
	return r.queryEvents(ctx, `SELECT `+eventColumns+` FROM events
		WHERE is_live AND date > $1 ORDER BY date ASC`, now)
}

func (r *repository) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *repository) SetEventLive(ctx context.Context, id string, live bool) error {
	return r.execOne(ctx, ErrEventNotFound,
		`UPDATE events SET is_live = $2, updated_at = NOW() WHERE id = $1`, id, live)
}

func (r *repository) UpdatePassTemplate(ctx context.Context, id, subject, body string) error {
	return r.execOne(ctx, ErrEventNotFound,
		`UPDATE events SET pass_subject = $2, pass_body = $3, updated_at = NOW() WHERE id = $1`,
		id, subject, body)
}

func (r *repository) CloseEndedEvents(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET is_live = FALSE, updated_at = NOW() WHERE is_live AND date < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to close ended events: %w", err)
	}
	return res.RowsAffected()
}

const registrationColumns = `id, event_id, student_name, student_email, roll_number, gender, branch,
	year_of_study, mobile_number, laptop, status, task_submission, task_submitted_at,
	registered_at, attended, attended_at, updated_at`

func scanRegistration(row interface{ Scan(...any) error }, reg *model.Registration) error {
	return row.Scan(
		&reg.ID, &reg.EventID, &reg.StudentName, &reg.StudentEmail, &reg.RollNumber, &reg.Gender,
		&reg.Branch, &reg.YearOfStudy, &reg.MobileNumber, &reg.Laptop, &reg.Status,
		&reg.TaskSubmission, &reg.TaskSubmittedAt, &reg.RegisteredAt, &reg.Attended,
		&reg.AttendedAt, &reg.UpdatedAt,
	)
}

func (r *repository) CreateRegistrationTx(ctx context.Context, reg *model.Registration) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var eventID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR SHARE`, reg.EventID).Scan(&eventID)
	if err != nil {
		_ = tx.Rollback()
		if isNoRows(err) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to lock event: %w", err)
	}

	var existing int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM registrations
		WHERE event_id = $1 AND lower(student_email) = lower($2)
	`, reg.EventID, reg.StudentEmail).Scan(&existing)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to check duplicate registration: %w", err)
	}
	if existing > 0 {
		_ = tx.Rollback()
		return ErrDuplicateRegistration
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations (id, event_id, student_name, student_email, roll_number, gender,
			branch, year_of_study, mobile_number, laptop, status, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING updated_at
	`, reg.ID, reg.EventID, reg.StudentName, reg.StudentEmail, reg.RollNumber, reg.Gender,
		reg.Branch, reg.YearOfStudy, reg.MobileNumber, reg.Laptop, reg.Status, reg.RegisteredAt,
	).Scan(&reg.UpdatedAt)
	if err != nil {
		_ = tx.Rollback()
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateRegistration
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *repository) GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)

	var reg model.Registration
	if err := scanRegistration(row, &reg); err != nil {
		if isNoRows(err) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return &reg, nil
}

func (r *repository) GetRegistrationsByEventID(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+registrationColumns+`
		FROM registrations
		WHERE event_id = $1
		ORDER BY registered_at ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := scanRegistration(rows, &reg); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *repository) CountRegistrationsByStatus(ctx context.Context, eventID string) (map[model.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM registrations
		WHERE event_id = $1
		GROUP BY status
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count registrations: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var st model.Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("failed to scan registration count: %w", err)
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

func (r *repository) UpdateRegistrationStatus(ctx context.Context, id string, status model.Status) error {
	return r.execOne(ctx, ErrRegistrationNotFound,
		`UPDATE registrations SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
}

func (r *repository) SaveTaskSubmission(ctx context.Context, id, link string, at time.Time) error {
	return r.execOne(ctx, ErrRegistrationNotFound, `
		UPDATE registrations
		SET task_submission = $2, task_submitted_at = $3, updated_at = NOW()
		WHERE id = $1
	`, id, link, at)
}

// SaveAttendance flips attendance and status in one statement. The first
// attended_at wins, so repeating it is harmless.
func (r *repository) SaveAttendance(ctx context.Context, id string, status model.Status, at time.Time) error {
	return r.execOne(ctx, ErrRegistrationNotFound, `
		UPDATE registrations
		SET attended = TRUE, attended_at = COALESCE(attended_at, $3), status = $2, updated_at = NOW()
		WHERE id = $1
	`, id, status, at)
}

func (r *repository) execOne(ctx context.Context, notFound error, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isNoRows(err) {
			return notFound
		}
		return fmt.Errorf("failed to update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
