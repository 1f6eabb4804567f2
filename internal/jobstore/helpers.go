package jobstore

import (
	"database/sql"
	"errors"
	"time"

	"ledgercast/internal/job"
)

const recordColumns = "id, target_id, job_type, status, progress, message, error_message, cancel_requested, created_at, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*job.Record, error) {
	var (
		id              string
		targetID        string
		jobType         string
		statusStr       string
		progress        sql.NullFloat64
		message         sql.NullString
		errorMessage    sql.NullString
		cancelRequested sql.NullInt64
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&targetID,
		&jobType,
		&statusStr,
		&progress,
		&message,
		&errorMessage,
		&cancelRequested,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &job.Record{
		ID:           id,
		TargetID:     targetID,
		Type:         job.Type(jobType),
		Status:       job.Status(statusStr),
		Progress:     progress.Float64,
		Message:      message.String,
		ErrorMessage: errorMessage.String,
	}
	if cancelRequested.Valid {
		record.CancelRequested = cancelRequested.Int64 != 0
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
