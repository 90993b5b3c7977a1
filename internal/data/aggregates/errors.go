package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/yungbote/heirloom-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

// Sentinels raised inside write bodies. MapError turns them into domain codes
// once the transaction has unwound.
var (
	ErrValidation    = errors.New("validation")
	ErrInvariant     = errors.New("invariant violation")
	ErrConflict      = errors.New("conflict")
	ErrRetryable     = errors.New("retryable")
	ErrNotFound      = errors.New("not found")
	ErrScopeMismatch = errors.New("scope mismatch")
	ErrIntegrity     = errors.New("integrity")
)

var sentinelCodes = []struct {
	err  error
	code domainagg.ErrorCode
}{
	{ErrValidation, domainagg.CodeValidation},
	{ErrInvariant, domainagg.CodeInvariantViolation},
	{ErrConflict, domainagg.CodeConflict},
	{ErrRetryable, domainagg.CodeRetryable},
	{ErrScopeMismatch, domainagg.CodeScopeMismatch},
	{ErrIntegrity, domainagg.CodeIntegrity},
	{ErrNotFound, domainagg.CodeNotFound},
	{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	{context.Canceled, domainagg.CodeRetryable},
	{context.DeadlineExceeded, domainagg.CodeRetryable},
}

// pgCodes covers unique_violation, foreign_key_violation, serialization_failure,
// deadlock_detected and lock_not_available (lock_timeout expiry).
var pgCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,
	"23503": domainagg.CodePreconditionFailed,
	"40001": domainagg.CodeRetryable,
	"40P01": domainagg.CodeRetryable,
	"55P03": domainagg.CodeRetryable,
}

// Drivers without typed errors (sqlite) are classified by message.
var messageCodes = []struct {
	code  domainagg.ErrorCode
	parts []string
}{
	{domainagg.CodeConflict, []string{"duplicate key", "already exists", "unique constraint failed"}},
	{domainagg.CodeRetryable, []string{"deadlock", "database is locked", "serialization", "timeout", "temporar"}},
}

func tagged(kind error, msg string) error {
	return errors.Join(kind, errors.New(strings.TrimSpace(msg)))
}

func ValidationError(msg string) error { return tagged(ErrValidation, msg) }
func InvariantError(msg string) error  { return tagged(ErrInvariant, msg) }
func ConflictError(msg string) error   { return tagged(ErrConflict, msg) }
func RetryableError(msg string) error  { return tagged(ErrRetryable, msg) }
func NotFoundError(msg string) error   { return tagged(ErrNotFound, msg) }
func ScopeError(msg string) error      { return tagged(ErrScopeMismatch, msg) }

// IntegrityError reports a schema that references persons in a way the
// dependent registry does not cover.
func IntegrityError(msg string) error { return tagged(ErrIntegrity, msg) }

// MapError classifies err for op. Errors that already carry a domain code pass
// through untouched so the innermost op is kept.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *domainagg.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
	}
	msg := strings.ToLower(err.Error())
	for _, rule := range messageCodes {
		for _, part := range rule.parts {
			if strings.Contains(msg, part) {
				return rule.code
			}
		}
	}
	return domainagg.CodeInternal
}
