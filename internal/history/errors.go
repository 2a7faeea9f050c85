package history

import "codeberg.org/mutker/acdcbright/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("history_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("history_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("history_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("history_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("history_transaction_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitHistory
	ErrStorageClose = errors.ErrCloseHistory
	ErrQueryFailed  = errors.ErrorCode("history_query_failed")

	// Recording Errors
	ErrRecordFailed = errors.ErrRecordHistory
	ErrInvalidEntry = errors.ErrorCode("history_invalid_entry")

	ErrOperationTimeout = errors.ErrTimeout
)
