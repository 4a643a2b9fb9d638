// Package core runs the listing cleaning pipeline end to end.
//
// # Error Codes Reference
//
// Errors leaving the service are mapped to a short message, an action and a
// code that operators can search for in the logs.
//
// # Schema Errors (SCH001-SCH099)
//
//	SCH001 - Column mismatch: the cleaned table's columns differ from the schema
//	         Action: Compare the file header with the schema document
//	         Matches: *schema.MismatchError, "column mismatch"
//
//	SCH002 - Schema configuration: the schema document is missing or malformed
//	         Action: Check SCHEMA_PATH and the document's "columns" list
//	         Matches: *schema.ConfigurationError, "schema config"
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Missing column: a column the cleaner needs is absent
//	         Action: The file must contain host_name and number_of_reviews
//	         Matches: *table.MissingColumnError, "missing required column"
//
//	COL002 - Non-numeric reviews: number_of_reviews holds a non-number
//	         Action: Fix the offending rows in the source export
//	         Matches: "non-numeric"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large           Matches: table.ErrFileTooLarge, "file too large"
//	FILE002 - Invalid CSV              Matches: "invalid csv"
//	FILE003 - Empty file               Matches: table.ErrEmptyFile, "empty file"
//	FILE004 - Input not found          Matches: fs.ErrNotExist, "no such file"
//
// # Storage Errors (STO001-STO099)
//
//	STO001 - Object not found          Matches: storage.ErrNotFound
//	STO002 - Clean bucket missing      Matches: ErrNoCleanBucket
//	STO003 - Store not configured      Matches: ErrNoObjectStore
//	STO004 - Upload failed             Matches: "upload:"
//	STO005 - Download failed           Matches: "download:"
//
// # Warehouse Errors (WH001-WH099)
//
//	WH001 - Connection refused         Matches: "connection refused"
//	WH002 - Connection reset           Matches: "connection reset"
//	WH003 - Column type conflict       Matches: "is of type"
//	WH004 - Row count mismatch         Matches: warehouse.ErrRowCountMismatch
//	WH005 - Load failed                Matches: "warehouse load"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - System busy               Matches: ErrTooManyRuns
//	RUN002 - Cancelled                 Matches: context.Canceled, "context canceled"
//	RUN003 - Timed out                 Matches: context.DeadlineExceeded, "context deadline exceeded"
//	RUN004 - Invalid event             Matches: "invalid event"
//	RUN005 - Invalid sweep request     Matches: "invalid sweep"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: check the logs for the run id
//
// # Matching
//
// Typed errors are matched first with errors.Is and errors.As, so wrapping
// never hides them. Remaining errors are matched case-insensitively on their
// text and the first matching pattern wins.
package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/JonMunkholm/listingclean/internal/schema"
	"github.com/JonMunkholm/listingclean/internal/storage"
	"github.com/JonMunkholm/listingclean/internal/table"
	"github.com/JonMunkholm/listingclean/internal/warehouse"
)

// UserMessage provides operator-facing error information.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Code for log searches and support
}

var (
	msgMismatch = UserMessage{
		Message: "Columns do not match the expected schema",
		Action:  "Compare the file header with the schema document",
		Code:    "SCH001",
	}
	msgSchemaConfig = UserMessage{
		Message: "Schema document is missing or malformed",
		Action:  `Check SCHEMA_PATH and the document's "columns" list`,
		Code:    "SCH002",
	}
	msgMissingColumn = UserMessage{
		Message: "A required column is missing",
		Action:  "The file must contain host_name and number_of_reviews",
		Code:    "COL001",
	}
	msgNonNumeric = UserMessage{
		Message: "number_of_reviews contains a non-numeric value",
		Action:  "Fix the offending rows in the source export",
		Code:    "COL002",
	}
	msgTooLarge = UserMessage{
		Message: "File exceeds the maximum size",
		Action:  "Split the file or raise MAX_FILE_SIZE",
		Code:    "FILE001",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure rows are not longer than the header and quotes are balanced",
		Code:    "FILE002",
	}
	msgEmptyFile = UserMessage{
		Message: "The file is empty",
		Action:  "Provide a file with a header row",
		Code:    "FILE003",
	}
	msgNoInput = UserMessage{
		Message: "Input file not found",
		Action:  "Check the input path",
		Code:    "FILE004",
	}
	msgObjectNotFound = UserMessage{
		Message: "Object not found in the bucket",
		Action:  "Check the bucket and object name in the event",
		Code:    "STO001",
	}
	msgNoCleanBucket = UserMessage{
		Message: "Clean bucket is not configured",
		Action:  "Set CLEAN_BUCKET",
		Code:    "STO002",
	}
	msgNoStore = UserMessage{
		Message: "Object storage is not configured",
		Action:  "Set GCP credentials or STORAGE_LOCAL_ROOT",
		Code:    "STO003",
	}
	msgTooManyRuns = UserMessage{
		Message: "System is busy processing other files",
		Action:  "Please wait a moment and try again",
		Code:    "RUN001",
	}
	msgCancelled = UserMessage{
		Message: "Run was cancelled",
		Action:  "Please try again",
		Code:    "RUN002",
	}
	msgTimeout = UserMessage{
		Message: "Run timed out",
		Action:  "Raise RUN_TIMEOUT or process a smaller file",
		Code:    "RUN003",
	}
	msgRowCount = UserMessage{
		Message: "Warehouse row count does not match the cleaned file",
		Action:  "Check the warehouse logs; the load was rolled back",
		Code:    "WH004",
	}
)

// typedMatchers run before text patterns.
var typedMatchers = []struct {
	match func(error) bool
	msg   UserMessage
}{
	{func(err error) bool { var e *schema.MismatchError; return errors.As(err, &e) }, msgMismatch},
	{func(err error) bool { var e *schema.ConfigurationError; return errors.As(err, &e) }, msgSchemaConfig},
	{func(err error) bool { var e *table.MissingColumnError; return errors.As(err, &e) }, msgMissingColumn},
	{is(table.ErrFileTooLarge), msgTooLarge},
	{is(table.ErrEmptyFile), msgEmptyFile},
	{is(storage.ErrNotFound), msgObjectNotFound},
	{is(ErrNoCleanBucket), msgNoCleanBucket},
	{is(ErrNoObjectStore), msgNoStore},
	{is(ErrTooManyRuns), msgTooManyRuns},
	{is(warehouse.ErrRowCountMismatch), msgRowCount},
	{is(context.Canceled), msgCancelled},
	{is(context.DeadlineExceeded), msgTimeout},
	{is(fs.ErrNotExist), msgNoInput},
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// errorPattern maps an error text fragment to a message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is checked in order; put specific patterns before general ones.
var errorPatterns = []errorPattern{
	// Schema and columns
	{"column mismatch", msgMismatch},
	{"schema config", msgSchemaConfig},
	{"missing required column", msgMissingColumn},
	{"non-numeric", msgNonNumeric},

	// Files
	{"file too large", msgTooLarge},
	{"invalid csv", msgInvalidCSV},
	{"empty file", msgEmptyFile},
	{"no such file", msgNoInput},

	// Warehouse, checked before storage so a load error mentioning a
	// connection problem keeps its specific code.
	{"connection refused", UserMessage{
		Message: "Unable to connect to the warehouse",
		Action:  "Check DATABASE_URL and that the database is reachable",
		Code:    "WH001",
	}},
	{"connection reset", UserMessage{
		Message: "Warehouse connection was interrupted",
		Action:  "Please try again",
		Code:    "WH002",
	}},
	{"is of type", UserMessage{
		Message: "A column's type conflicts with the warehouse table",
		Action:  "Alter or drop the target column so its type matches the file",
		Code:    "WH003",
	}},
	{"warehouse load", UserMessage{
		Message: "Loading into the warehouse failed",
		Action:  "Check the logs for the run id; the target table was not changed",
		Code:    "WH005",
	}},

	// Storage
	{"upload:", UserMessage{
		Message: "Uploading the cleaned file failed",
		Action:  "Check write access to the clean bucket",
		Code:    "STO004",
	}},
	{"download:", UserMessage{
		Message: "Downloading the raw file failed",
		Action:  "Check read access to the raw bucket",
		Code:    "STO005",
	}},

	// Runs
	{"too many concurrent runs", msgTooManyRuns},
	{"context canceled", msgCancelled},
	{"context deadline exceeded", msgTimeout},
	{"invalid event", UserMessage{
		Message: "The event is missing its bucket or object name",
		Action:  `Send a JSON body like {"bucket": "...", "name": "..."}`,
		Code:    "RUN004",
	}},
	{"invalid sweep", UserMessage{
		Message: "The sweep request has no usable bucket",
		Action:  "Pass a raw bucket other than CLEAN_BUCKET, or set RAW_BUCKET",
		Code:    "RUN005",
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the run id",
	Code:    "ERR000",
}

// MapError converts an error to an operator-facing message. A nil error
// maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, m := range typedMatchers {
		if m.match(err) {
			return m.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its mapped message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
