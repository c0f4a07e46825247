package dashboard

// error_messages.go maps technical errors to messages a dashboard user can act on.
//
// Each message carries a code that can be quoted in support requests. Codes are
// grouped by category:
//
// # Dataset Errors (LOAD001-LOAD099)
//
//	LOAD001 - Dataset not found: no dataset at the requested location or id
//	          Patterns: "source not found", "dataset not found"
//	LOAD002 - Missing identifier: no country/location column in the header
//	          Patterns: "missing identifier column"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Unknown column: the requested metric or key is not in the dataset
//	         Patterns: "column not found"
//	VAL002 - Not numeric: the chosen metric holds text
//	         Patterns: "column is not numeric"
//	VAL003 - No data: nothing left to plot after filtering
//	         Patterns: "no data to plot"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large         Patterns: "file too large", "request body too large"
//	FILE002 - Invalid CSV            Patterns: "invalid csv"
//	FILE004 - No file                Patterns: "no file provided"
//	FILE005 - Empty file             Patterns: "empty file"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy             Patterns: "too many uploads"
//	UPL004 - Request cancelled       Patterns: "context canceled"
//	UPL005 - Request timeout         Patterns: "context deadline exceeded"
//
// # Storage Errors (DB001-DB099)
//
//	DB004 - Connection refused       Patterns: "connection refused"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests      Patterns: "rate limit"
//
// # Default (ERR000)
//
// Fallback when no pattern matches. Check the logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Dataset errors
	{
		pattern: "source not found",
		msg: UserMessage{
			Message: "Dataset not found",
			Action:  "Upload a CSV file to get started",
			Code:    "LOAD001",
		},
	},
	{
		pattern: "dataset not found",
		msg: UserMessage{
			Message: "Dataset not found",
			Action:  "The upload may have expired. Please upload the file again",
			Code:    "LOAD001",
		},
	},
	{
		pattern: "missing identifier column",
		msg: UserMessage{
			Message: "No country or location column was found",
			Action:  "Add a column named Country, Location, Nation, State or Region",
			Code:    "LOAD002",
		},
	},

	// Validation errors
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "Column not found in the dataset",
			Action:  "Pick a metric from the list",
			Code:    "VAL001",
		},
	},
	{
		pattern: "column is not numeric",
		msg: UserMessage{
			Message: "The selected column does not hold numbers",
			Action:  "Pick a numeric metric such as GHI or DNI",
			Code:    "VAL002",
		},
	},
	{
		pattern: "no data to plot",
		msg: UserMessage{
			Message: "No data for the current selection",
			Action:  "Select more countries or another metric",
			Code:    "VAL003",
		},
	},

	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused columns or rows and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused columns or rows and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with a header and data rows",
			Code:    "FILE005",
		},
	},

	// Upload errors
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// Storage errors
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Upload history is temporarily unavailable",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, a generic fallback message with code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
