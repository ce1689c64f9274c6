package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorSuggestion represents a suggestion for fixing an error
type ErrorSuggestion struct {
	Title       string
	Description string
	Command     string
	Example     string
}

// suggestionsByCode lists remedies for the failures a user can fix.
var suggestionsByCode = map[string][]ErrorSuggestion{
	ErrCodeRootMissing: {
		{
			Title:       "Check the watch root exists",
			Description: "Every entry of the roots argument must be an existing directory",
			Command:     "ls -ld <root>",
		},
		{
			Title:       "Separate several roots with |",
			Description: "Quote the argument so the shell does not treat | as a pipe",
			Example:     `srcmerge "src/game|src/engine" out/Main.java`,
		},
	},
	ErrCodeRootNotDirectory: {
		{
			Title:       "Pass a directory, not a file",
			Description: "Roots are watched recursively; point at the folder holding the sources",
		},
	},
	ErrCodeWatcherInit: {
		{
			Title:       "Raise the inotify limits",
			Description: "Large trees can exhaust the per-user watch or instance limits",
			Command:     "sysctl fs.inotify.max_user_watches fs.inotify.max_user_instances",
		},
	},
	ErrCodeOutputTemp: {
		{
			Title:       "Check the output directory is writable",
			Description: "The merged file is written to a temporary file next to it and renamed into place",
		},
	},
	ErrCodeOutputRename: {
		{
			Title:       "Make sure the output path is not a directory",
			Description: "The last component of the output path is replaced atomically",
		},
	},
	ErrCodeUnknownProfile: {
		{
			Title:   "Pick a supported language profile",
			Command: "srcmerge --help",
			Example: "srcmerge --profile kotlin src out/Main.kt",
		},
	},
	ErrCodeInvalidConfig: {
		{
			Title:       "Regenerate the configuration file",
			Description: "Compare your file with the defaults written by init",
			Command:     "srcmerge init --force",
		},
	},
}

// Suggestions returns the remedies known for err, or nil.
func Suggestions(err error) []ErrorSuggestion {
	var me *MergeError
	if !errors.As(err, &me) {
		return nil
	}
	return suggestionsByCode[me.Code]
}

// FormatSuggestions formats suggestions into a user-friendly string
func FormatSuggestions(title string, suggestions []ErrorSuggestion) string {
	if len(suggestions) == 0 {
		return title
	}

	var output strings.Builder
	output.WriteString(title + "\n\n")
	output.WriteString("Suggestions:\n")

	for i, suggestion := range suggestions {
		output.WriteString(fmt.Sprintf("  %d. %s\n", i+1, suggestion.Title))
		if suggestion.Description != "" {
			output.WriteString(fmt.Sprintf("     %s\n", suggestion.Description))
		}
		if suggestion.Command != "" {
			output.WriteString(fmt.Sprintf("     Run: %s\n", suggestion.Command))
		}
		if suggestion.Example != "" {
			output.WriteString(fmt.Sprintf("     Example: %s\n", suggestion.Example))
		}
	}

	return strings.TrimRight(output.String(), "\n")
}

// EnhancedError wraps an error with suggestions
type EnhancedError struct {
	OriginalError error
	Suggestions   []ErrorSuggestion
}

func (e *EnhancedError) Error() string {
	return FormatSuggestions(e.OriginalError.Error(), e.Suggestions)
}

func (e *EnhancedError) Unwrap() error {
	return e.OriginalError
}

// WithSuggestions attaches the known remedies to err. Errors without any
// are returned unchanged.
func WithSuggestions(err error) error {
	if err == nil {
		return nil
	}
	suggestions := Suggestions(err)
	if len(suggestions) == 0 {
		return err
	}
	return &EnhancedError{OriginalError: err, Suggestions: suggestions}
}
