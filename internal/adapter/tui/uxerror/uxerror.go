// Package uxerror translates raw errors into user-friendly messages with
// recovery hints for the terminal front ends.
package uxerror

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"aisetup/internal/adapter/tui/theme"
	"aisetup/internal/domain"
	"aisetup/internal/infra/config"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Settings Unavailable"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Raw     string   // original error text (for debug)
}

// Render formats the FriendlyError for terminal output.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

var patterns = []errorPattern{
	// Config validation lists every problem, so it goes first.
	{
		match: func(err error) bool {
			var ve *config.ValidationError
			return errors.As(err, &ve)
		},
		produce: func(err error) FriendlyError {
			var ve *config.ValidationError
			errors.As(err, &ve)
			return FriendlyError{
				Title:   "Invalid Configuration",
				Message: "The configuration file has problems that must be fixed first.",
				Hints:   append(append([]string(nil), ve.Errors...), "Set "+config.EnvConfigPath+" to use a different file"),
				Raw:     err.Error(),
			}
		},
	},
	{
		match:   isSentinel(domain.ErrConfigLoad),
		produce: constantError("Configuration Not Loaded", "The configuration file could not be read or parsed.", []string{"Check the YAML syntax", "Make sure the file is not group or world writable (chmod 600)"}),
	},
	{
		match:   isSentinel(domain.ErrDecryption),
		produce: constantError("Cannot Decrypt Saved Keys", "Stored API keys could not be decrypted with the current passphrase.", []string{"Set " + config.EnvSettingsKey + " to the passphrase used when the keys were saved", "Run 'aisetup reset' and enter the keys again"}),
	},
	{
		match:   isSentinel(domain.ErrEncryption),
		produce: constantError("Encryption Failed", "An API key could not be encrypted before saving.", []string{"Check that " + config.EnvSettingsKey + " is set", "Disable settings.encrypt to store keys in plain text"}),
	},
	{
		match:   isSentinel(domain.ErrSinkOpen),
		produce: constantError("Settings Unavailable", "Saving was paused after repeated write failures.", []string{"Check that the settings file is writable", "Wait a few seconds and try again"}),
	},
	{
		match:   isSentinel(domain.ErrSinkLimited),
		produce: constantError("Saving Throttled", "Too many settings writes were issued at once.", []string{"Raise sink.writes_per_second or sink.burst in config"}),
	},
	{
		match:   isSentinel(domain.ErrSinkClosed),
		produce: constantError("Settings Closed", "A write arrived after the settings store was closed.", []string{"Run setup again to make sure every answer was saved"}),
	},
	{
		match:   isSentinel(domain.ErrStorageFailed),
		produce: constantError("Settings Not Saved", "The settings database rejected a write.", []string{"Check free disk space", "Check permissions of the settings directory", "Run 'aisetup status' to see what was stored"}),
	},
	{
		match:   isSentinel(domain.ErrUnknownPlatform),
		produce: constantError("Unknown Platform", "A platform name was not recognised.", []string{"Use one of: openai, anthropic, google"}),
	},
	{
		match:   isSentinel(domain.ErrInvalidInput),
		produce: constantError("Invalid Input", "A value was rejected.", []string{"Check the value and try again"}),
	},
	{
		match: func(err error) bool { return errors.Is(err, os.ErrPermission) },
		produce: constantError("Permission Denied", "A file could not be opened.", []string{"Check ownership of ~/.aisetup", "Point settings.path at a writable location"}),
	},

	// String fallbacks for errors from outside the domain.
	{
		match:   containsAny("database is locked", "sqlite_busy"),
		produce: constantError("Settings Busy", "Another process is using the settings database.", []string{"Close other aisetup instances", "Try again in a moment"}),
	},
	{
		match:   func(err error) bool { return errors.Is(err, domain.ErrTimeout) || containsAny("deadline exceeded", "timeout")(err) },
		produce: constantError("Timed Out", "Some settings writes did not finish in time.", []string{"Run 'aisetup status' to check what was saved", "Increase sink.write_timeout in config"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}

	for _, p := range patterns {
		if p.match(err) {
			return p.produce(err)
		}
	}

	return FriendlyError{
		Title:   "Unexpected Error",
		Message: err.Error(),
		Hints:   []string{"Try again", "Run with AISETUP_LOGGER_LEVEL=debug for more details"},
		Raw:     err.Error(),
	}
}

func isSentinel(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// containsAny returns a match func that checks if the error string contains
// any of the given substrings (case-insensitive).
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// constantError returns a produce func that always returns the same FriendlyError.
func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: message,
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}
