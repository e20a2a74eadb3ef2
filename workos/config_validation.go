package workos

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("auth config error: %s - %s", e.Field, e.Message)
}

type ConfigValidationResult struct {
	IsValid  bool
	Errors   []ConfigValidationError
	Warnings []string
}

// ValidateConfig checks the WORKOS_* environment before the server starts
// serving logins. WORKOS_REDIRECT_URI is optional; when unset the redirect
// URI is derived from the request origin.
func ValidateConfig() *ConfigValidationResult {
	result := &ConfigValidationResult{
		IsValid:  true,
		Errors:   []ConfigValidationError{},
		Warnings: []string{},
	}

	apiKey := os.Getenv("WORKOS_API_KEY")
	clientID := os.Getenv("WORKOS_CLIENT_ID")
	cookiePassword := os.Getenv("WORKOS_COOKIE_PASSWORD")
	redirectURI := os.Getenv("WORKOS_REDIRECT_URI")

	fmt.Println("=== Validating Auth Configuration ===")

	if apiKey == "" {
		result.IsValid = false
		result.Errors = append(result.Errors, ConfigValidationError{
			Field:   "WORKOS_API_KEY",
			Message: "is not set",
		})
		fmt.Println("✗ WORKOS_API_KEY is not set")
	} else {
		fmt.Printf("✓ WORKOS_API_KEY is set: %s\n", maskValue(apiKey))
	}

	if clientID == "" {
		result.IsValid = false
		result.Errors = append(result.Errors, ConfigValidationError{
			Field:   "WORKOS_CLIENT_ID",
			Message: "is not set",
		})
		fmt.Println("✗ WORKOS_CLIENT_ID is not set")
	} else {
		fmt.Printf("✓ WORKOS_CLIENT_ID is set: %s\n", clientID)
	}

	if cookiePassword == "" {
		result.IsValid = false
		result.Errors = append(result.Errors, ConfigValidationError{
			Field:   "WORKOS_COOKIE_PASSWORD",
			Message: "is not set",
		})
		fmt.Println("✗ WORKOS_COOKIE_PASSWORD is not set")
	} else if len(cookiePassword) < 32 {
		result.IsValid = false
		result.Errors = append(result.Errors, ConfigValidationError{
			Field:   "WORKOS_COOKIE_PASSWORD",
			Message: "must be at least 32 characters",
		})
		fmt.Println("✗ WORKOS_COOKIE_PASSWORD is too short (minimum 32 characters)")
	} else {
		fmt.Printf("✓ WORKOS_COOKIE_PASSWORD is set: %s\n", maskValue(cookiePassword))
	}

	if redirectURI == "" {
		result.Warnings = append(result.Warnings, "WORKOS_REDIRECT_URI is not set; redirect URI will be derived from the request origin")
		fmt.Println("⚠ WORKOS_REDIRECT_URI is not set (derived from request origin)")
	} else {
		if !strings.Contains(redirectURI, "/auth/callback") {
			result.IsValid = false
			result.Errors = append(result.Errors, ConfigValidationError{
				Field:   "WORKOS_REDIRECT_URI",
				Message: "does not contain expected path /auth/callback",
			})
			fmt.Println("✗ WORKOS_REDIRECT_URI does not contain expected path")
		}

		if strings.HasPrefix(redirectURI, "http://") && !strings.Contains(redirectURI, "localhost") && !strings.Contains(redirectURI, "127.0.0.1") {
			result.Warnings = append(result.Warnings, "WORKOS_REDIRECT_URI uses HTTP without localhost (should use HTTPS in production)")
			fmt.Println("⚠ WORKOS_REDIRECT_URI uses HTTP without localhost")
		}

		if _, err := url.Parse(redirectURI); err != nil {
			result.IsValid = false
			result.Errors = append(result.Errors, ConfigValidationError{
				Field:   "WORKOS_REDIRECT_URI",
				Message: fmt.Sprintf("is not a valid URL: %v", err),
			})
			fmt.Printf("✗ WORKOS_REDIRECT_URI is not a valid URL: %v\n", err)
		} else {
			fmt.Printf("✓ WORKOS_REDIRECT_URI is set: %s\n", redirectURI)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Println("\n=== Warnings ===")
		for _, warning := range result.Warnings {
			fmt.Printf("⚠ %s\n", warning)
		}
	}

	if !result.IsValid {
		fmt.Println("\n=== Configuration Validation Failed ===")
		fmt.Println("Please fix the errors above before using authentication.")
	}

	return result
}

func maskValue(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
