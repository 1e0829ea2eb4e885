package contextutils

import "strings"

// Locale represents a language locale (e.g., "en", "tr")
type Locale string

const (
	// LocaleEnglish represents English language
	LocaleEnglish Locale = "en"
	// LocaleTurkish represents Turkish language, the default for the web UI
	LocaleTurkish Locale = "tr"
)

// turkishMessages overrides the English defaults for clients asking for "tr"
var turkishMessages = map[ErrorCode]string{
	ErrorCodeInvalidCredentials: "Geçersiz kullanıcı adı veya şifre!",
	ErrorCodeUnauthorized:       "Lütfen giriş yapın",
	ErrorCodeForbidden:          "Bu işlem için yetkiniz yok",
	ErrorCodeValidationFailed:   "Lütfen tüm zorunlu alanları doldurun",
	ErrorCodeMissingRequired:    "Zorunlu alan eksik",
	ErrorCodeRecordNotFound:     "İade kaydı bulunamadı",
	ErrorCodeConflict:           "Bu iade zaten sonuçlandırılmış",
	ErrorCodePayloadTooLarge:    "Dosya çok büyük",
	ErrorCodeRateLimit:          "Çok fazla deneme, lütfen daha sonra tekrar deneyin",
	ErrorCodeServiceUnavailable: "Hizmet geçici olarak kullanılamıyor",
	ErrorCodeInternalError:      "Sunucu hatası",
}

// GetLocalizedMessage returns the message for code in locale, falling back to English
func GetLocalizedMessage(code ErrorCode, locale Locale) string {
	if locale == LocaleTurkish {
		if message, ok := turkishMessages[code]; ok {
			return message
		}
	}
	return defaultMessage(code)
}

func defaultMessage(code ErrorCode) string {
	switch code {
	case ErrorCodeDatabaseConnection:
		return "Database connection failed"
	case ErrorCodeDatabaseQuery:
		return "Database query failed"
	case ErrorCodeRecordNotFound:
		return "Record not found"
	case ErrorCodeInvalidInput:
		return "Invalid input"
	case ErrorCodeMissingRequired:
		return "Missing required field"
	case ErrorCodeValidationFailed:
		return "Validation failed"
	case ErrorCodePayloadTooLarge:
		return "Request body too large"
	case ErrorCodeUnauthorized:
		return "Unauthorized access"
	case ErrorCodeForbidden:
		return "Access forbidden"
	case ErrorCodeInvalidCredentials:
		return "Invalid credentials"
	case ErrorCodeServiceUnavailable:
		return "Service temporarily unavailable"
	case ErrorCodeRateLimit:
		return "Rate limit exceeded"
	case ErrorCodeConflict:
		return "Operation conflicts with current state"
	case ErrorCodeStorage:
		return "Image storage failed"
	case ErrorCodeUnsupportedFileType:
		return "Unsupported file type"
	case ErrorCodeInternalError:
		return "Internal server error"
	default:
		return "An error occurred"
	}
}

// ParseLocale parses a locale string (e.g., "tr-TR", "en-US") and returns the language part
func ParseLocale(localeStr string) Locale {
	lang, _, _ := strings.Cut(strings.TrimSpace(localeStr), "-")
	if lang == "" {
		return LocaleEnglish
	}
	return Locale(strings.ToLower(lang))
}
