package proto

import "fmt"

const (
	maxUsername    = 20
	maxChannelID   = 20
	maxSecret      = 128
	maxDisplayName = 20
	maxContent     = 1400
)

// isAlnumDash reports whether b is in [A-Za-z0-9-].
func isAlnumDash(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z':
		return true
	case b >= 'a' && b <= 'z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '-':
		return true
	default:
		return false
	}
}

// isPrintableNoSpace reports whether b is in 0x21-0x7E.
func isPrintableNoSpace(b byte) bool {
	return b >= 0x21 && b <= 0x7E
}

// isPrintableWithSpace reports whether b is in 0x20-0x7E.
func isPrintableWithSpace(b byte) bool {
	return b >= 0x20 && b <= 0x7E
}

func checkLength(field, value string, max int) error {
	if len(value) < 1 {
		return fmt.Errorf("%s: %w", field, ErrFieldTooShort)
	}
	if len(value) > max {
		return fmt.Errorf("%s: %w (max %d)", field, ErrFieldTooLong, max)
	}
	return nil
}

func checkCharset(field, value string, allowed func(byte) bool) error {
	for i := 0; i < len(value); i++ {
		if !allowed(value[i]) {
			return fmt.Errorf("%s: %w (byte 0x%02x at offset %d)", field, ErrFieldCharset, value[i], i)
		}
	}
	return nil
}

// ValidUsername checks username: 1-20 chars, [A-Za-z0-9-].
func ValidUsername(v string) error {
	if err := checkLength("username", v, maxUsername); err != nil {
		return err
	}
	return checkCharset("username", v, isAlnumDash)
}

// ValidChannelID checks channel_id: 1-20 chars, [A-Za-z0-9-.].
func ValidChannelID(v string) error {
	if err := checkLength("channel_id", v, maxChannelID); err != nil {
		return err
	}
	return checkCharset("channel_id", v, func(b byte) bool {
		return isAlnumDash(b) || b == '.'
	})
}

// ValidSecret checks secret: 1-128 chars, [A-Za-z0-9-].
func ValidSecret(v string) error {
	if err := checkLength("secret", v, maxSecret); err != nil {
		return err
	}
	return checkCharset("secret", v, isAlnumDash)
}

// ValidDisplayName checks display_name: 1-20 printable ASCII excluding space.
func ValidDisplayName(v string) error {
	if err := checkLength("display_name", v, maxDisplayName); err != nil {
		return err
	}
	return checkCharset("display_name", v, isPrintableNoSpace)
}

// ValidContent checks content: 1-1400 printable ASCII including space.
func ValidContent(v string) error {
	if err := checkLength("content", v, maxContent); err != nil {
		return err
	}
	return checkCharset("content", v, isPrintableWithSpace)
}
