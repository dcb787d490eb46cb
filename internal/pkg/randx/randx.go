/*
Package randx provides functions for generating unique identifiers and stored file names.

User and connection identifiers are standard UUID v4 strings. Stored file
names combine a millisecond timestamp with a random Base62 suffix so concurrent
uploads of identically named files never collide.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// FileSuffixLength is the length of the random portion of a stored file name.
	FileSuffixLength = 9
)

// UserID generates a UUID v4 string to serve as a durable user identifier.
func UserID() string {
	return uuid.New().String()
}

// ConnectionID generates a UUID v4 string identifying a single websocket connection.
func ConnectionID() string {
	return uuid.New().String()
}

// base62String returns a cryptographically random Base62 string of the given length.
func base62String(length int) (string, error) {
	result := make([]byte, length)

	for i := range length {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random base62 character: %v", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// StoredFileName builds the on-disk (or object-store) name for an uploaded file:
// "<unix-ms>-<random>-<original-name>". Path separators in the original name are
// stripped so the result is always a single path element.
func StoredFileName(originalName string) string {
	base := sanitizeName(originalName)

	suffix, err := base62String(FileSuffixLength)
	if err != nil {
		// crypto/rand failure is effectively unreachable; timestamp alone still
		// keeps names unique enough to store the file rather than fail the upload.
		suffix = "0"
	}

	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), suffix, base)
}

// sanitizeName reduces a client-supplied file name to its final path element
// and replaces characters that are unsafe in URLs or object keys.
func sanitizeName(name string) string {
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}

	name = strings.Map(func(r rune) rune {
		switch r {
		case '\x00', '\n', '\r':
			return -1
		default:
			return r
		}
	}, name)

	if name == "" {
		name = "file"
	}

	return name
}
