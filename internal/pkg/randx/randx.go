/*
Package randx provides functions for generating cryptographically secure random numbers and unique identifiers.

It is primarily used to generate the fixed-length Base62 public UIDs shown in
the room and standard UUID message IDs.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// UIDLength is the fixed length of a public user identifier.
	UIDLength = 6
)

// UID generates a Base62 encoded public user identifier using a
// cryptographically secure random number generator (crypto/rand).
// It returns a string of length UIDLength and any error encountered.
func UID() (string, error) {
	result := make([]byte, UIDLength)

	for i := range UIDLength {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for uid: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// IsValidUID checks if the given string is a valid public user identifier.
// Validity criteria include: length equals UIDLength and all characters belong to the Base62Chars set.
func IsValidUID(uid string) bool {
	if len(uid) != UIDLength {
		return false
	}

	for _, char := range uid {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
