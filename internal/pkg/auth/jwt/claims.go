package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims carried by OnlyFriends session tokens.
// It includes standard claims required by the JWT specification and custom claims
// necessary for identifying the account behind each request.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the account's database identifier, used for internal lookups.
	ID string `json:"id"`

	// UID is the short public identifier shown in the room and used as the
	// target of moderation commands.
	UID string `json:"uid"`

	// Name is the display name at token issue time. It is informational only;
	// authorization always re-reads the current record.
	Name string `json:"name"`
}
