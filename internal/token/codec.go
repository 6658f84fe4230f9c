package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// EventGrace keeps codes usable for a day after the event ends.
	EventGrace = 24 * time.Hour
	// DefaultLifetime applies when the event end is unknown.
	DefaultLifetime = 30 * 24 * time.Hour

	ShortCodeLength = 6
	shortCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// KindTicket marks payloads minted for tickets rather than registrations.
	KindTicket models.RegistrationKind = "ticket"
)

var (
	ErrDecode    = errors.New("token could not be decoded")
	ErrSignature = errors.New("token signature is invalid")
)

// Payload is the identity carried by a QR code. It is not confidential: anyone
// holding the code can read it.
type Payload struct {
	RegistrationID string                  `json:"registrationId,omitempty"`
	TicketID       string                  `json:"ticketId,omitempty"`
	EventID        uint                    `json:"eventId"`
	MemberID       *uint                   `json:"memberId,omitempty"`
	Kind           models.RegistrationKind `json:"type"`
	IssuedAt       int64                   `json:"issuedAt"`
}

// IssuedTime returns the zero time for legacy payloads without issuedAt.
func (p *Payload) IssuedTime() time.Time {
	if p.IssuedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(p.IssuedAt)
}

type claims struct {
	RegistrationID string                  `json:"registrationId,omitempty"`
	TicketID       string                  `json:"ticketId,omitempty"`
	EventID        uint                    `json:"eventId"`
	MemberID       *uint                   `json:"memberId,omitempty"`
	Kind           models.RegistrationKind `json:"type"`
	IssuedAtMillis int64                   `json:"issuedAt"`
	jwt.RegisteredClaims
}

func (c *claims) payload() *Payload {
	return &Payload{
		RegistrationID: c.RegistrationID,
		TicketID:       c.TicketID,
		EventID:        c.EventID,
		MemberID:       c.MemberID,
		Kind:           c.Kind,
		IssuedAt:       c.IssuedAtMillis,
	}
}

// Codec mints and reads QR tokens. Tokens are HS256-signed JWTs over the
// payload; plain base64 JSON tokens are only read when AllowUnsigned is set.
type Codec struct {
	secret        []byte
	allowUnsigned bool
	now           func() time.Time
}

type Option func(*Codec)

// WithUnsigned accepts legacy base64(JSON) tokens that carry no signature.
func WithUnsigned(allow bool) Option {
	return func(c *Codec) { c.allowUnsigned = allow }
}

// WithClock overrides the time source used for issuedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(secret string, opts ...Option) *Codec {
	c := &Codec{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mint encodes a registration payload. memberID may be nil for guests.
func (c *Codec) Mint(registrationID string, eventID uint, memberID *uint, kind models.RegistrationKind) (string, error) {
	return c.Encode(&Payload{
		RegistrationID: registrationID,
		EventID:        eventID,
		MemberID:       memberID,
		Kind:           kind,
		IssuedAt:       c.now().UnixMilli(),
	})
}

// MintTicket encodes a ticket payload.
func (c *Codec) MintTicket(ticketID string, eventID uint) (string, error) {
	return c.Encode(&Payload{
		TicketID: ticketID,
		EventID:  eventID,
		Kind:     KindTicket,
		IssuedAt: c.now().UnixMilli(),
	})
}

// Encode signs p as is, including its IssuedAt.
func (c *Codec) Encode(p *Payload) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		RegistrationID: p.RegistrationID,
		TicketID:       p.TicketID,
		EventID:        p.EventID,
		MemberID:       p.MemberID,
		Kind:           p.Kind,
		IssuedAtMillis: p.IssuedAt,
	})
	s, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Decode fails only on malformed input or a bad signature. A payload that
// parses but points at nothing is returned unchanged.
func (c *Codec) Decode(raw string) (*Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrDecode)
	}
	if !strings.Contains(raw, ".") {
		if !c.allowUnsigned {
			return nil, fmt.Errorf("%w: unsigned token", ErrSignature)
		}
		return decodeUnsigned(raw)
	}

	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, fmt.Errorf("%w: %v", ErrSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cl.payload(), nil
}

func decodeUnsigned(raw string) (*Payload, error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		// Some clients strip padding or use the URL alphabet.
		data, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &p, nil
}

// EncodeUnsigned produces the legacy base64(JSON) form.
func EncodeUnsigned(p *Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// IsLive applies the expiry policy. Payloads without issuedAt never expire.
// With a known event end the code stays valid until end+24h; otherwise it is
// valid for 30 days from issue.
func IsLive(p *Payload, eventEnd *time.Time, now time.Time) bool {
	if p.IssuedAt == 0 {
		return true
	}
	var deadline time.Time
	if eventEnd != nil && !eventEnd.IsZero() {
		deadline = eventEnd.Add(EventGrace)
	} else {
		deadline = p.IssuedTime().Add(DefaultLifetime)
	}
	return !now.After(deadline)
}

// MintShortCode returns six uniformly random uppercase letters. Uniqueness is
// the caller's job.
func MintShortCode() string {
	return randomString(shortCodeLetters, ShortCodeLength)
}

const ticketAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// MintTicketNumber returns "TKT" followed by six base36 characters.
func MintTicketNumber() string {
	return "TKT" + randomString(ticketAlphabet, 6)
}

func randomString(alphabet string, n int) string {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("crypto/rand failed: %v", err))
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}

// NormalizeShortCode uppercases and trims manual input.
func NormalizeShortCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidShortCode reports whether code has the minted shape.
func ValidShortCode(code string) bool {
	if len(code) != ShortCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
