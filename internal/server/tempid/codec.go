// Package tempid issues and validates temporary IDs: short-lived tokens that
// bind a user identity to a 15 minute broadcast window.
//
// A token is base64(ciphertext[24] || nonce[12] || tag[16]) where the
// plaintext is identity[16] || window_start_be_u32 || window_end_be_u32,
// sealed with an AEAD under the service-wide key. Tokens carry their own
// proof of authenticity, so no table of issued tokens is kept. The design
// relies on random 96-bit nonces never repeating under one key; there is no
// key rotation, so every token ever issued stays decryptable for the life
// of the key.
package tempid

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/cryptox"
	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
	"github.com/google/uuid"
)

const (
	// WindowCount windows of WindowLength are issued per batch (6 hours).
	WindowCount  = 24
	WindowLength = 15 * time.Minute

	// IssueBackdate shifts the first window into the past to absorb clock
	// skew between issuance and the first broadcast.
	IssueBackdate = 30 * time.Second

	plaintextSize  = 16 + 4 + 4
	ciphertextSize = plaintextSize

	// RawTokenSize is the decoded token length in bytes.
	RawTokenSize = ciphertextSize + cryptox.NonceSize + cryptox.TagSize

	// EncodedTokenSize is the length of the base64 form.
	EncodedTokenSize = (RawTokenSize + 2) / 3 * 4
)

var (
	dummyNonce  = make([]byte, cryptox.NonceSize)
	dummySealed = make([]byte, ciphertextSize+cryptox.TagSize)
)

// Token is one issued temporary ID with its validity window in Unix seconds.
type Token struct {
	Token string `json:"token"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

// Batch is the result of one generation call. ServerStartTime is the end of
// the last window, i.e. the moment the client needs a fresh batch.
type Batch struct {
	Tokens          []Token `json:"tokens"`
	ServerStartTime int64   `json:"server_start_time"`
}

// ContactReport is a token collected by a device together with the time it
// was seen and the received signal strength. Nil fields mean the client did
// not send a usable integer.
type ContactReport struct {
	Token            string
	ContactTimestamp *int64
	SignalStrength   *int64
}

// Codec seals and opens temporary IDs. It holds no key material; keys are
// passed per call so callers control their lifetime. A Codec is safe for
// concurrent use.
type Codec struct {
	suite cryptox.Suite
	rand  io.Reader
}

func NewCodec(suite cryptox.Suite) *Codec {
	return &Codec{suite: suite, rand: rand.Reader}
}

// Generate issues WindowCount contiguous tokens for identity, the first one
// starting IssueBackdate before now.
func (c *Codec) Generate(identity uuid.UUID, key []byte, now time.Time) (*Batch, error) {
	aead, err := cryptox.NewAEAD(c.suite, key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	step := int64(WindowLength / time.Second)
	start := now.Add(-IssueBackdate).Unix()
	if start < 0 || start+step*WindowCount > math.MaxUint32 {
		return nil, fmt.Errorf("time %s outside the token range", now.UTC().Format(time.RFC3339))
	}

	batch := &Batch{Tokens: make([]Token, 0, WindowCount)}
	for i := 0; i < WindowCount; i++ {
		end := start + step
		token, err := c.seal(aead, identity, start, end)
		if err != nil {
			return nil, err
		}
		batch.Tokens = append(batch.Tokens, Token{Token: token, Start: start, End: end})
		start = end
	}
	batch.ServerStartTime = start

	return batch, nil
}

func (c *Codec) seal(aead cipher.AEAD, identity uuid.UUID, start, end int64) (string, error) {
	plaintext := make([]byte, plaintextSize)
	copy(plaintext, identity[:])
	binary.BigEndian.PutUint32(plaintext[16:20], uint32(start))
	binary.BigEndian.PutUint32(plaintext[20:24], uint32(end))

	nonce := make([]byte, cryptox.NonceSize)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	// Seal yields ciphertext || tag; the wire order puts the nonce between.
	sealed := aead.Seal(nil, nonce, plaintext, nil)

	raw := make([]byte, 0, RawTokenSize)
	raw = append(raw, sealed[:ciphertextSize]...)
	raw = append(raw, nonce...)
	raw = append(raw, sealed[ciphertextSize:]...)

	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode validates report against key and turns it into a close contact
// where self is the reporting (infected) user and the identity sealed in the
// token is the contacted user.
//
// Every failure, whether malformed input, a forged or foreign token, a
// timestamp outside the token window or a token of self, yields false and
// nothing else.
func (c *Codec) Decode(report ContactReport, key []byte, self, infectionID uuid.UUID) (models.CloseContact, bool) {
	aead, err := cryptox.NewAEAD(c.suite, key)
	if err != nil {
		return models.CloseContact{}, false
	}

	raw, ok := structure(report)
	if !ok {
		// keep the malformed path close in cost to a failed tag check
		_, _ = aead.Open(nil, dummyNonce, dummySealed, nil)
		return models.CloseContact{}, false
	}

	nonce := raw[ciphertextSize : ciphertextSize+cryptox.NonceSize]
	sealed := make([]byte, 0, ciphertextSize+cryptox.TagSize)
	sealed = append(sealed, raw[:ciphertextSize]...)
	sealed = append(sealed, raw[ciphertextSize+cryptox.NonceSize:]...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return models.CloseContact{}, false
	}

	contacted, err := uuid.FromBytes(plaintext[:16])
	if err != nil {
		return models.CloseContact{}, false
	}
	start := int64(binary.BigEndian.Uint32(plaintext[16:20]))
	end := int64(binary.BigEndian.Uint32(plaintext[20:24]))

	ts := *report.ContactTimestamp
	if ts < start || ts > end {
		return models.CloseContact{}, false
	}
	if contacted == self {
		return models.CloseContact{}, false
	}

	return models.CloseContact{
		InfectedUserID:   self,
		ContactedUserID:  contacted,
		InfectionID:      infectionID,
		ContactTimestamp: time.Unix(ts, 0).UTC(),
		SignalStrength:   *report.SignalStrength,
	}, true
}

// DecodeAll decodes every report and keeps the ones that validate. The key
// is used for the whole batch.
func (c *Codec) DecodeAll(reports []ContactReport, key []byte, self, infectionID uuid.UUID) []models.CloseContact {
	contacts := make([]models.CloseContact, 0, len(reports))
	for _, r := range reports {
		if cc, ok := c.Decode(r, key, self, infectionID); ok {
			contacts = append(contacts, cc)
		}
	}
	return contacts
}

func structure(report ContactReport) ([]byte, bool) {
	if report.ContactTimestamp == nil || report.SignalStrength == nil {
		return nil, false
	}
	if len(report.Token) != EncodedTokenSize {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(report.Token)
	if err != nil || len(raw) != RawTokenSize {
		return nil, false
	}
	return raw, true
}
