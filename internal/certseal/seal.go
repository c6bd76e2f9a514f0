// Package certseal computes the integrity seal stamped onto a record at
// finalization: the content digest ("block hash"), the certificate serial,
// and the public security code.
//
// The block hash is a plain SHA-256 commitment over the record's own fields.
// It is NOT chained to any predecessor — the ledger's genesis document exists
// but nothing links to it, and the digest of one record is independent of
// every other record.
package certseal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jakaria-jihad/certchain/internal/registrar/model"
)

// SecurityHexLength is the length of the public verification code.
const SecurityHexLength = 12

// hexAlphabet is the uppercase hexadecimal alphabet used for security codes.
const hexAlphabet = "0123456789ABCDEF"

// GenesisSystemID identifies the ledger's genesis document.
const GenesisSystemID = "CERTCHAIN_SYS"

// GenesisHash returns the well-known digest stored on the genesis document.
func GenesisHash() string {
	sum := sha256.Sum256([]byte("CERTCHAIN_GENESIS"))
	return hex.EncodeToString(sum[:])
}

// Commit computes the content digest of a record snapshot.
//
// The digest covers every field except the block hash itself, including the
// certificate serial, security code, and full audit chain. Canonicalization
// is the JSON encoding of the record struct: field order is the struct's
// declaration order, which is stable, so identical snapshots always produce
// identical digests. Commit never mutates its argument.
func Commit(rec *model.StudentRecord) (string, error) {
	snap := rec.Clone()
	snap.BlockHash = ""

	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode record snapshot: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Verify recomputes the commitment over the stored record and reports
// whether it matches the stored block hash.
func Verify(rec *model.StudentRecord) (bool, error) {
	if rec.BlockHash == "" {
		return false, nil
	}
	digest, err := Commit(rec)
	if err != nil {
		return false, err
	}
	return digest == rec.BlockHash, nil
}

// Serial builds the certificate serial for a student finalized at the given
// instant: "{student_id}-{YYYYMM}".
func Serial(studentID string, at time.Time) string {
	return fmt.Sprintf("%s-%s", studentID, at.Format("200601"))
}

// SecurityHex generates a random SecurityHexLength-character code from the
// uppercase hex alphabet using crypto/rand. Uniqueness is probabilistic, not
// enforced; at 16^12 possible codes collisions are accepted as negligible.
func SecurityHex() (string, error) {
	buf := make([]byte, SecurityHexLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate security code: %w", err)
	}
	for i, b := range buf {
		buf[i] = hexAlphabet[int(b)%len(hexAlphabet)]
	}
	return string(buf), nil
}
