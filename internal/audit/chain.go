package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

const genesisHash = "genesis"

// #region hashing

// hashEntry hashes the canonical JSON form of e with EntryHash cleared.
func hashEntry(e Entry) (string, error) {
	e.EntryHash = ""
	raw, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}
	return canonicalHash(raw)
}

// canonicalHash returns the sha256 of the RFC 8785 form of raw JSON.
func canonicalHash(raw []byte) (string, error) {
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// seal links e after head and fills its chain fields.
func seal(e Entry, sequence uint64, head string) (Entry, error) {
	e.Timestamp = e.Timestamp.UTC()
	e.Sequence = sequence
	e.PreviousHash = head
	h, err := hashEntry(e)
	if err != nil {
		return Entry{}, err
	}
	e.EntryHash = h
	return e, nil
}

// #endregion hashing

// #region verify

// VerifyEntries checks the hash chain of one partition's entries, in
// sequence order.
func VerifyEntries(entries []Entry) error {
	prev := genesisHash
	for i, e := range entries {
		if e.Sequence != uint64(i+1) {
			return fmt.Errorf("%w: entry %d has sequence %d", ErrChainBroken, i, e.Sequence)
		}
		if e.PreviousHash != prev {
			return fmt.Errorf("%w: entry %d has previous_hash %s, expected %s", ErrChainBroken, i, e.PreviousHash, prev)
		}
		computed, err := hashEntry(e)
		if err != nil {
			return fmt.Errorf("%w: entry %d: %w", ErrChainBroken, i, err)
		}
		if computed != e.EntryHash {
			return fmt.Errorf("%w: entry %d hash mismatch (computed %s, stored %s)", ErrChainBroken, i, computed, e.EntryHash)
		}
		prev = e.EntryHash
	}
	return nil
}

// #endregion verify
