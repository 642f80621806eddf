package engram

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// computeContentHash serializes e to canonical JSON — sorted object keys,
// compact separators, content_hash omitted — and returns the hex-encoded
// BLAKE2b-256 digest of the result. The digest choice mirrors the original
// Python implementation (hashlib.blake2b(data, digest_size=32)); spec §4.1
// only requires a stable 256-bit cryptographic hash within an installation,
// so any conformant choice would satisfy the contract, but matching the
// original keeps cross-checked test fixtures byte-for-byte reproducible.
func computeContentHash(e *Engram) (string, error) {
	canon, err := canonicalize(e)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalize produces the sorted-key, compact-separator JSON of e with
// content_hash excluded, per spec §4.1's canonical serialization rule.
func canonicalize(e *Engram) ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	delete(m, "content_hash")

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(m[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
