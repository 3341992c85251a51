package tuya

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// emptyBodyHash is SHA256(""), used whenever a request carries no body.
const emptyBodyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// bodyHash returns the lowercase hex SHA-256 digest of the serialized body.
func bodyHash(body []byte) string {
	if len(body) == 0 {
		return emptyBodyHash
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// normalizePath sorts the query-string pairs of a request path. Tuya signs
// the sorted form, and the request must be dispatched with the same path or
// the server-side verification fails. Pairs are sorted as whole key=value
// tokens, not by key alone.
func normalizePath(path string) string {
	idx := strings.IndexByte(path, '?')
	if idx < 0 {
		return path
	}
	pairs := strings.Split(path[idx+1:], "&")
	sort.Strings(pairs)
	return path[:idx] + "?" + strings.Join(pairs, "&")
}

// stringToSign builds the four-line payload from Tuya's signing spec. The
// third line is the content-digest slot, which the v1.0 API leaves empty.
func stringToSign(method, hash, signedPath string) string {
	return method + "\n" + hash + "\n" + "\n" + signedPath
}

// signature computes the request signature: uppercase hex HMAC-SHA256 over
// clientID + token + timestamp + nonce + stringToSign. The token is the
// empty string for the token-grant call itself.
func signature(clientID, token, timestamp, nonce, strToSign, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(clientID + token + timestamp + nonce + strToSign))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}
