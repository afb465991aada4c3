package hash

import "crypto/sha256"

var Zero256 = make([]byte, 32)

// Sum256 returns the SHA256 checksum of the data, zero hash for empty data.
func Sum256(data []byte) []byte {
	if len(data) == 0 {
		return Zero256
	}
	hsh := sha256.Sum256(data)
	return hsh[:]
}
