package secretstore

import (
	"crypto/sha256"
	"hash"
	"time"
)

// sha256New adapts crypto/sha256.New to pbkdf2.Key's func() hash.Hash
// parameter shape.
func sha256New() hash.Hash { return sha256.New() }

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }
