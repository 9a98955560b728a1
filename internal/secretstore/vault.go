// Package secretstore implements the Encrypted Secret Store (component A):
// an AES-GCM + PBKDF2 local credential vault with master-password
// rotation. Its file layout and rotate-via-stage-then-swap discipline are
// adapted from the sibling example pack's age-based dotenv vault
// (stage under a temp path, re-encrypt everything, atomic swap), but the
// underlying primitive is swapped from asymmetric X25519 recipients to a
// password-derived symmetric key, since spec.md requires a single master
// password, not recipient keys.
package secretstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"govctl/internal/govctlerr"
	"govctl/internal/obslog"
)

const (
	pbkdf2Iterations = 200_000
	saltSize         = 16
	keySize          = 32 // AES-256
	nonceSize        = 12 // 96-bit GCM nonce
)

// ErrAuthenticationFailed is returned verbatim (never wrapped with a
// different message) so callers cannot distinguish "wrong password" from
// "corrupt ciphertext" — both are the same failure mode from the vault's
// point of view, and spec.md requires no partial decrypt on either.
var ErrAuthenticationFailed = errors.New("authentication_failed")

// vaultMeta is the sibling config file holding the KDF parameters.
type vaultMeta struct {
	Salt       string `json:"salt"`
	Iterations int    `json:"iterations"`
}

// record is the on-disk shape of one (service, key) secret.
type record struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// Vault is the Secret Store's runtime handle: a directory on disk plus the
// derived content key held only in memory for the lifetime of the process.
type Vault struct {
	dir string
	key []byte // derived from master password; zeroed on Close
}

func vaultMetaPath(dir string) string { return filepath.Join(dir, "vault.json") }

func recordPath(dir, service, key string) string {
	return filepath.Join(dir, fmt.Sprintf("%s__%s.json", sanitize(service), sanitize(key)))
}

func sanitize(s string) string {
	b := []byte(s)
	for i, c := range b {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		b[i] = '_'
	}
	return string(b)
}

func deriveKey(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256New)
}

// Init creates a new vault at dir. Fails if the directory already holds a
// non-empty vault unless force is true — this prevents orphaning secrets
// by accidental re-initialization.
func Init(dir, masterPassword string, force bool) (*Vault, error) {
	log := obslog.Get(obslog.CategorySecret)
	metaPath := vaultMetaPath(dir)
	if _, err := os.Stat(metaPath); err == nil && !force {
		existing, err := listRecordFiles(dir)
		if err == nil && len(existing) > 0 {
			return nil, govctlerr.New(govctlerr.KindConfig, "secretstore.Init",
				fmt.Errorf("vault already initialized at %s with %d secrets; pass force to reinitialize", dir, len(existing)))
		}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, govctlerr.New(govctlerr.KindInternal, "secretstore.Init", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, govctlerr.New(govctlerr.KindInternal, "secretstore.Init", err)
	}

	meta := vaultMeta{Salt: base64.StdEncoding.EncodeToString(salt), Iterations: pbkdf2Iterations}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, govctlerr.New(govctlerr.KindInternal, "secretstore.Init", err)
	}
	if err := os.WriteFile(metaPath, data, 0o600); err != nil {
		return nil, govctlerr.New(govctlerr.KindInternal, "secretstore.Init", err)
	}

	log.Info("vault initialized at %s", dir)
	key := deriveKey(masterPassword, salt, meta.Iterations)
	return &Vault{dir: dir, key: key}, nil
}

// Open loads an existing vault's KDF parameters and derives the content
// key from masterPassword. It does not itself validate the password —
// validation happens lazily on the first Get/List, matching the "no
// partial decrypt" invariant: a wrong password simply fails to decrypt.
func Open(dir, masterPassword string) (*Vault, error) {
	data, err := os.ReadFile(vaultMetaPath(dir))
	if err != nil {
		return nil, govctlerr.New(govctlerr.KindConfig, "secretstore.Open", fmt.Errorf("no vault at %s: %w", dir, err))
	}
	var meta vaultMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, govctlerr.New(govctlerr.KindConfig, "secretstore.Open", err)
	}
	salt, err := base64.StdEncoding.DecodeString(meta.Salt)
	if err != nil {
		return nil, govctlerr.New(govctlerr.KindConfig, "secretstore.Open", err)
	}
	key := deriveKey(masterPassword, salt, meta.Iterations)
	return &Vault{dir: dir, key: key}, nil
}

func (v *Vault) seal(plaintext []byte, aad []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	ciphertext = gcm.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

func (v *Vault) open(ciphertext, nonce, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// aad binds the ciphertext to (service, key) so a record cannot be
// silently relocated to answer a different lookup.
func aad(service, key string) []byte {
	return []byte(service + "\x00" + key)
}

// Set encrypts value under (service, key) and writes it to disk.
func (v *Vault) Set(service, key, value string) error {
	ciphertext, nonce, err := v.seal([]byte(value), aad(service, key))
	if err != nil {
		return govctlerr.New(govctlerr.KindInternal, "secretstore.Set", err)
	}
	now := nowRFC3339()
	rec := record{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing, err := v.readRecord(service, key); err == nil {
		rec.CreatedAt = existing.CreatedAt
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return govctlerr.New(govctlerr.KindInternal, "secretstore.Set", err)
	}
	if err := os.MkdirAll(v.dir, 0o700); err != nil {
		return govctlerr.New(govctlerr.KindInternal, "secretstore.Set", err)
	}
	path := recordPath(v.dir, service, key)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return govctlerr.New(govctlerr.KindInternal, "secretstore.Set", err)
	}
	obslog.Get(obslog.CategorySecret).Info("secret set: service=%s key=%s", service, key)
	return nil
}

func (v *Vault) readRecord(service, key string) (record, error) {
	data, err := os.ReadFile(recordPath(v.dir, service, key))
	if err != nil {
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, err
	}
	return rec, nil
}

// Get decrypts (service, key). If no record file exists for (service, key)
// (including when the vault directory is missing), it falls back to the
// environment variable GOVCTL_SECRET_<SERVICE>_<KEY>, so callers never need to
// branch on "secret vs env" — per spec.md §4.1.
func (v *Vault) Get(service, key string) (string, error) {
	rec, err := v.readRecord(service, key)
	if err != nil {
		if os.IsNotExist(err) {
			if val, ok := envFallback(service, key); ok {
				return val, nil
			}
		}
		return "", govctlerr.New(govctlerr.KindConfig, "secretstore.Get", fmt.Errorf("no secret %s/%s", service, key))
	}
	ciphertext, err := base64.StdEncoding.DecodeString(rec.Ciphertext)
	if err != nil {
		return "", govctlerr.New(govctlerr.KindInternal, "secretstore.Get", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(rec.Nonce)
	if err != nil {
		return "", govctlerr.New(govctlerr.KindInternal, "secretstore.Get", err)
	}
	plaintext, err := v.open(ciphertext, nonce, aad(service, key))
	if err != nil {
		return "", govctlerr.New(govctlerr.KindAuth, "secretstore.Get", err)
	}
	return string(plaintext), nil
}

func envFallback(service, key string) (string, bool) {
	name := "GOVCTL_SECRET_" + envName(service) + "_" + envName(key)
	v := os.Getenv(name)
	return v, v != ""
}

func envName(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			b[i] = c - 32
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}

// Entry is a masked listing row.
type Entry struct {
	Service   string
	Key       string
	Masked    string
	UpdatedAt string
}

// List enumerates secrets. With mask=true, values are not decrypted at
// all — only metadata and a fixed mask are returned.
func (v *Vault) List(mask bool) ([]Entry, error) {
	files, err := listRecordFiles(v.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, govctlerr.New(govctlerr.KindInternal, "secretstore.List", err)
	}
	out := make([]Entry, 0, len(files))
	for _, f := range files {
		service, key, ok := splitRecordName(f)
		if !ok {
			continue
		}
		rec, err := v.readRecord(service, key)
		if err != nil {
			continue
		}
		masked := "****"
		if !mask {
			if val, err := v.Get(service, key); err == nil {
				masked = val
			}
		}
		out = append(out, Entry{Service: service, Key: key, Masked: masked, UpdatedAt: rec.UpdatedAt})
	}
	return out, nil
}

// Delete removes one (service, key) record.
func (v *Vault) Delete(service, key string) error {
	path := recordPath(v.dir, service, key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return govctlerr.New(govctlerr.KindInternal, "secretstore.Delete", err)
	}
	return nil
}

// ImportEnv sets (service, key) from an already-resolved environment
// variable's value, used by `secret import_env`.
func (v *Vault) ImportEnv(service, key, envVar string) error {
	val := os.Getenv(envVar)
	if val == "" {
		return govctlerr.New(govctlerr.KindConfig, "secretstore.ImportEnv", fmt.Errorf("env var %s is unset or empty", envVar))
	}
	return v.Set(service, key, val)
}

// Export decrypts every secret into a plain map, used by `secret export`.
// Callers are responsible for handling the result as sensitive material.
func (v *Vault) Export() (map[string]string, error) {
	entries, err := v.List(false)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Service+"/"+e.Key] = e.Masked
	}
	return out, nil
}

func listRecordFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if e.Name() == "vault.json" {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

func splitRecordName(filename string) (service, key string, ok bool) {
	const suffix = ".json"
	if len(filename) <= len(suffix) || filename[len(filename)-len(suffix):] != suffix {
		return "", "", false
	}
	base := filename[:len(filename)-len(suffix)]
	for i := 0; i+1 < len(base); i++ {
		if base[i] == '_' && base[i+1] == '_' {
			return base[:i], base[i+2:], true
		}
	}
	return "", "", false
}

// secureEqual is exposed for tests verifying the vault never leaks timing
// information when comparing derived keys (not on the hot decrypt path,
// which already uses GCM's constant-time tag check internally).
func secureEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
