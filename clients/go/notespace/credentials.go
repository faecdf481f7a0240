package notespace

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glaseagle/3DAuth-FireStore/internal/crypto"
)

const (
	userFile = "user.json"
	keyFile  = "private.key"
)

// Config is the user.json file. The private key seed lives beside it in
// private.key, base64-encoded.
type Config struct {
	ID        string `json:"id"`
	PublicKey string `json:"public_key"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// LoadConfig loads credentials from ConfigDir.
func (c *Client) LoadConfig() error {
	raw, err := os.ReadFile(filepath.Join(c.ConfigDir, userFile))
	if err != nil {
		return err
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("%s: %w", userFile, err)
	}

	seed, err := os.ReadFile(filepath.Join(c.ConfigDir, keyFile))
	if err != nil {
		return err
	}
	priv, err := crypto.PrivateKeyFromSeed(string(bytes.TrimSpace(seed)))
	if err != nil {
		return fmt.Errorf("%s: %w", keyFile, err)
	}

	c.UserID, c.Name, c.Email = cfg.ID, cfg.Name, cfg.Email
	c.PrivateKey = priv
	c.PublicKey = priv.Public().(ed25519.PublicKey)
	return nil
}

// SaveConfig writes credentials to ConfigDir, readable only by the owner.
func (c *Client) SaveConfig() error {
	if err := os.MkdirAll(c.ConfigDir, 0o700); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(Config{
		ID:        c.UserID,
		PublicKey: base64.StdEncoding.EncodeToString(c.PublicKey),
		Name:      c.Name,
		Email:     c.Email,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(c.ConfigDir, userFile), raw, 0o600); err != nil {
		return err
	}

	seed := base64.StdEncoding.EncodeToString(c.PrivateKey.Seed())
	return os.WriteFile(filepath.Join(c.ConfigDir, keyFile), []byte(seed), 0o600)
}

// SignOut forgets the user id. The keypair stays on disk so signing in
// again with Register keeps the same account.
func (c *Client) SignOut() error {
	c.UserID = ""
	if c.PrivateKey == nil {
		return nil
	}
	return c.SaveConfig()
}

// GenerateKeypair replaces the in-memory keypair with a fresh one.
func (c *Client) GenerateKeypair() error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	c.PublicKey, c.PrivateKey = pub, priv
	return nil
}
