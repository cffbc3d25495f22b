package tunnel

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"
)

// TestBuildAuthMethods_ExplicitKey verifies that a key file is loaded.
func TestBuildAuthMethods_ExplicitKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeTestKey(t, keyPath, nil)

	cfg := &SSHConfig{KeyPath: keyPath}
	methods, err := BuildAuthMethods(cfg)
	if err != nil {
		t.Fatalf("BuildAuthMethods: %v", err)
	}
	if len(methods) != 1 {
		t.Fatalf("expected one auth method, got %d", len(methods))
	}
}

// TestBuildAuthMethods_EncryptedKeyPrompts verifies the passphrase is
// requested through the configured prompt.
func TestBuildAuthMethods_EncryptedKeyPrompts(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeTestKey(t, keyPath, []byte("open sesame"))

	var asked string
	cfg := &SSHConfig{
		KeyPath: keyPath,
		Prompt: func(prompt string) ([]byte, error) {
			asked = prompt
			return []byte("open sesame"), nil
		},
	}
	if _, err := BuildAuthMethods(cfg); err != nil {
		t.Fatalf("BuildAuthMethods: %v", err)
	}
	if asked == "" {
		t.Error("passphrase prompt was not shown")
	}

	cfg.Prompt = func(string) ([]byte, error) { return []byte("wrong"), nil }
	if _, err := BuildAuthMethods(cfg); err == nil {
		t.Error("expected error for wrong passphrase")
	}
}

// TestBuildAuthMethods_PasswordPrompt verifies password auth uses the
// prompt and surfaces prompt failures.
func TestBuildAuthMethods_PasswordPrompt(t *testing.T) {
	cfg := &SSHConfig{
		PromptPass: true,
		Prompt:     func(string) ([]byte, error) { return []byte("hunter2"), nil },
	}
	methods, err := BuildAuthMethods(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(methods) != 1 {
		t.Fatalf("expected one auth method, got %d", len(methods))
	}

	cfg.Prompt = func(string) ([]byte, error) { return nil, errors.New("no tty") }
	if _, err := BuildAuthMethods(cfg); err == nil {
		t.Fatal("expected prompt error")
	}
}

// TestBuildAuthMethods_NoMethods verifies a clear error message.
func TestBuildAuthMethods_NoMethods(t *testing.T) {
	// Remove SSH_AUTH_SOCK so agent fails, and supply no key.
	t.Setenv("SSH_AUTH_SOCK", "")

	cfg := &SSHConfig{KeyPath: "/nonexistent/key"}
	_, err := BuildAuthMethods(cfg)
	if err == nil {
		t.Fatal("expected error for missing key")
	}
}

// TestBuildAuthMethods_AgentUnavailable verifies --ssh-agent without
// an agent fails early.
func TestBuildAuthMethods_AgentUnavailable(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	if _, err := BuildAuthMethods(&SSHConfig{UseAgent: true}); err == nil {
		t.Fatal("expected agent error")
	}
}

// TestHostKeyCallback_Insecure verifies that InsecureIgnoreHostKey is used
// when StrictHostKey is false.
func TestHostKeyCallback_Insecure(t *testing.T) {
	cfg := &SSHConfig{StrictHostKey: false}
	cb, err := hostKeyCallback(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if cb == nil {
		t.Fatal("callback should not be nil")
	}
}

// TestHostKeyCallback_MissingKnownHosts verifies strict mode needs a
// readable known_hosts file.
func TestHostKeyCallback_MissingKnownHosts(t *testing.T) {
	cfg := &SSHConfig{StrictHostKey: true, KnownHosts: filepath.Join(t.TempDir(), "nope")}
	if _, err := hostKeyCallback(cfg); err == nil {
		t.Fatal("expected error for missing known_hosts")
	}
}

// ── helpers ──────────────────────────────────────────────────────────

// writeTestKey writes a fresh ed25519 key in OpenSSH format,
// encrypted when passphrase is non-nil.
func writeTestKey(t *testing.T, path string, passphrase []byte) ssh.PublicKey {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	var block *pem.Block
	if passphrase == nil {
		block, err = ssh.MarshalPrivateKey(priv, "mqtls-test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "mqtls-test", passphrase)
	}
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatal(err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	return sshPub
}
