package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/glaseagle/3DAuth-FireStore/internal/crypto"
)

func main() {
	privKeyB64 := flag.String("key", "", "Base64-encoded Ed25519 private key")
	userID := flag.String("user", "", "User UUID")
	bodyFile := flag.String("body", "", "File containing request body (or use stdin)")
	curl := flag.Bool("curl", false, "Print headers as curl -H arguments")
	flag.Parse()

	if *privKeyB64 == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "Usage: sign -key <private-key-base64> -user <user-uuid> [-body <file>] [-curl]")
		fmt.Fprintln(os.Stderr, "  Reads body from stdin if -body not specified")
		os.Exit(1)
	}

	privKeyBytes, err := base64.StdEncoding.DecodeString(*privKeyB64)
	if err != nil || len(privKeyBytes) != ed25519.PrivateKeySize {
		fmt.Fprintln(os.Stderr, "Invalid private key: expected base64-encoded 64-byte Ed25519 key")
		os.Exit(1)
	}
	privKey := ed25519.PrivateKey(privKeyBytes)

	var body []byte
	if *bodyFile != "" {
		body, err = os.ReadFile(*bodyFile)
	} else {
		body, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		os.Exit(1)
	}

	nonce := crypto.NewNonce()
	timestamp := time.Now().UnixMilli()
	signatureB64 := crypto.SignRequest(privKey, body, nonce, timestamp)

	headers := [][2]string{
		{crypto.HeaderUser, *userID},
		{crypto.HeaderNonce, nonce},
		{crypto.HeaderTimestamp, fmt.Sprintf("%d", timestamp)},
		{crypto.HeaderSignature, signatureB64},
	}
	for _, h := range headers {
		if *curl {
			fmt.Printf("-H '%s: %s' ", h[0], h[1])
			continue
		}
		fmt.Printf("%s: %s\n", h[0], h[1])
	}
	if *curl {
		fmt.Println()
	}
}
