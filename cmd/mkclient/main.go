// Command mkclient mints a client credential for the token endpoint and
// prints the registry fragment to splice into SIGNOFF_AUTH_CLIENTS. The
// plaintext secret is shown once; only its hash goes into the registry.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"signoff/internal/auth/secrets"
)

func main() {
	clientID := flag.String("client", "", "client identifier to register")
	secret := flag.String("secret", "", "secret to hash; generated when empty")
	flag.Parse()

	if *clientID == "" {
		fmt.Fprintln(os.Stderr, "usage: mkclient -client <id> [-secret <value>]")
		os.Exit(2)
	}

	plaintext := *secret
	if plaintext == "" {
		generated, err := secrets.Generate()
		if err != nil {
			fail(err)
		}
		plaintext = generated
	}

	hash, err := secrets.Hash(plaintext)
	if err != nil {
		fail(err)
	}

	registry, err := json.Marshal(map[string]string{*clientID: hash})
	if err != nil {
		fail(err)
	}

	fmt.Printf("client_id:     %s\n", *clientID)
	fmt.Printf("client_secret: %s\n", plaintext)
	fmt.Printf("registry:      %s\n", registry)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "mkclient:", err)
	os.Exit(1)
}
