// Command keygen prints a fresh channel key pair in the base64 form expected
// by the server and client configuration.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/gophlink/internal/cryptox"
)

func main() {
	asJSON := flag.Bool("json", false, "print a JSON config fragment")
	flag.Parse()

	kp, err := cryptox.GenerateKeyPair()
	if err != nil {
		log.Fatalf("generating keys: %v", err)
	}
	cipherKey, macKey := kp.Encoded()

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]string{"cipher_key": cipherKey, "mac_key": macKey}); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	fmt.Printf("cipher_key = %q\nmac_key = %q\n", cipherKey, macKey)
}
