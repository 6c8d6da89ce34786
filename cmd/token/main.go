// cmd/token is a developer tool for creating auth keys and bearer tokens for local play.
package main

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/auth"
)

var cli struct {
	Keygen KeygenCmd `cmd:"" help:"write a new ed25519 key pair"`
	Mint   MintCmd   `cmd:"" help:"print a bearer token for a user id"`
}

type KeygenCmd struct {
	Dir string `help:"directory to write the key pair into" default:"keys" type:"path"`
}

func (c *KeygenCmd) Run() error {
	privPath, pubPath, err := auth.GenerateKeyFiles(c.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("AUTH_PRIVATE_KEY_PATH=%s\nAUTH_PUBLIC_KEY_PATH=%s\n", privPath, pubPath)
	return nil
}

type MintCmd struct {
	PrivateKey string `help:"raw ed25519 private key file" required:"" type:"existingfile"`
	PublicKey  string `help:"raw ed25519 public key file" required:"" type:"existingfile"`
	Expire     string `help:"token lifetime, e.g. 24h; empty or never for no expiry" default:"24h"`
	UserID     string `arg:"" optional:"" help:"user id (a new random id when omitted)"`
}

func (c *MintCmd) Run() error {
	userID := c.UserID
	if userID == "" {
		userID = uuid.NewString()
	} else if _, err := uuid.Parse(userID); err != nil {
		return fmt.Errorf("user id must be a UUID: %w", err)
	}
	if err := auth.InitFromPath(c.PrivateKey, c.PublicKey, c.Expire); err != nil {
		return err
	}
	token, err := auth.CreateJWT(userID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("token"),
		kong.Description("Blackjack auth key and token tooling"),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
