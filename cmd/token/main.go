// Command token issues a bearer token for a user id, signed with the server's
// secret key. Flags are the server's own plus -user.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/papersson/code-bot/internal/flagx"
	"github.com/papersson/code-bot/internal/server/auth"
	"github.com/papersson/code-bot/internal/server/config"
)

func main() {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	user := fs.String("user", "", "user id the token is issued for")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-user"}))

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: token -user <id> [server flags]")
		os.Exit(2)
	}

	token, err := issue(config.LoadConfig(), *user)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}

// issue signs a token for user with the server's key and validity.
func issue(cfg *config.Config, user string) (string, error) {
	return auth.GenerateToken(user, []byte(cfg.SecretKey), cfg.TokenValidityDuration)
}
