package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/MrEthical07/goRights/jwt"
	"github.com/MrEthical07/goRights/rights"
)

// runToken implements `rightsd token`: it mints a principal token with the
// daemon's signing configuration, for operators and local testing.
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	var (
		subject  = fs.String("sub", "", "principal id")
		roles    = fs.String("roles", "", "comma separated role names")
		override = fs.String("rights", "", "base64url override rights; implies use of override rights")
		disabled = fs.Bool("disabled", false, "mark the principal disabled")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("token: -sub is required")
	}

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	tokens, err := newTokenManager(cfg)
	if err != nil {
		return err
	}

	sub := tokenSubject(*subject, *roles, *disabled)
	if *override != "" {
		buf, err := rights.Decode(*override)
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		sub.Rights = buf
		sub.UseRights = true
	}

	token, err := tokens.Issue(sub)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func splitRoles(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func tokenSubject(id, roles string, disabled bool) jwt.Subject {
	return jwt.Subject{ID: id, Roles: splitRoles(roles), Disabled: disabled}
}
