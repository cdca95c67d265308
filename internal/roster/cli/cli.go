// Package cli is a terminal front end over the roster services. It collects
// input and renders results; every rule is enforced by the services.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
	"github.com/aussiebroadwan/roster/internal/roster/service"
	"github.com/aussiebroadwan/roster/internal/roster/session"
)

// ErrUsage is returned for unknown commands or malformed arguments.
var ErrUsage = errors.New("usage error")

type Services struct {
	Credentials *service.CredentialService
	Invites     *service.InviteService
	Privileges  *service.PrivilegeService
	Bootstrap   *service.BootstrapService
	Session     *session.Session
}

type CLI struct {
	svc Services
	in  *bufio.Reader
	out io.Writer
}

func New(svc Services, in io.Reader, out io.Writer) *CLI {
	return &CLI{svc: svc, in: bufio.NewReader(in), out: out}
}

type command struct {
	usage string
	run   func(c *CLI, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"setup":          {"setup                               create the first admin account", (*CLI).setup},
	"login":          {"login [--role r] <username>          verify a password and pick a role", (*CLI).login},
	"passwd":         {"passwd <username>                    change your own password", (*CLI).passwd},
	"redeem":         {"redeem <code> <username>             create an account from an invitation", (*CLI).redeem},
	"invite":         {"invite --as admin --roles r1,r2      issue an invitation code", (*CLI).invite},
	"add-role":       {"add-role --as admin <username> <role>", (*CLI).addRole},
	"remove-role":    {"remove-role --as admin <username> <role>", (*CLI).removeRole},
	"delete":         {"delete --as admin <username>", (*CLI).deleteAccount},
	"reset-password": {"reset-password --as admin <username> issue a temporary password", (*CLI).resetPassword},
	"list":           {"list --as admin [--names]            list accounts", (*CLI).list},
}

// Run executes one command.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		c.usage()
		if len(args) == 0 {
			return ErrUsage
		}
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		c.usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	return cmd.run(c, ctx, args[1:])
}

func (c *CLI) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(c.out, "usage: roster <command> [flags]")
	for _, name := range names {
		fmt.Fprintln(c.out, "  "+commands[name].usage)
	}
}

func (c *CLI) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func parse(fs *flag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() != positional {
		return nil, fmt.Errorf("%w: %s expects %d argument(s), got %d", ErrUsage, fs.Name(), positional, fs.NArg())
	}
	return fs.Args(), nil
}

// chooseRole asks the user to pick one of roles.
func (c *CLI) chooseRole(roles domain.RoleSet) (domain.Role, error) {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	answer, err := c.prompt(fmt.Sprintf("Role (%s)", strings.Join(names, ", ")))
	if err != nil {
		return "", err
	}
	return domain.ParseRole(answer)
}

func (c *CLI) prompt(label string) (string, error) { return prompt(c.in, c.out, label) }

// registration prompts for the optional profile fields and a new password.
func (c *CLI) registration(username string) (domain.Registration, error) {
	reg := domain.Registration{Username: username}

	var err error
	if reg.Username == "" {
		if reg.Username, err = c.prompt("Username"); err != nil {
			return reg, err
		}
	}
	if reg.DisplayName, err = c.prompt("Display name"); err != nil {
		return reg, err
	}
	if reg.Email, err = c.prompt("Email"); err != nil {
		return reg, err
	}
	if reg.Password, err = promptNewPassword(c.out); err != nil {
		return reg, err
	}
	return reg, nil
}

// signIn verifies username and records the session as role. An empty role
// lets the account's role set decide, asking when there is more than one.
func (c *CLI) signIn(ctx context.Context, username string, role domain.Role) (domain.Role, error) {
	password, err := promptPassword(c.out, "Password for "+username)
	if err != nil {
		return "", err
	}

	if role == "" {
		roles, err := c.svc.Credentials.EligibleRoles(ctx, username, password)
		if err != nil {
			return "", err
		}
		if len(roles) > 1 {
			if role, err = c.chooseRole(roles); err != nil {
				return "", err
			}
		}
	}

	role, err = c.svc.Credentials.Login(ctx, username, password, role)
	if err != nil {
		return "", err
	}
	c.svc.Session.Start(username, role)
	return role, nil
}

// asAdmin signs in the acting account as admin before an admin command.
func (c *CLI) asAdmin(ctx context.Context, acting string) error {
	if acting == "" {
		return fmt.Errorf("%w: --as is required", ErrUsage)
	}
	_, err := c.signIn(ctx, acting, domain.RoleAdmin)
	return err
}
