package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
	"github.com/aussiebroadwan/roster/internal/roster/service"
)

func (c *CLI) setup(ctx context.Context, args []string) error {
	fs := c.flags("setup")
	username := fs.String("username", "", "admin username")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	done, err := c.svc.Bootstrap.IsBootstrapped(ctx)
	if err != nil {
		return err
	}
	if done {
		return service.ErrAlreadyBootstrapped
	}

	reg, err := c.registration(*username)
	if err != nil {
		return err
	}
	acct, err := c.svc.Bootstrap.SetupAdmin(ctx, reg)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Created admin account %s\n", acct.Username)
	return nil
}

func (c *CLI) login(ctx context.Context, args []string) error {
	fs := c.flags("login")
	roleName := fs.String("role", "", "role to act as")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	var role domain.Role
	if *roleName != "" {
		if role, err = domain.ParseRole(*roleName); err != nil {
			return fmt.Errorf("%w: %w", service.ErrInvalidRole, err)
		}
	}

	role, err = c.signIn(ctx, rest[0], role)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Logged in as %s (%s)\n", rest[0], role)
	return nil
}

func (c *CLI) passwd(ctx context.Context, args []string) error {
	rest, err := parse(c.flags("passwd"), args, 1)
	if err != nil {
		return err
	}

	current, err := promptPassword(c.out, "Current password")
	if err != nil {
		return err
	}
	next, err := promptNewPassword(c.out)
	if err != nil {
		return err
	}

	if err := c.svc.Credentials.ChangePassword(ctx, rest[0], current, next); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Password changed")
	return nil
}

func (c *CLI) redeem(ctx context.Context, args []string) error {
	fs := c.flags("redeem")
	roleName := fs.String("role", "", "role to take from the invitation")
	rest, err := parse(fs, args, 2)
	if err != nil {
		return err
	}
	code, username := rest[0], rest[1]

	roles, err := c.svc.Invites.InvitationRoles(ctx, code)
	if err != nil {
		return err
	}

	var role domain.Role
	switch {
	case *roleName != "":
		if role, err = domain.ParseRole(*roleName); err != nil {
			return fmt.Errorf("%w: %w", service.ErrInvalidRole, err)
		}
	case len(roles) > 1:
		if role, err = c.chooseRole(roles); err != nil {
			return err
		}
	}

	reg, err := c.registration(username)
	if err != nil {
		return err
	}
	acct, err := c.svc.Invites.RedeemInvitation(ctx, code, reg, role)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Created account %s (%s)\n", acct.Username, acct.Roles)
	return nil
}

func (c *CLI) invite(ctx context.Context, args []string) error {
	fs := c.flags("invite")
	as := fs.String("as", "", "acting admin username")
	roleNames := fs.String("roles", "", "comma separated roles the code authorizes")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	roles, err := domain.ParseRoleSet(*roleNames)
	if err != nil {
		return fmt.Errorf("%w: %w", service.ErrInvalidRole, err)
	}
	if roles.Empty() {
		return service.ErrEmptyRoleSet
	}

	if err := c.asAdmin(ctx, *as); err != nil {
		return err
	}
	code, err := c.svc.Invites.Generate(ctx, *as, roles)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Invitation code: %s (%s)\n", code, roles)
	return nil
}

func (c *CLI) addRole(ctx context.Context, args []string) error {
	return c.changeRole(ctx, "add-role", args, c.svc.Privileges.AddRole, "Granted")
}

func (c *CLI) removeRole(ctx context.Context, args []string) error {
	return c.changeRole(ctx, "remove-role", args, c.svc.Privileges.RemoveRole, "Revoked")
}

func (c *CLI) changeRole(
	ctx context.Context,
	name string,
	args []string,
	apply func(context.Context, string, domain.Role) error,
	verb string,
) error {
	fs := c.flags(name)
	as := fs.String("as", "", "acting admin username")
	rest, err := parse(fs, args, 2)
	if err != nil {
		return err
	}

	role, err := domain.ParseRole(rest[1])
	if err != nil {
		return fmt.Errorf("%w: %w", service.ErrInvalidRole, err)
	}

	if err := c.asAdmin(ctx, *as); err != nil {
		return err
	}
	if err := apply(ctx, rest[0], role); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%s %s for %s\n", verb, role, rest[0])
	return nil
}

func (c *CLI) deleteAccount(ctx context.Context, args []string) error {
	fs := c.flags("delete")
	as := fs.String("as", "", "acting admin username")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	if err := c.asAdmin(ctx, *as); err != nil {
		return err
	}
	if err := c.svc.Privileges.DeleteAccount(ctx, *as, rest[0]); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Deleted %s\n", rest[0])
	return nil
}

func (c *CLI) resetPassword(ctx context.Context, args []string) error {
	fs := c.flags("reset-password")
	as := fs.String("as", "", "acting admin username")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	if err := c.asAdmin(ctx, *as); err != nil {
		return err
	}
	temporary, err := c.svc.Privileges.ResetPassword(ctx, rest[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Temporary password for %s: %s\n", rest[0], temporary)
	fmt.Fprintln(c.out, "It is shown once. Ask the user to change it with 'roster passwd'.")
	return nil
}

func (c *CLI) list(ctx context.Context, args []string) error {
	fs := c.flags("list")
	as := fs.String("as", "", "acting admin username")
	namesOnly := fs.Bool("names", false, "print usernames only")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	if err := c.asAdmin(ctx, *as); err != nil {
		return err
	}

	if *namesOnly {
		names, err := c.svc.Privileges.ListUsernames(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, strings.Join(names, "\n"))
		return nil
	}

	accounts, err := c.svc.Privileges.ListAccounts(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tNAME\tEMAIL\tROLES")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Username, a.DisplayName, a.Email, a.Roles)
	}
	return tw.Flush()
}
