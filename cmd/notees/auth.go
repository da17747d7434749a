package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/notees"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Args:  cobra.NoArgs,
	RunE: withClient(func(cmd *cobra.Command, c *client, _ []string) error {
		email, _ := cmd.Flags().GetString("email")
		return c.login(cmd.Context(), email)
	}),
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE: withClient(func(cmd *cobra.Command, c *client, _ []string) error {
		return c.signup(cmd.Context())
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: withClient(func(cmd *cobra.Command, c *client, _ []string) error {
		return c.logout(cmd.Context())
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE: withClient(func(_ *cobra.Command, c *client, _ []string) error {
		fmt.Fprint(c.out, renderWhoami(c.styles(), c.app.State(), time.Now()))
		return nil
	}),
}

func (c *client) login(ctx context.Context, email string) error {
	if st := c.app.State(); st.Authenticated() {
		fmt.Fprintf(c.out, "Already signed in as %s.\n", st.User.Email)
		return nil
	}
	st := c.styles()
	fmt.Fprintln(c.out, st.Title.Render("Welcome Back"))

	email, err := c.prompt.orAsk(email, "Email")
	if err != nil {
		return err
	}
	password, err := c.prompt.Password("Password")
	if err != nil {
		return err
	}
	sess, err := c.app.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	c.settle(ctx, true)
	fmt.Fprintln(c.out, st.Success.Render("Signed in as "+sess.User.Email))
	return nil
}

func (c *client) signup(ctx context.Context) error {
	st := c.styles()
	fmt.Fprintln(c.out, st.Title.Render("Create Account"))

	var req notees.SignUpRequest
	var err error
	if req.FullName, err = c.prompt.Line("Full name"); err != nil {
		return err
	}
	if req.Email, err = c.prompt.Line("Email"); err != nil {
		return err
	}
	if req.Password, err = c.prompt.Password("Password"); err != nil {
		return err
	}
	if req.Confirm, err = c.prompt.Password("Confirm password"); err != nil {
		return err
	}

	sess, err := c.app.SignUp(ctx, req)
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Fprintln(c.out, st.Success.Render("Account created. Please verify your email."))
		return nil
	}
	c.settle(ctx, true)
	fmt.Fprintln(c.out, st.Success.Render("Account created. Signed in as "+sess.User.Email))
	return nil
}

func (c *client) logout(ctx context.Context) error {
	if !c.app.State().Authenticated() {
		fmt.Fprintln(c.out, "Not signed in.")
		return nil
	}
	if err := c.app.SignOut(ctx); err != nil {
		return err
	}
	c.settle(ctx, false)
	fmt.Fprintln(c.out, "Signed out.")
	return nil
}
