package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/notees/theme"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive shell (default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runShell(cmd)
	},
}

const shellHelp = `Commands:
  login [email]     sign in
  signup            create an account
  logout            sign out
  whoami            show the signed-in account
  list              list your notes
  new               create a note
  edit <id>         edit a note's title and description
  delete <id>       delete a note
  media <id> <file> replace a note's attachment
  theme [name]      show or set the color theme
  where             show the current screen
  help              show this help
  quit              leave the shell`

func runShell(cmd *cobra.Command) error {
	c, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	// Screen changes come from the guard as the session changes.
	cancel := c.app.Router().Watch(func(loc string) {
		fmt.Fprintf(c.out, "\n-> %s\n", loc)
	})
	defer cancel()

	fmt.Fprintln(c.out, c.styles().Title.Render("notees"))
	fmt.Fprintln(c.out, c.styles().Muted.Render("Type help for commands."))
	return c.repl(cmd.Context())
}

func (c *client) repl(ctx context.Context) error {
	for {
		line, err := c.prompt.Line(c.app.Router().Location())
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out)
			return nil
		}
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := c.dispatch(ctx, fields[0], fields[1:]); err != nil {
			fmt.Fprintln(c.out, c.styles().Error.Render("Error: "+err.Error()))
		}
	}
}

func (c *client) dispatch(ctx context.Context, name string, args []string) error {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	switch name {
	case "help", "?":
		fmt.Fprintln(c.out, shellHelp)
	case "login":
		return c.login(ctx, arg(0))
	case "signup":
		return c.signup(ctx)
	case "logout":
		return c.logout(ctx)
	case "whoami":
		fmt.Fprint(c.out, renderWhoami(c.styles(), c.app.State(), time.Now()))
	case "list", "ls":
		return c.listPosts(ctx)
	case "new", "create":
		return c.createPost(ctx, "", "", "")
	case "edit":
		if len(args) != 1 {
			return errors.New("usage: edit <id>")
		}
		return c.shellEdit(ctx, args[0])
	case "delete", "rm":
		if len(args) != 1 {
			return errors.New("usage: delete <id>")
		}
		return c.deletePost(ctx, args[0], false)
	case "media":
		if len(args) != 2 {
			return errors.New("usage: media <id> <file>")
		}
		return c.editPost(ctx, args[0], "", "", args[1])
	case "theme":
		return c.setTheme(arg(0))
	case "where":
		fmt.Fprintln(c.out, c.app.Router().Location())
	default:
		return fmt.Errorf("unknown command %q, type help", name)
	}
	return nil
}

// shellEdit asks for the new title and description, keeping the current
// value when the answer is empty.
func (c *client) shellEdit(ctx context.Context, id string) error {
	feed, err := c.loadFeed(ctx)
	if err != nil {
		return err
	}
	p, ok := feed.Get(id)
	if !ok {
		return fmt.Errorf("no note %s", id)
	}
	title, err := c.prompt.Line(fmt.Sprintf("Title [%s]", p.Title))
	if err != nil {
		return err
	}
	description, err := c.prompt.Line(fmt.Sprintf("Description [%s]", p.Description))
	if err != nil {
		return err
	}
	return c.editPost(ctx, id, title, description, "")
}

func (c *client) setTheme(name string) error {
	if name == "" {
		current := "auto"
		if c.theme != nil {
			current = c.theme.Name
		}
		fmt.Fprintf(c.out, "theme: %s (available: auto, %s)\n", current, strings.Join(theme.Names(), ", "))
		return nil
	}
	if name == "auto" {
		c.theme = nil
		return nil
	}
	t, err := theme.Lookup(name)
	if err != nil {
		return err
	}
	c.theme = &t
	return nil
}
