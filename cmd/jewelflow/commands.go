package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"jewelflow/internal/apiclient"
	"jewelflow/internal/catalog"
	"jewelflow/internal/datatable"
	"jewelflow/internal/model"
	"jewelflow/internal/session"
	"jewelflow/pkg/apierror"
)

type cli struct {
	client *apiclient.Client
	board  *catalog.Board
	cats   *catalog.Categories
	lines  *bufio.Scanner
	out    io.Writer
}

func newCLI(client *apiclient.Client, in io.Reader, out io.Writer) *cli {
	cats := catalog.NewCategories(client)
	return &cli{
		client: client,
		board:  catalog.NewBoard(cats),
		cats:   cats,
		lines:  bufio.NewScanner(in),
		out:    out,
	}
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	switch args[0] {
	case "login":
		return c.login(ctx, args[1:])
	case "logout":
		if err := c.client.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "logged out")
		return nil
	case "whoami":
		return c.whoami(ctx)
	case "register":
		return c.register(ctx, args[1:])
	case "categories", "cat":
		if len(args) < 2 {
			return fmt.Errorf("categories: missing subcommand")
		}
		return c.categories(ctx, args[1], args[2:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := c.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password; prompted when empty")
	remember := fs.Bool("remember", false, "keep the session after this process exits")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *password == "" {
		*password = c.prompt("password: ")
	}

	res, err := c.client.Login(ctx, *email, *password, *remember)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "logged in as %s (%s)\n", res.User.FullName(), res.User.Email)
	if !*remember {
		fmt.Fprintln(c.out, "session is not remembered; it ends with this process")
	}
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	sess := c.client.Session()
	if !sess.Authenticated() {
		fmt.Fprintln(c.out, "not logged in")
		return nil
	}

	user, err := c.client.Me(ctx)
	if err != nil {
		// Fall back to what the session already knows when the server is away.
		if apierror.IsKind(err, apierror.KindNetwork) {
			if cached, ok := sess.Identity(); ok {
				note := "offline"
				if session.IsExpired(sess.Access(), time.Now()) {
					note += ", access token expired"
				}
				fmt.Fprintf(c.out, "%s <%s> role=%s (%s)\n", cached.FullName(), cached.Email, cached.Role, note)
				return nil
			}
		}
		return err
	}

	fmt.Fprintf(c.out, "%s <%s> role=%s\n", user.FullName(), user.Email, user.Role)
	return nil
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := c.flags("register")
	var req model.RegisterRequest
	fs.StringVar(&req.FirstName, "first", "", "first name")
	fs.StringVar(&req.LastName, "last", "", "last name")
	fs.StringVar(&req.Email, "email", "", "email")
	fs.StringVar(&req.Password, "password", "", "password; prompted when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if req.Password == "" {
		req.Password = c.prompt("password: ")
	}

	user, err := c.client.Register(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "registered %s; log in to continue\n", user.Email)
	return nil
}

func (c *cli) categories(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "list", "ls":
		return c.listCategories(ctx, args)
	case "create":
		return c.createCategory(ctx, args)
	case "update":
		return c.updateCategory(ctx, args)
	case "toggle":
		return c.withID(args, func(id int64) error {
			if err := c.board.Load(ctx); err != nil {
				return err
			}
			updated, err := c.board.Toggle(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, catalog.Describe(updated))
			return nil
		})
	case "delete", "rm":
		return c.withID(args, func(id int64) error {
			if err := c.cats.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "deleted #%d\n", id)
			return nil
		})
	case "bulk-delete":
		return c.bulkDelete(ctx, args)
	default:
		return fmt.Errorf("categories: unknown subcommand %q", sub)
	}
}

func (c *cli) listCategories(ctx context.Context, args []string) error {
	fs := c.flags("categories list")
	query := fs.String("q", "", "filter rows containing text")
	sortKey := fs.String("sort", catalog.ColumnID, "sort column")
	desc := fs.Bool("desc", false, "sort descending")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := c.board.Load(ctx); err != nil {
		return err
	}

	dir := datatable.Asc
	if *desc {
		dir = datatable.Desc
	}

	var (
		rows    []model.Category
		sortErr error
	)
	c.board.View(func(t *datatable.Table[model.Category]) {
		if sortErr = t.SetSort(*sortKey, dir); sortErr != nil {
			return
		}
		t.Search(*query)
		rows = t.Rows()
	})
	if sortErr != nil {
		return sortErr
	}

	if len(rows) == 0 {
		fmt.Fprintln(c.out, "no categories")
		return nil
	}
	for _, row := range rows {
		fmt.Fprintln(c.out, catalog.Describe(row))
	}
	return nil
}

func (c *cli) categoryFlags(name string) (*flag.FlagSet, *model.CategoryRequest, *string) {
	fs := c.flags(name)
	req := &model.CategoryRequest{}
	description := new(string)
	fs.StringVar(&req.Name, "name", "", "category name")
	fs.StringVar(description, "description", "", "category description")
	return fs, req, description
}

func (c *cli) createCategory(ctx context.Context, args []string) error {
	fs, req, description := c.categoryFlags("categories create")
	inactive := fs.Bool("inactive", false, "create the category disabled")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req.Description = description
	active := !*inactive
	req.IsActive = &active

	created, err := c.cats.Create(ctx, *req)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "created", catalog.Describe(*created))
	return nil
}

func (c *cli) updateCategory(ctx context.Context, args []string) error {
	fs, req, description := c.categoryFlags("categories update")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req.Description = description

	return c.withID(fs.Args(), func(id int64) error {
		if err := c.board.Load(ctx); err != nil {
			return err
		}
		if !c.board.Edit(id) {
			return fmt.Errorf("category %d not found", id)
		}
		updated, err := c.board.SaveEdit(ctx, *req)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, "updated", catalog.Describe(updated))
		return nil
	})
}

func (c *cli) bulkDelete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("bulk-delete: at least one id is required")
	}

	if err := c.board.Load(ctx); err != nil {
		return err
	}

	var selectErr error
	c.board.View(func(t *datatable.Table[model.Category]) {
		t.ClearSelection()
		for _, raw := range args {
			id, err := parseID(raw)
			if err != nil {
				selectErr = err
				return
			}
			key := strconv.FormatInt(id, 10)
			if t.IsSelected(key) {
				continue
			}
			if !t.Toggle(key) {
				selectErr = fmt.Errorf("category %d not found", id)
				return
			}
		}
	})
	if selectErr != nil {
		return selectErr
	}

	n, err := c.board.RemoveSelected(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "deleted %d categories\n", n)
	return nil
}

func (c *cli) withID(args []string, fn func(id int64) error) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one category id")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return fn(id)
}

func (c *cli) prompt(label string) string {
	fmt.Fprint(c.out, label)
	if !c.lines.Scan() {
		return ""
	}
	return strings.TrimSpace(c.lines.Text())
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid category id %q", raw)
	}
	return id, nil
}

// describeError turns API failures into one line a person can act on.
func describeError(err error) string {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	msg := apiErr.Message
	switch apiErr.Kind {
	case apierror.KindSessionExpired:
		return "session expired, log in again"
	case apierror.KindUnauthorized:
		return "not logged in"
	case apierror.KindNetwork:
		return "cannot reach the server: " + msg
	}

	if len(apiErr.Fields) > 0 {
		parts := make([]string, 0, len(apiErr.Fields))
		for field := range apiErr.Fields {
			parts = append(parts, field+": "+apiErr.FieldError(field))
		}
		slices.Sort(parts)
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return msg
}
