package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	c "Userdb/common"
	"Userdb/config"
	"Userdb/connector"
	"Userdb/net"
	"Userdb/service"

	goversion "github.com/caarlos0/go-version"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

var (
	version = "0.1.0"
	commit  = ""
	date    = ""
)

const menu = `
========= USER DATABASE MENU =========
 1 - Add user
 2 - Remove user
 3 - Get user by ID
 4 - List users
 5 - Modify user
 9 - Shutdown server
 0 - Exit
--------------------------------------`

func main() {
	configPath := flag.String("c", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage: client [-c <config.yaml>] [host]")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(buildVersion().String())
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	closer, err := cfg.Log.Apply(logrus.StandardLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "log: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if flag.NArg() > 0 {
		cfg.Client.Host = flag.Arg(0)
	}

	co := connector.New(cfg.Client)
	api, err := co.Resolve(context.Background(), cfg.Client.Addr())
	if err != nil {
		fmt.Println("Unable to connect to server.")
		logrus.Errorf("%s: %v", c.CurFuncName(), err)
		return
	}

	newConsole(api, os.Stdin, os.Stdout).run(context.Background())
}

type console struct {
	api service.API
	p   *prompter
	out io.Writer
}

func newConsole(api service.API, in io.Reader, out io.Writer) *console {
	return &console{api: api, p: newPrompter(in, out), out: out}
}

// run shows the menu until the user exits, the input ends or the connection
// to the server is lost.
func (cs *console) run(ctx context.Context) {
	defer fmt.Fprintln(cs.out, "Client closed.")
	for {
		fmt.Fprintln(cs.out, menu)
		fmt.Fprint(cs.out, "Choose option: ")
		choice, err := cs.p.line()
		if err != nil {
			return
		}

		exit, err := cs.dispatch(ctx, choice)
		var ve *c.ValidationError
		switch {
		case err == nil:
		case errors.As(err, &ve):
			fmt.Fprintf(cs.out, "Validation error: %s\n", ve.Reason)
		case errors.Is(err, errInputClosed):
			return
		case errors.Is(err, net.ErrTransport):
			fmt.Fprintf(cs.out, "REMOTE ERROR: %v\n", err)
			return
		default:
			fmt.Fprintf(cs.out, "Error: %v\n", err)
		}
		if exit {
			return
		}
	}
}

func (cs *console) dispatch(ctx context.Context, choice string) (bool, error) {
	switch choice {
	case "1":
		return false, cs.addUser(ctx)
	case "2":
		return false, cs.removeUser(ctx)
	case "3":
		return false, cs.getUser(ctx)
	case "4":
		return false, cs.listUsers(ctx)
	case "5":
		return false, cs.modifyUser(ctx)
	case "9":
		if err := cs.api.Shutdown(ctx); err != nil {
			return true, err
		}
		fmt.Fprintln(cs.out, "Shutdown request sent to server.")
		return true, nil
	case "0":
		return true, nil
	default:
		fmt.Fprintln(cs.out, "Invalid menu option.")
		return false, nil
	}
}

func (cs *console) addUser(ctx context.Context) error {
	var (
		u   c.Record
		err error
	)
	if u.FirstName, err = cs.p.name("First name"); err != nil {
		return err
	}
	if u.LastName, err = cs.p.name("Last name"); err != nil {
		return err
	}
	if u.BirthDate, err = cs.p.date("Birth date"); err != nil {
		return err
	}
	if u.Salary, err = cs.p.amount("Salary"); err != nil {
		return err
	}
	if u.Gender, err = cs.p.gender("Gender"); err != nil {
		return err
	}
	if u.Department, err = cs.p.text("Department"); err != nil {
		return err
	}
	if u.Position, err = cs.p.text("Position"); err != nil {
		return err
	}

	created, err := cs.api.Create(ctx, &u)
	if err != nil {
		return err
	}
	fmt.Fprintf(cs.out, "User added with id=%d.\n", created.ID)
	return nil
}

func (cs *console) removeUser(ctx context.Context) error {
	id, err := cs.p.id("User ID")
	if err != nil {
		return err
	}
	ok, err := cs.api.Delete(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(cs.out, "User deleted.")
	} else {
		fmt.Fprintln(cs.out, "User not found.")
	}
	return nil
}

func (cs *console) getUser(ctx context.Context) error {
	id, err := cs.p.id("User ID")
	if err != nil {
		return err
	}
	u, found, err := cs.api.Read(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(cs.out, "User not found.")
		return nil
	}
	fmt.Fprintln(cs.out, u)
	return nil
}

func (cs *console) listUsers(ctx context.Context) error {
	users, err := cs.api.List(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(cs.out, "No users stored.")
		return nil
	}
	slices.SortFunc(users, func(a, b c.Record) int {
		return cmp.Compare(a.ID, b.ID)
	})
	for _, u := range users {
		fmt.Fprintln(cs.out, u)
	}
	return nil
}

func (cs *console) modifyUser(ctx context.Context) error {
	id, err := cs.p.id("User ID")
	if err != nil {
		return err
	}
	fmt.Fprintln(cs.out, "1 - Change salary")
	fmt.Fprintln(cs.out, "2 - Change department & position")
	option, err := cs.p.line()
	if err != nil {
		return err
	}

	var ok bool
	switch option {
	case "1":
		salary, err := cs.p.amount("New salary")
		if err != nil {
			return err
		}
		if ok, err = cs.api.UpdateSalary(ctx, id, salary); err != nil {
			return err
		}
		if ok {
			fmt.Fprintln(cs.out, "Salary updated.")
		}
	case "2":
		dep, err := cs.p.text("New department")
		if err != nil {
			return err
		}
		pos, err := cs.p.text("New position")
		if err != nil {
			return err
		}
		if ok, err = cs.api.UpdateDepartmentAndPosition(ctx, id, dep, pos); err != nil {
			return err
		}
		if ok {
			fmt.Fprintln(cs.out, "Department and position updated.")
		}
	default:
		fmt.Fprintln(cs.out, "Invalid option.")
		return nil
	}
	if !ok {
		fmt.Fprintln(cs.out, "User not found.")
	}
	return nil
}

func buildVersion() goversion.Info {
	return goversion.GetVersionInfo(
		goversion.WithAppDetails("userdb-client", "Console client for the user record server", ""),
		func(i *goversion.Info) {
			if version != "" {
				i.GitVersion = version
			}
			if commit != "" {
				i.GitCommit = commit
			}
			if date != "" {
				i.BuildDate = date
			}
		},
	)
}
