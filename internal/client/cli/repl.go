package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	CurrentDir() string
	ChangeDir(ctx context.Context, dir string) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	List(ctx context.Context, dir string) error
	Upload(ctx context.Context, paths []string, opts uploadOptions) error
	Remove(ctx context.Context, path string) error
	RemoveDir(ctx context.Context, path string, force bool) error
	MakeDir(ctx context.Context, name string) error
	Move(ctx context.Context, path, newName string) error
	Health(ctx context.Context) error
}

const shellHelp = `Available commands:
  ls [dir]                          list a folder
  cd <dir> | cd .. | cd /           change the current folder
  pwd                               print the current folder
  upload [-d dir] [-t] <files...>   upload files or folders of images
  mkdir <name>                      create a folder
  rm <path>                         delete a file
  rmdir [-y] <path>                 delete a folder recursively
  mv <path> <new-name>              rename a file
  login | logout | status           manage the stored credential
  health                            check the server
  exit | quit                       leave the shell`

// runREPL reads commands from scanner until EOF, "exit" or "quit" and
// dispatches them to a. Errors are printed and the loop continues.
//
// The prompt shows the current folder and the login state from statusFn.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("repopix:/%s (%s)> ", a.CurrentDir(), statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(shellHelp)

		case "ls", "l", "list":
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			err = a.List(ctx, dir)

		case "cd":
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			err = a.ChangeDir(ctx, dir)

		case "pwd":
			printlnFn("/" + a.CurrentDir())

		case "upload":
			err = shellUpload(ctx, a, args)

		case "mkdir":
			if len(args) != 1 {
				printlnFn("Usage: mkdir <name>")
				continue
			}
			err = a.MakeDir(ctx, args[0])

		case "rm":
			if len(args) != 1 {
				printlnFn("Usage: rm <path>")
				continue
			}
			err = a.Remove(ctx, args[0])

		case "rmdir":
			force := len(args) > 0 && args[0] == "-y"
			if force {
				args = args[1:]
			}
			if len(args) != 1 {
				printlnFn("Usage: rmdir [-y] <path>")
				continue
			}
			err = a.RemoveDir(ctx, args[0], force)

		case "mv":
			if len(args) != 2 {
				printlnFn("Usage: mv <path> <new-name>")
				continue
			}
			err = a.Move(ctx, args[0], args[1])

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "status":
			err = a.Status(ctx)

		case "health":
			err = a.Health(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

func shellUpload(ctx context.Context, a execIface, args []string) error {
	var opts uploadOptions
	fs := pflag.NewFlagSet("upload", pflag.ContinueOnError)
	fs.StringVarP(&opts.Dir, "dir", "d", "", "target folder")
	fs.BoolVarP(&opts.TimestampNames, "timestamp-names", "t", false, "rename files to their upload time")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		printlnFn("Usage: upload [-d dir] [-t] <files...>")
		return nil
	}
	return a.Upload(ctx, fs.Args(), opts)
}
