package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lifo-sh/vush/internal/netstack"
	"github.com/lifo-sh/vush/internal/portreg"
	"github.com/lifo-sh/vush/internal/shell/runtime"
)

// netnsBuiltin is "netns ls|add NAME|del NAME" against a session's network
// stack, spec section 4.8's namespace model.
func netnsBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	if len(args) == 0 {
		return fail(ctx, "netns: usage: netns ls|add NAME|del NAME")
	}
	stack := ctx.Netstack()
	switch args[0] {
	case "ls":
		for _, name := range stack.Namespaces() {
			fmt.Fprintln(ctx.Stdout(), name)
		}
		return 0, nil
	case "add":
		if len(args) != 2 {
			return fail(ctx, "netns: usage: netns add NAME")
		}
		if err := stack.AddNamespace(args[1]); err != nil {
			return fail(ctx, "netns: %v", err)
		}
		return 0, nil
	case "del":
		if len(args) != 2 {
			return fail(ctx, "netns: usage: netns del NAME")
		}
		if err := stack.DelNamespace(args[1]); err != nil {
			return fail(ctx, "netns: %v", err)
		}
		return 0, nil
	default:
		return fail(ctx, "netns: unknown subcommand %q", args[0])
	}
}

// linkBuiltin is "link add veth A B|bridge NAME", "link set NAME master
// BR|netns NS|up|down", and "link ls [NS]" against a session's network
// stack, spec section 4.8's interface model.
func linkBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	if len(args) == 0 {
		return fail(ctx, "link: usage: link add|set|ls ...")
	}
	stack := ctx.Netstack()
	switch args[0] {
	case "add":
		return linkAdd(ctx, stack, args[1:])
	case "set":
		return linkSet(ctx, stack, args[1:])
	case "ls":
		ns := netstack.DefaultNamespace
		if len(args) > 1 {
			ns = args[1]
		}
		namespace, ok := stack.Namespace(ns)
		if !ok {
			return fail(ctx, "link: namespace %q not found", ns)
		}
		for _, name := range namespace.Interfaces() {
			iface, _ := namespace.Interface(name)
			state := "down"
			if iface.Up {
				state = "up"
			}
			fmt.Fprintf(ctx.Stdout(), "%s %s %s\n", iface.Name, iface.Kind, state)
		}
		return 0, nil
	default:
		return fail(ctx, "link: unknown subcommand %q", args[0])
	}
}

func linkAdd(ctx runtime.ExecContext, stack *netstack.Stack, args []string) (int, error) {
	def, _ := stack.Namespace(netstack.DefaultNamespace)
	if len(args) == 0 {
		return fail(ctx, "link: usage: link add veth A B|bridge NAME")
	}
	switch args[0] {
	case "veth":
		if len(args) != 3 {
			return fail(ctx, "link: usage: link add veth A B")
		}
		if err := def.AddVeth(args[1], args[2]); err != nil {
			return fail(ctx, "link: %v", err)
		}
		return 0, nil
	case "bridge":
		if len(args) != 2 {
			return fail(ctx, "link: usage: link add bridge NAME")
		}
		if err := def.AddBridge(args[1]); err != nil {
			return fail(ctx, "link: %v", err)
		}
		return 0, nil
	default:
		return fail(ctx, "link: unknown interface kind %q", args[0])
	}
}

func linkSet(ctx runtime.ExecContext, stack *netstack.Stack, args []string) (int, error) {
	if len(args) < 2 {
		return fail(ctx, "link: usage: link set NAME master BR|netns NS|up|down")
	}
	name := args[0]
	def, _ := stack.Namespace(netstack.DefaultNamespace)
	switch args[1] {
	case "master":
		if len(args) != 3 {
			return fail(ctx, "link: usage: link set NAME master BR")
		}
		if err := def.AttachPort(args[2], name); err != nil {
			return fail(ctx, "link: %v", err)
		}
		return 0, nil
	case "netns":
		if len(args) != 3 {
			return fail(ctx, "link: usage: link set NAME netns NS")
		}
		if err := stack.MoveInterface(name, netstack.DefaultNamespace, args[2]); err != nil {
			return fail(ctx, "link: %v", err)
		}
		return 0, nil
	case "up", "down":
		if err := def.SetUp(name, args[1] == "up"); err != nil {
			return fail(ctx, "link: %v", err)
		}
		return 0, nil
	default:
		return fail(ctx, "link: unknown set target %q", args[1])
	}
}

// listenBuiltin registers a virtual HTTP handler on PORT that responds
// 200 with the remaining arguments joined by a space as its body, per
// spec section 4.8's "listen(port, handler) inserts, replacing any
// existing".
func listenBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	if len(args) < 2 {
		return fail(ctx, "listen: usage: listen PORT BODY...")
	}
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return fail(ctx, "listen: invalid port %q", args[0])
	}
	body := strings.Join(args[1:], " ")
	ctx.Portreg().Listen(port, func(req *portreg.Request, resp *portreg.Response) <-chan struct{} {
		resp.Status = http.StatusOK
		resp.Body = []byte(body)
		return nil
	})
	return 0, nil
}

// unlistenBuiltin removes the handler registered on PORT, if any.
func unlistenBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	if len(args) != 1 {
		return fail(ctx, "unlisten: usage: unlisten PORT")
	}
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return fail(ctx, "unlisten: invalid port %q", args[0])
	}
	ctx.Portreg().Close(port)
	return 0, nil
}

// fetchBuiltin is the virtual HTTP client from spec section 4.8: a GET
// against a "localhost"/"127.0.0.1" target first consults the session's
// port registry, and only falls through to a real external fetch when no
// handler is registered there (or the host isn't local at all).
func fetchBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	if len(args) != 1 {
		return fail(ctx, "fetch: usage: fetch URL")
	}
	u, err := url.Parse(args[0])
	if err != nil {
		return fail(ctx, "fetch: %v", err)
	}

	if isLocalHost(u.Hostname()) {
		port, perr := strconv.Atoi(u.Port())
		if perr == nil {
			resp, err := ctx.Portreg().Dispatch(context.Background(), port, &portreg.Request{
				Method: http.MethodGet,
				Path:   u.Path,
				Header: make(http.Header),
			})
			if err == nil {
				ctx.Stdout().Write(resp.Body)
				if resp.Status >= 400 {
					return 1, nil
				}
				return 0, nil
			}
			if err != portreg.ErrNotRegistered {
				return fail(ctx, "fetch: %v", err)
			}
		}
	}

	resp, err := http.Get(u.String())
	if err != nil {
		return fail(ctx, "fetch: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(ctx, "fetch: %v", err)
	}
	ctx.Stdout().Write(body)
	if resp.StatusCode >= 400 {
		return 1, nil
	}
	return 0, nil
}

func isLocalHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1"
}
