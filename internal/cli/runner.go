package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/idilsaglam/tada/internal/client"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store/jsonstore"
	"github.com/idilsaglam/tada/internal/tui"
	"github.com/idilsaglam/tada/internal/ui"
)

// Options tune output behavior from root flags.
type Options struct {
	Group bool // list grouped by pending/done

	// Todos is the data layer every subcommand goes through.
	Todos *client.Todos

	In       io.Reader
	Out, Err io.Writer

	// Interactive runs the full-screen list; defaults to tui.Run.
	Interactive func(ctx context.Context, todos *client.Todos) error
}

func (o *Options) defaults() {
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	if o.Interactive == nil {
		o.Interactive = tui.Run
	}
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	opt.defaults()
	if len(args) == 0 {
		PrintHelp(opt.Err)
		return 2
	}
	cmd, a := args[0], args[1:]
	r := runner{ctx: ctx, opt: opt}

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(opt.Out)
		return 0

	case "ls":
		group := opt.Group
		for _, f := range a {
			if f != "--group" && f != "-g" {
				return r.usage("usage: todo ls [--group]")
			}
			group = true
		}
		return r.list(group)

	case "add":
		title := model.NormalizeTitle(strings.Join(a, " "))
		if title == "" {
			return r.usage("usage: todo add <title...>")
		}
		return r.add(title)

	case "done", "undone":
		if len(a) != 1 {
			return r.usage("usage: todo " + cmd + " <id>")
		}
		id, ok := r.parseID(cmd, a[0])
		if !ok {
			return 2
		}
		return r.setCompleted(id, cmd == "done")

	case "edit":
		if len(a) < 2 {
			return r.usage("usage: todo edit <id> <title...>")
		}
		id, ok := r.parseID(cmd, a[0])
		if !ok {
			return 2
		}
		title := model.NormalizeTitle(strings.Join(a[1:], " "))
		if title == "" {
			return r.usage("edit: empty title")
		}
		return r.edit(id, title)

	case "rm":
		yes := false
		var rest []string
		for _, s := range a {
			if s == "-y" || s == "--yes" {
				yes = true
				continue
			}
			rest = append(rest, s)
		}
		if len(rest) != 1 {
			return r.usage("usage: todo rm <id> [-y]")
		}
		id, ok := r.parseID(cmd, rest[0])
		if !ok {
			return 2
		}
		return r.remove(id, yes)

	case "export":
		if len(a) > 1 {
			return r.usage("usage: todo export [file]")
		}
		path := ""
		if len(a) == 1 {
			path = a[0]
		}
		return r.export(path)

	case "ui":
		if err := opt.Interactive(ctx, opt.Todos); err != nil {
			ui.Fail(opt.Err, "ui: "+err.Error())
			return 1
		}
		return 0
	}

	ui.Fail(opt.Err, "unknown subcommand: "+cmd)
	fmt.Fprintln(opt.Err)
	PrintHelp(opt.Err)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `todo - a tiny todo client

Usage:
  todo [flags] <subcommand> [args]

Subcommands:
  ls [--group]           List todos
  add <title...>         Add a new todo (title can be multiple words)
  done <id>              Mark a todo completed
  undone <id>            Mark a todo not completed
  edit <id> <title...>   Rename a todo
  rm <id> [-y]           Delete a todo (asks first unless -y)
  export [file]          Write all todos to a JSON file (default ./todos.json)
  ui                     Interactive list

Flags:
  -config <file>   config file (default ./tada.toml)
  -server <url>    server base URL
  -group           group ls output by pending/done
  -theme <name>    classic, neon or mono

Examples:
  todo add "Buy milk"
  todo ls
  todo done 2
  todo rm 3 -y
`)
}

type runner struct {
	ctx context.Context
	opt Options
}

func (r runner) usage(msg string) int {
	ui.Fail(r.opt.Err, msg)
	return 2
}

func (r runner) fail(msg string) int {
	ui.Fail(r.opt.Err, msg)
	return 1
}

func (r runner) parseID(cmd, s string) (int, bool) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		ui.Fail(r.opt.Err, cmd+": not a valid id: "+s)
		return 0, false
	}
	return id, true
}

func (r runner) hint() {
	fmt.Fprintln(r.opt.Err, ui.C(ui.Current().Muted, "Hint: run `todo ls` to see valid ids"))
}

// -------------- subcommand impls ----------------

func (r runner) list(group bool) int {
	todos, err := r.opt.Todos.List(r.ctx)
	if err != nil {
		return r.fail(err.Error())
	}

	total, completed, _ := tui.Stats(todos)
	t := ui.Current()
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(t.Title, "Todos"),
		ui.C(t.Success, t.SymDone), completed,
		ui.C(t.Pending, t.SymUnchecked), total-completed,
		ui.C(t.Accent, "Total"), total,
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(t.Muted, ui.ProgressBar(completed, total, 28)))
	lines = append(lines, "")

	if group {
		lines = append(lines, groupLines(todos)...)
	} else {
		lines = append(lines, flatLines(todos)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(t.Muted, "Tip: add with `todo add \"Buy milk\"`"))
	ui.Panel(r.opt.Out, lines)
	return 0
}

func (r runner) add(title string) int {
	todo, err := r.opt.Todos.Create(r.ctx, title)
	if err != nil {
		return r.fail(err.Error())
	}
	ui.OK(r.opt.Out, fmt.Sprintf("added #%d", todo.ID))
	return 0
}

func (r runner) setCompleted(id int, done bool) int {
	if _, err := r.opt.Todos.Update(r.ctx, id, model.SetCompleted(done)); err != nil {
		r.fail(err.Error())
		r.hint()
		return 1
	}
	if done {
		ui.OK(r.opt.Out, fmt.Sprintf("completed #%d", id))
	} else {
		ui.OK(r.opt.Out, fmt.Sprintf("reopened #%d", id))
	}
	return 0
}

func (r runner) edit(id int, title string) int {
	if _, err := r.opt.Todos.Update(r.ctx, id, model.SetTitle(title)); err != nil {
		r.fail(err.Error())
		r.hint()
		return 1
	}
	ui.OK(r.opt.Out, fmt.Sprintf("renamed #%d", id))
	return 0
}

func (r runner) remove(id int, yes bool) int {
	if !yes {
		todos, err := r.opt.Todos.List(r.ctx)
		if err != nil {
			return r.fail(err.Error())
		}
		var target *model.Todo
		for i := range todos {
			if todos[i].ID == id {
				target = &todos[i]
				break
			}
		}
		if target == nil {
			r.fail(fmt.Sprintf("no todo with id %d", id))
			r.hint()
			return 1
		}
		if !r.confirm(fmt.Sprintf("Delete %q? [y/N] ", target.Title)) {
			ui.OK(r.opt.Out, "kept")
			return 0
		}
	}
	if _, err := r.opt.Todos.Delete(r.ctx, id); err != nil {
		r.fail(err.Error())
		r.hint()
		return 1
	}
	ui.OK(r.opt.Out, fmt.Sprintf("removed #%d", id))
	return 0
}

func (r runner) confirm(prompt string) bool {
	fmt.Fprint(r.opt.Out, prompt)
	answer, _ := bufio.NewReader(r.opt.In).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (r runner) export(path string) int {
	if path == "" {
		p, err := jsonstore.DefaultPath()
		if err != nil {
			return r.fail(err.Error())
		}
		path = p
	}
	todos, err := r.opt.Todos.List(r.ctx)
	if err != nil {
		return r.fail(err.Error())
	}
	if err := jsonstore.Save(path, todos); err != nil {
		return r.fail("export: " + err.Error())
	}
	ui.OK(r.opt.Out, fmt.Sprintf("exported %d todos to %s", len(todos), path))
	return 0
}

// -------------- rendering helpers --------------

func flatLines(todos []model.Todo) []string {
	t := ui.Current()
	if len(todos) == 0 {
		return []string{ui.C(t.Muted, "no todos")}
	}
	out := make([]string, 0, len(todos))
	for _, td := range todos {
		idx := fmt.Sprintf("%3d.", td.ID)
		box, color := t.BoxUnchecked, t.Muted
		if td.Completed {
			box, color = t.BoxChecked, t.Success
		}
		title := td.Title
		if r := []rune(title); len(r) > 80 {
			title = string(r[:77]) + "..."
		}
		out = append(out, fmt.Sprintf("%s %s %s",
			ui.C("\033[2m", idx), ui.C(color, box), title))
	}
	return out
}

func groupLines(todos []model.Todo) []string {
	var pend, done []model.Todo
	for _, td := range todos {
		if td.Completed {
			done = append(done, td)
		} else {
			pend = append(pend, td)
		}
	}
	t := ui.Current()
	var lines []string
	lines = append(lines, ui.C(t.Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, ui.C(t.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(t.Accent, "Done"))
	if len(done) == 0 {
		lines = append(lines, ui.C(t.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}
