// Command source is the CLI surface of the engine: a thin go-flags
// adapter over the root package's Repository, WorkingTree, BranchManager
// and CommitManager, one subcommand per spec.md §6 table row.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/jessevdk/go-flags"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"

	sourcevc "github.com/sourcevc/source"
	"github.com/sourcevc/source/plumbing/filemode"
	"github.com/sourcevc/source/plumbing/hash"
	"github.com/sourcevc/source/plumbing/object"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

func init() {
	if os.Getenv("NO_COLOR") != "" {
		pterm.DisableColor()
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "source: "+format+"\n", args...)
	os.Exit(1)
}

func openRepo() *sourcevc.Repository {
	log.Debug().Msg("discovering repository from cwd")
	r, err := sourcevc.Discover(".", "")
	if err != nil {
		fail("%v", err)
	}
	r.Log = log
	return r
}

// --- init ---

type initCmd struct {
	Args struct {
		Dir string `positional-arg-name:"dir"`
	} `positional-args:"yes"`
}

func (c *initCmd) Execute(args []string) error {
	dir := c.Args.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	wt := osfs.New(dir)
	if _, err := sourcevc.Init(wt, "", ""); err != nil {
		return err
	}
	pterm.Success.Printfln("initialized repository in %s", dir)
	return nil
}

// --- hash-object ---

type hashObjectCmd struct {
	Write bool `short:"w" long:"write" description:"persist the blob to the object store"`
	Args  struct {
		File string `positional-arg-name:"file"`
	} `positional-args:"yes" required:"yes"`
}

func (c *hashObjectCmd) Execute(args []string) error {
	content, err := os.ReadFile(c.Args.File)
	if err != nil {
		return err
	}

	if c.Write {
		r := openRepo()
		h, err := r.Objects.EncodeObject(object.BlobObject, content)
		if err != nil {
			return err
		}
		fmt.Println(h.String())
		return nil
	}

	h := hash.New(append([]byte(fmt.Sprintf("blob %d\x00", len(content))), content...))
	fmt.Println(h.String())
	return nil
}

// --- cat-file ---

type catFileCmd struct {
	Type   bool `short:"t" description:"print the object's type"`
	Size   bool `short:"s" description:"print the object's size"`
	Pretty bool `short:"p" description:"pretty-print the object's content"`
	Exists bool `short:"e" description:"exit 0 if the object exists, 1 otherwise"`
	Args   struct {
		Hex string `positional-arg-name:"hex"`
	} `positional-args:"yes" required:"yes"`
}

func (c *catFileCmd) Execute(args []string) error {
	r := openRepo()
	h, ok := hash.FromHex(c.Args.Hex)
	if !ok {
		return fmt.Errorf("invalid hash %q", c.Args.Hex)
	}

	if c.Exists {
		has, _ := r.Objects.HasObject(h)
		if !has {
			os.Exit(1)
		}
		return nil
	}

	typ, content, err := r.Objects.DecodeObject(h)
	if err != nil {
		return err
	}

	switch {
	case c.Type:
		fmt.Println(typ.String())
	case c.Size:
		fmt.Println(len(content))
	case c.Pretty:
		os.Stdout.Write(content)
		if typ == object.CommitObject || typ == object.TreeObject {
			fmt.Println()
		}
	default:
		return fmt.Errorf("cat-file: one of -t, -s, -p, -e is required")
	}
	return nil
}

// --- add ---

type addCmd struct {
	All    bool `short:"A" description:"stage the whole working tree, including deletions"`
	DryRun bool `short:"n" description:"show what would be staged without staging it"`
	Force  bool `short:"f" description:"stage paths the ignore engine would otherwise exclude"`
	Args   struct {
		Paths []string `positional-arg-name:"path"`
	} `positional-args:"yes"`
}

func (c *addCmd) Execute(args []string) error {
	r := openRepo()
	paths := c.Args.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}

	res, err := sourcevc.Add(r, paths, sourcevc.AddOptions{All: c.All, DryRun: c.DryRun, Force: c.Force})
	if err != nil {
		return err
	}

	for _, p := range res.Added {
		pterm.Println(pterm.Green.Sprint("add: ") + p)
	}
	for _, p := range res.Modified {
		pterm.Println(pterm.Yellow.Sprint("update: ") + p)
	}
	for p, e := range res.Failed {
		pterm.Println(pterm.Red.Sprint("error: ") + p + ": " + e.Error())
	}
	if len(res.Failed) > 0 {
		os.Exit(1)
	}
	return nil
}

// --- status ---

type statusCmd struct {
	Short bool `short:"s" description:"short two-column status"`
}

func (c *statusCmd) Execute(args []string) error {
	r := openRepo()
	res, err := sourcevc.Status(r, false)
	if err != nil {
		return err
	}

	if c.Short {
		for p, kind := range res.Staged {
			fmt.Printf("%s  %s\n", shortCode(kind, true), p)
		}
		for p, kind := range res.Unstaged {
			fmt.Printf(" %s %s\n", shortCode(kind, false), p)
		}
		for _, p := range res.Untracked {
			fmt.Printf("?? %s\n", p)
		}
		return nil
	}

	if len(res.Staged) > 0 {
		pterm.DefaultSection.Println("Changes staged for commit")
		for p, kind := range res.Staged {
			fmt.Printf("\t%s: %s\n", kind, p)
		}
	}
	if len(res.Unstaged) > 0 {
		pterm.DefaultSection.Println("Changes not staged")
		for p, kind := range res.Unstaged {
			fmt.Printf("\t%s: %s\n", kind, p)
		}
	}
	if len(res.Untracked) > 0 {
		pterm.DefaultSection.Println("Untracked files")
		for _, p := range res.Untracked {
			fmt.Printf("\t%s\n", p)
		}
	}
	if len(res.Staged) == 0 && len(res.Unstaged) == 0 && len(res.Untracked) == 0 {
		fmt.Println("nothing to commit, working tree clean")
	}
	return nil
}

func shortCode(kind string, staged bool) string {
	switch kind {
	case "added":
		return "A"
	case "modified":
		return "M"
	case "deleted":
		return "D"
	default:
		return " "
	}
}

// --- commit ---

type commitCmd struct {
	Message    string `short:"m" long:"message"`
	Amend      bool   `long:"amend"`
	AllowEmpty bool   `long:"allow-empty"`
}

func (c *commitCmd) Execute(args []string) error {
	r := openRepo()

	msg := c.Message
	if msg == "" {
		m, err := editMessage()
		if err != nil {
			return err
		}
		msg = m
	}
	if strings.TrimSpace(msg) == "" {
		return fmt.Errorf("commit: empty message")
	}

	name, email := authorIdentity(r)
	cm := sourcevc.NewCommitManager(r)
	h, err := cm.Commit(sourcevc.CommitOptions{
		Message:    msg,
		Author:     object.Person{Name: name, Email: email, When: time.Now()},
		Amend:      c.Amend,
		AllowEmpty: c.AllowEmpty,
	})
	if err != nil {
		return err
	}

	pterm.Success.Printfln("committed %s", h.String()[:12])
	return nil
}

func authorIdentity(r *sourcevc.Repository) (string, string) {
	name := os.Getenv("SOURCE_AUTHOR_NAME")
	email := os.Getenv("SOURCE_AUTHOR_EMAIL")
	if name == "" {
		name = "unknown"
	}
	if email == "" {
		email = "unknown@localhost"
	}
	return name, email
}

func editMessage() (string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return "", fmt.Errorf("commit: -m not given and EDITOR not set")
	}

	tmp, err := os.CreateTemp("", "source-commit-*.txt")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	tmp.Close()

	cmd := exec.Command(editor, tmp.Name())
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return "", err
	}

	content, err := os.ReadFile(tmp.Name())
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// --- branch ---

type branchCmd struct {
	Delete      string `short:"d" description:"delete a branch, requiring it be fully merged"`
	ForceDelete string `short:"D" description:"delete a branch, even if not fully merged"`
	Args        struct {
		Name string `positional-arg-name:"name"`
	} `positional-args:"yes"`
}

func (c *branchCmd) Execute(args []string) error {
	r := openRepo()
	bm := sourcevc.NewBranchManager(r)

	switch {
	case c.Delete != "":
		return bm.Delete(c.Delete, false)
	case c.ForceDelete != "":
		return bm.Delete(c.ForceDelete, true)
	case c.Args.Name != "":
		return bm.Create(c.Args.Name, sourcevc.CreateOptions{})
	default:
		branches, err := bm.List()
		if err != nil {
			return err
		}
		for _, b := range branches {
			marker := "  "
			if b.IsCurrent {
				marker = "* "
			}
			fmt.Printf("%s%s\n", marker, b.Name)
		}
		return nil
	}
}

// --- checkout ---

type checkoutCmd struct {
	NewBranch string `short:"b" description:"create a new branch at target before switching to it"`
	Force     bool   `short:"f"`
	Args      struct {
		Target string `positional-arg-name:"target"`
	} `positional-args:"yes" required:"yes"`
}

func (c *checkoutCmd) Execute(args []string) error {
	r := openRepo()
	bm := sourcevc.NewBranchManager(r)

	target := c.Args.Target
	opts := sourcevc.CheckoutOptions{Force: c.Force}
	if c.NewBranch != "" {
		if err := bm.Create(c.NewBranch, sourcevc.CreateOptions{StartPoint: target, Force: c.Force}); err != nil {
			return err
		}
		target = c.NewBranch
	}

	res, err := bm.Checkout(target, opts)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("switched to %s (%d files changed)", target, res.FilesChanged)
	return nil
}

// --- ls-tree ---

type lsTreeCmd struct {
	Recursive bool `short:"r"`
	Long      bool `short:"l" description:"show blob sizes"`
	DirsOnly  bool `short:"d"`
	NameOnly  bool `long:"name-only"`
	Args      struct {
		Hex string `positional-arg-name:"hex"`
	} `positional-args:"yes" required:"yes"`
}

func (c *lsTreeCmd) Execute(args []string) error {
	r := openRepo()
	h, ok := hash.FromHex(c.Args.Hex)
	if !ok {
		return fmt.Errorf("invalid hash %q", c.Args.Hex)
	}
	return c.walk(r, h, "")
}

func (c *lsTreeCmd) walk(r *sourcevc.Repository, h hash.Hash, prefix string) error {
	t, err := object.GetTree(r.Objects, h)
	if err != nil {
		return err
	}
	for _, e := range t.Entries {
		full := e.Name
		if prefix != "" {
			full = prefix + "/" + e.Name
		}
		if c.DirsOnly && e.Mode != filemode.Dir {
			continue
		}
		if c.NameOnly {
			fmt.Println(full)
		} else if c.Long && e.Mode != filemode.Dir {
			_, content, _ := r.Objects.DecodeObject(e.Hash)
			fmt.Printf("%06o %s %s %7d\t%s\n", uint32(e.Mode), typeOf(e.Mode), e.Hash, len(content), full)
		} else {
			fmt.Printf("%06o %s %s\t%s\n", uint32(e.Mode), typeOf(e.Mode), e.Hash, full)
		}
		if e.Mode == filemode.Dir && c.Recursive {
			if err := c.walk(r, e.Hash, full); err != nil {
				return err
			}
		}
	}
	return nil
}

func typeOf(m filemode.FileMode) string {
	if m == filemode.Dir {
		return "tree"
	}
	return "blob"
}

// --- write-tree ---

type writeTreeCmd struct {
	Prefix string `long:"prefix"`
}

func (c *writeTreeCmd) Execute(args []string) error {
	r := openRepo()
	idx, err := r.Index.Index()
	if err != nil {
		return err
	}
	h, err := sourcevc.BuildTree(r.Objects, idx)
	if err != nil {
		return err
	}
	if c.Prefix != "" {
		for _, seg := range strings.Split(c.Prefix, "/") {
			t, err := object.GetTree(r.Objects, h)
			if err != nil {
				return err
			}
			e, ok := t.Entry(seg)
			if !ok {
				return fmt.Errorf("write-tree: prefix %q not found", c.Prefix)
			}
			h = e.Hash
		}
	}
	fmt.Println(h.String())
	return nil
}

// --- checkout-tree ---

type checkoutTreeCmd struct {
	Force bool `short:"f"`
	Args  struct {
		Hex string `positional-arg-name:"hex"`
		Dir string `positional-arg-name:"dir"`
	} `positional-args:"yes" required:"yes"`
}

func (c *checkoutTreeCmd) Execute(args []string) error {
	r := openRepo()
	h, ok := hash.FromHex(c.Args.Hex)
	if !ok {
		return fmt.Errorf("invalid hash %q", c.Args.Hex)
	}

	out := map[string]struct {
		Hash hash.Hash
		Mode filemode.FileMode
	}{}
	var walk func(hash.Hash, string) error
	walk = func(th hash.Hash, prefix string) error {
		t, err := object.GetTree(r.Objects, th)
		if err != nil {
			return err
		}
		for _, e := range t.Entries {
			full := e.Name
			if prefix != "" {
				full = prefix + "/" + e.Name
			}
			if e.Mode == filemode.Dir {
				if err := walk(e.Hash, full); err != nil {
					return err
				}
				continue
			}
			out[full] = struct {
				Hash hash.Hash
				Mode filemode.FileMode
			}{e.Hash, e.Mode}
		}
		return nil
	}
	if err := walk(h, ""); err != nil {
		return err
	}

	dest := osfs.New(c.Args.Dir)
	for p, st := range out {
		_, content, err := r.Objects.DecodeObject(st.Hash)
		if err != nil {
			return err
		}
		if err := dest.MkdirAll(dirOf(p), 0o755); err != nil {
			return err
		}
		if st.Mode == filemode.Symlink {
			_ = dest.Remove(p)
			if err := dest.Symlink(string(content), p); err != nil {
				return err
			}
			continue
		}
		f, err := dest.Create(p)
		if err != nil {
			return err
		}
		if _, err := f.Write(content); err != nil {
			f.Close()
			return err
		}
		f.Close()
	}
	return nil
}

func dirOf(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "."
	}
	return p[:i]
}

// --- destroy ---

type destroyCmd struct {
	Args struct {
		Dir string `positional-arg-name:"dir"`
	} `positional-args:"yes"`
}

func (c *destroyCmd) Execute(args []string) error {
	dir := c.Args.Dir
	if dir == "" {
		dir = "."
	}
	r, err := sourcevc.Discover(dir, "")
	if err != nil {
		return err
	}

	fmt.Printf("remove %s and all history? [y/N] ", r.MetaDirName())
	var answer string
	fmt.Scanln(&answer)
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		fmt.Println("aborted")
		return nil
	}
	return r.Destroy()
}

// --- ignore ---

type ignoreCmd struct {
	Create bool   `long:"create" description:"create an empty .sourceignore in the working tree root"`
	Add    string `short:"a" description:"append a pattern to .sourceignore"`
	Check  string `short:"c" description:"report whether path is ignored"`
	List   bool   `short:"l" description:"print the current .sourceignore"`
}

func (c *ignoreCmd) Execute(args []string) error {
	r := openRepo()

	switch {
	case c.Create:
		f, err := r.WorkingTree().Create(sourcevc.IgnorePatternFile)
		if err != nil {
			return err
		}
		return f.Close()
	case c.Add != "":
		f, err := r.WorkingTree().OpenFile(sourcevc.IgnorePatternFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = f.Write([]byte(c.Add + "\n"))
		return err
	case c.Check != "":
		eng, err := sourcevc.NewIgnoreEngine(r)
		if err != nil {
			return err
		}
		fmt.Println(eng.IsIgnored(r.MetaDirName(), c.Check, false))
		return nil
	case c.List:
		f, err := r.WorkingTree().Open(sourcevc.IgnorePatternFile)
		if err != nil {
			return err
		}
		defer f.Close()
		buf := make([]byte, 4096)
		for {
			n, err := f.Read(buf)
			if n > 0 {
				os.Stdout.Write(buf[:n])
			}
			if err != nil {
				break
			}
		}
		return nil
	default:
		return fmt.Errorf("ignore: one of --create, -a, -c, -l is required")
	}
}

func main() {
	parser := flags.NewParser(nil, flags.Default)

	parser.AddCommand("init", "Create a new repository", "Create the metadata directory; fail if one exists.", &initCmd{})
	parser.AddCommand("hash-object", "Compute a blob hash", "Compute a blob's content hash, optionally persisting it.", &hashObjectCmd{})
	parser.AddCommand("cat-file", "Inspect a stored object", "Print an object's type, size, content, or existence.", &catFileCmd{})
	parser.AddCommand("add", "Stage files", "Stage working-tree paths into the index.", &addCmd{})
	parser.AddCommand("status", "Show working tree status", "Show staged, unstaged and untracked paths.", &statusCmd{})
	parser.AddCommand("commit", "Record a commit", "Build a commit from the current index and advance HEAD.", &commitCmd{})
	parser.AddCommand("branch", "List, create or delete branches", "Branch management.", &branchCmd{})
	parser.AddCommand("checkout", "Switch branches or restore files", "Bring the working tree to match a branch or commit.", &checkoutCmd{})
	parser.AddCommand("ls-tree", "List the contents of a tree", "List tree entries.", &lsTreeCmd{})
	parser.AddCommand("write-tree", "Build a tree from the index", "Build and persist a tree object.", &writeTreeCmd{})
	parser.AddCommand("checkout-tree", "Extract a tree to a directory", "Extract a tree's content to a directory.", &checkoutTreeCmd{})
	parser.AddCommand("destroy", "Remove the metadata directory", "Remove the metadata directory, leaving working files.", &destroyCmd{})
	parser.AddCommand("ignore", "Manage .sourceignore", "Manage .sourceignore pattern files.", &ignoreCmd{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fail("%v", err)
	}
}
