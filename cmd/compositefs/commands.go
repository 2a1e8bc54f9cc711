package main

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/absfs/compositefs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func pathArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

type lsCmd struct {
	long bool
}

func (c *lsCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.Flags().BoolVarP(&c.long, "long", "l", false, "show type and size")
	return cmd
}

func (c *lsCmd) run(cl *cli, fsys compositefs.Filesystem, args []string) error {
	entries, err := fsys.Ls(pathArg(args))
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name
		if e.IsDir() {
			name += "/"
		}
		if c.long {
			fmt.Fprintf(cl.out, "%-9s %10d %s\n", e.Type, e.Size, name)
			continue
		}
		fmt.Fprintln(cl.out, name)
	}
	return nil
}

type walkCmd struct {
	maxDepth int
}

func (c *walkCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walk [path]",
		Short: "Print every file below a directory",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.Flags().IntVar(&c.maxDepth, "max-depth", compositefs.NoMaxDepth, "number of directory levels to descend (-1 for all)")
	return cmd
}

func (c *walkCmd) run(cl *cli, fsys compositefs.Filesystem, args []string) error {
	for we, err := range fsys.Walk(pathArg(args), c.maxDepth) {
		if err != nil {
			return err
		}
		for _, f := range we.Files {
			fmt.Fprintln(cl.out, path.Join(we.Dir, f))
		}
	}
	return nil
}

type catCmd struct{}

func (c *catCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "cat path",
		Short: "Print file content",
		Args:  cobra.ExactArgs(1),
	}
}

func (c *catCmd) run(cl *cli, fsys compositefs.Filesystem, args []string) error {
	data, err := compositefs.Cat(fsys, args[0])
	if err != nil {
		return err
	}
	_, err = cl.out.Write(data)
	return err
}

type putCmd struct {
	recursive bool
}

func (c *putCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put local-path remote-path",
		Short: "Upload from the local disk",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().BoolVarP(&c.recursive, "recursive", "r", false, "upload a directory tree")
	return cmd
}

func (c *putCmd) run(cl *cli, fsys compositefs.Filesystem, args []string) error {
	return compositefs.Put(fsys, args[0], args[1], c.recursive)
}

type getCmd struct {
	recursive bool
}

func (c *getCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get remote-path local-path",
		Short: "Download to the local disk",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().BoolVarP(&c.recursive, "recursive", "r", false, "download a directory tree")
	return cmd
}

func (c *getCmd) run(cl *cli, fsys compositefs.Filesystem, args []string) error {
	return compositefs.Get(fsys, args[0], args[1], c.recursive)
}

type rmCmd struct {
	recursive bool
	maxDepth  int
}

func (c *rmCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm path",
		Short: "Remove a file or directory",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVarP(&c.recursive, "recursive", "r", false, "remove directories and their content")
	cmd.Flags().IntVar(&c.maxDepth, "max-depth", compositefs.NoMaxDepth, "limit recursion depth (-1 for none)")
	return cmd
}

func (c *rmCmd) run(cl *cli, fsys compositefs.Filesystem, args []string) error {
	return fsys.Rm(args[0], c.recursive, c.maxDepth)
}

type mkdirCmd struct {
	parents bool
}

func (c *mkdirCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir path",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVarP(&c.parents, "parents", "p", false, "create parents as needed, no error if existing")
	return cmd
}

func (c *mkdirCmd) run(cl *cli, fsys compositefs.Filesystem, args []string) error {
	if c.parents {
		return fsys.Makedirs(args[0], true)
	}
	return fsys.Mkdir(args[0], false)
}

type cpCmd struct{}

func (c *cpCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "cp src dst",
		Short: "Copy a file",
		Args:  cobra.ExactArgs(2),
	}
}

func (c *cpCmd) run(cl *cli, fsys compositefs.Filesystem, args []string) error {
	return fsys.CpFile(args[0], args[1])
}

type mvCmd struct{}

func (c *mvCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "mv src dst",
		Short: "Move a file or directory",
		Args:  cobra.ExactArgs(2),
	}
}

func (c *mvCmd) run(cl *cli, fsys compositefs.Filesystem, args []string) error {
	return fsys.Mv(args[0], args[1])
}

type infoCmd struct{}

func (c *infoCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "info path",
		Short: "Show details of an entry as YAML",
		Args:  cobra.ExactArgs(1),
	}
}

func (c *infoCmd) run(cl *cli, fsys compositefs.Filesystem, args []string) error {
	e, err := fsys.Info(args[0])
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cl.out)
	defer enc.Close()
	return enc.Encode(e)
}

type mountsCmd struct{}

func (c *mountsCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "mounts",
		Short: "List the mounts of a nested filesystem",
		Args:  cobra.NoArgs,
	}
}

func (c *mountsCmd) run(cl *cli, fsys compositefs.Filesystem, args []string) error {
	r, ok := fsys.(*compositefs.Router)
	if !ok {
		return errors.Errorf("%s filesystem has no mounts", fsys.Name())
	}
	for _, key := range r.Mounts() {
		m, _ := r.Mount(key)
		fmt.Fprintf(cl.out, "%-12s %-12s %s\n", key, m.Name(), short(m.Fingerprint()))
	}
	return nil
}

// short abbreviates a fingerprint for display
func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

type statusCmd struct{}

func (c *statusCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List paths hidden by overlay deletions",
		Args:  cobra.NoArgs,
	}
}

func (c *statusCmd) run(cl *cli, fsys compositefs.Filesystem, args []string) error {
	overlays := map[string]*compositefs.Overlay{}
	switch f := fsys.(type) {
	case *compositefs.Overlay:
		overlays[""] = f
	case *compositefs.Router:
		for _, key := range f.Mounts() {
			m, _ := f.Mount(key)
			if o, ok := m.(*compositefs.Overlay); ok {
				if key == compositefs.DefaultMount {
					key = ""
				}
				overlays[key] = o
			}
		}
	}
	if len(overlays) == 0 {
		return errors.Errorf("%s filesystem has no overlay", fsys.Name())
	}

	var lines []string
	for key, o := range overlays {
		deleted, err := o.Deleted()
		if err != nil {
			return err
		}
		for _, p := range deleted {
			lines = append(lines, "deleted "+path.Join(key, p))
		}
	}
	if len(lines) == 0 {
		return nil
	}
	sort.Strings(lines)
	_, err := fmt.Fprintln(cl.out, strings.Join(lines, "\n"))
	return err
}
